package gpu

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/direct"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
)

// runDirect launches the fused kernels as grid-stride loops: one index per
// (image, output channel) for forward, per (image, input channel) for
// backward-data and per output channel for the update.
func (b *Backend[T]) runDirect(phase conv.Phase, p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	conv.RequireDirect(phase, cfg)
	defer scope.Measure("direct")()

	switch phase {
	case conv.Forward:
		parallel.GridStride(p.N*p.K, b.threads, func(index int) {
			n, k := index/p.K, index%p.K
			x, y := ops.Image(p, n)
			direct.Forward(x, ops.Filter, y, p, cfg, k, k+1, direct.DefaultLanes)
		})
	case conv.BackwardData:
		parallel.GridStride(p.N*p.C, b.threads, func(index int) {
			n, c := index/p.C, index%p.C
			dx, dy := ops.Image(p, n)
			direct.BackwardData(dy, ops.Filter, dx, p, cfg, c, c+1)
		})
	case conv.UpdateFilter:
		parallel.GridStride(p.K, b.threads, func(k int) {
			direct.UpdateFilter(ops.Input, ops.Output, ops.Filter, p, cfg, k, k+1)
		})
	}
}
