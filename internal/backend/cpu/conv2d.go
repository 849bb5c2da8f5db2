package cpu

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/direct"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
)

// directForward runs the fused forward kernel with one work item per
// (image, output channel) pair.
func (b *Backend[T]) directForward(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	defer scope.Measure("direct")()
	par := b.par
	par.MinChunkSize = 1
	parallel.ForBatch(p.N, p.K, func(n, k int) {
		x, y := ops.Image(p, n)
		direct.Forward(x, ops.Filter, y, p, cfg, k, k+1, direct.DefaultLanes)
	}, par)
}
