package cpu

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/direct"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
)

// directBackwardData fans out over (image, input channel) pairs.
func (b *Backend[T]) directBackwardData(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	conv.RequireDirect(conv.BackwardData, cfg)
	defer scope.Measure("direct")()
	par := b.par
	par.MinChunkSize = 1
	parallel.ForBatch(p.N, p.C, func(n, c int) {
		dx, dy := ops.Image(p, n)
		direct.BackwardData(dy, ops.Filter, dx, p, cfg, c, c+1)
	}, par)
}

// directUpdateFilter fans out over output channels; each one sums over the
// whole batch.
func (b *Backend[T]) directUpdateFilter(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	conv.RequireDirect(conv.UpdateFilter, cfg)
	defer scope.Measure("direct")()
	par := b.par
	par.MinChunkSize = 1
	parallel.For(p.K, func(k int) {
		direct.UpdateFilter(ops.Input, ops.Output, ops.Filter, p, cfg, k, k+1)
	}, par)
}
