// Package mic implements the coprocessor backend: a fixed pool of worker
// contexts with vector-width blocked direct kernels and the batched
// pack-then-multiply algorithm.
package mic

import (
	"runtime"

	"github.com/born-ml/blitz/internal/backend/gemmconv"
	"github.com/born-ml/blitz/internal/blas"
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// Backend runs convolutions on the coprocessor.
type Backend[T tensor.Float] struct {
	contexts int
	lanes    int
	lowering gemmconv.Lowering[T]
}

// New creates a coprocessor backend with the given number of worker
// contexts (runtime.NumCPU() when contexts < 1).
func New[T tensor.Float](contexts int) *Backend[T] {
	if contexts < 1 {
		contexts = runtime.NumCPU()
	}
	return &Backend[T]{
		contexts: contexts,
		lanes:    Lanes[T](),
		// Each context multiplies its own images; no nested fan-out.
		lowering: gemmconv.Lowering[T]{
			Mul:     blas.NewTiled[T](parallel.Sequential()),
			Threads: 1,
		},
	}
}

// Name returns the backend name.
func (b *Backend[T]) Name() string {
	return "MIC"
}

// Device returns the compute device.
func (b *Backend[T]) Device() tensor.Device {
	return tensor.MIC
}

// Workers is the number of worker contexts.
func (b *Backend[T]) Workers() int {
	return b.contexts
}

// Lanes is the vector block width of the direct kernels.
func (b *Backend[T]) Lanes() int {
	return b.lanes
}

// Run executes one validated strategy.
func (b *Backend[T]) Run(s conv.Strategy, p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	switch s.Algorithm {
	case conv.AlgorithmGemmBatch:
		switch s.Phase {
		case conv.Forward:
			b.lowering.ForwardBatch(p, cfg, ops, b.contexts, scope)
		case conv.BackwardData:
			b.lowering.BackwardDataBatch(p, cfg, ops, b.contexts, scope)
		case conv.UpdateFilter:
			b.lowering.UpdateFilterBatch(p, cfg, ops, b.contexts, scope)
		}
	case conv.AlgorithmDirect:
		stop := scope.Measure("prepare")
		h := Prepare[T](p, cfg, []conv.Phase{s.Phase}, b.contexts, b.lanes)
		stop()

		defer scope.Measure("direct")()
		parallel.Workers(h.Contexts(), func(tid int) {
			h.Execute(s.Phase, ops, tid)
		})
	default:
		conv.Fatalf("mic "+s.Phase.String(), conv.ErrUnsupportedAlgorithm, "%s is not available on %s", s.Algorithm, tensor.MIC)
	}
}
