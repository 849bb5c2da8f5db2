// Package cpu implements the host backend: gonum BLAS for the lowered
// algorithms and goroutine fan-out over the host cores for the direct one.
package cpu

import (
	"github.com/born-ml/blitz/internal/backend/gemmconv"
	"github.com/born-ml/blitz/internal/blas"
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// Backend runs convolutions on the host.
type Backend[T tensor.Float] struct {
	par      parallel.Config
	lowering gemmconv.Lowering[T]
}

// New creates a host backend that fans out according to cfg.
func New[T tensor.Float](cfg parallel.Config) *Backend[T] {
	return &Backend[T]{
		par: cfg,
		lowering: gemmconv.Lowering[T]{
			Mul:     blas.Gonum[T]{},
			Threads: cfg.Workers(),
		},
	}
}

// Name returns the backend name.
func (b *Backend[T]) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (b *Backend[T]) Device() tensor.Device {
	return tensor.CPU
}

// Workers is the batched algorithm's fan-out.
func (b *Backend[T]) Workers() int {
	return b.par.Workers()
}

// Multiplier returns the GEMM capability in use.
func (b *Backend[T]) Multiplier() blas.Multiplier[T] {
	return b.lowering.Mul
}

// Run executes one validated strategy. Operands must already be checked
// against p and the workspace sized for s.Algorithm.
func (b *Backend[T]) Run(s conv.Strategy, p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	switch s.Algorithm {
	case conv.AlgorithmGemm:
		switch s.Phase {
		case conv.Forward:
			b.lowering.Forward(p, cfg, ops, scope)
		case conv.BackwardData:
			b.lowering.BackwardData(p, cfg, ops, scope)
		case conv.UpdateFilter:
			b.lowering.UpdateFilter(p, cfg, ops, scope)
		}
	case conv.AlgorithmGemmBatch:
		switch s.Phase {
		case conv.Forward:
			b.lowering.ForwardBatch(p, cfg, ops, b.Workers(), scope)
		case conv.BackwardData:
			b.lowering.BackwardDataBatch(p, cfg, ops, b.Workers(), scope)
		case conv.UpdateFilter:
			b.lowering.UpdateFilterBatch(p, cfg, ops, b.Workers(), scope)
		}
	case conv.AlgorithmDirect:
		switch s.Phase {
		case conv.Forward:
			b.directForward(p, cfg, ops, scope)
		case conv.BackwardData:
			b.directBackwardData(p, cfg, ops, scope)
		case conv.UpdateFilter:
			b.directUpdateFilter(p, cfg, ops, scope)
		}
	default:
		conv.Fatalf("cpu "+s.Phase.String(), conv.ErrUnsupportedAlgorithm, "%s is not available on %s", s.Algorithm, tensor.CPU)
	}
}
