// Package gpu implements the accelerator backend. Kernels run as grid/block
// launches or grid-stride loops over a fixed number of device threads and
// only touch buffers resident on the accelerator.
package gpu

import (
	"github.com/born-ml/blitz/internal/backend/gemmconv"
	"github.com/born-ml/blitz/internal/blas"
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// DefaultThreads is the device thread count used when none is configured.
const DefaultThreads = 256

// Backend runs convolutions on the accelerator.
//
// A Backend is not safe for concurrent use: the vendor handle cache is
// owned by the instance and calls are expected to be serialized.
type Backend[T tensor.Float] struct {
	threads  int
	lowering gemmconv.Lowering[T]
	vendor   conv.Vendor[T]
	handles  map[handleKey]conv.VendorHandle
}

type handleKey struct {
	problem conv.Problem
	config  conv.Config
}

// New creates an accelerator backend with the given number of device
// threads. vendor may be nil.
func New[T tensor.Float](threads int, vendor conv.Vendor[T]) *Backend[T] {
	if threads < 1 {
		threads = DefaultThreads
	}
	return &Backend[T]{
		threads: threads,
		lowering: gemmconv.Lowering[T]{
			Mul:     blas.NewTiled[T](parallel.Config{Enabled: threads > 1, NumWorkers: threads}),
			Threads: threads,
		},
		vendor:  vendor,
		handles: make(map[handleKey]conv.VendorHandle),
	}
}

// Name returns the backend name.
func (b *Backend[T]) Name() string {
	return "GPU"
}

// Device returns the compute device.
func (b *Backend[T]) Device() tensor.Device {
	return tensor.GPU
}

// Threads returns the device thread count.
func (b *Backend[T]) Threads() int {
	return b.threads
}

// HasVendor reports whether a vendor capability is registered.
func (b *Backend[T]) HasVendor() bool {
	return b.vendor != nil
}

// Run executes one validated strategy.
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
	case conv.AlgorithmDirect:
		b.runDirect(s.Phase, p, cfg, ops, scope)
	case conv.AlgorithmVendor:
		b.runVendor(s.Phase, p, cfg, ops, scope)
	default:
		conv.Fatalf("gpu "+s.Phase.String(), conv.ErrUnsupportedAlgorithm, "%s is not available on %s", s.Algorithm, tensor.GPU)
	}
}
