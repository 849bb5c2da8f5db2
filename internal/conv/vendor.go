package conv

import (
	"github.com/born-ml/blitz/internal/tensor"
)

// VendorHandle is an opaque, reusable plan created by a Vendor for one
// problem and configuration.
type VendorHandle any

// Vendor is an externally supplied convolution routine. The engine marshals
// NCHW tensors into Layout() inside the workspace, prepares a handle once
// per problem and reuses it for every Execute call.
type Vendor[T tensor.Float] interface {
	// Name identifies the vendor in logs.
	Name() string
	// Layout is the activation layout Execute expects (BufferNCHW or BufferNHWC).
	Layout() tensor.Layout
	// Prepare plans a problem.
	Prepare(p Problem, cfg Config) (VendorHandle, error)
	// Execute runs phase. For Forward, output is written; for BackwardData,
	// input is written; for UpdateFilter, filter is written.
	Execute(h VendorHandle, phase Phase, input, filter, output []T) error
}
