// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package conv provides the public API of the Blitz convolution engine.
//
// An Engine runs forward, backward-data and filter-update convolutions on
// one device. Buffers must live on that device and be sized for the shapes
// they carry; the workspace must hold at least WorkspaceSize elements.
//
// Example:
//
//	e := conv.New[float32](tensor.CPU)
//	cfg := conv.NewConfig(1, 1, conv.AlgorithmGemm)
//	in, f := tensor.NCHW(2, 3, 5, 5), tensor.KCRS(4, 3, 3, 3)
//	out := conv.OutputShape(in, f, cfg)
//	ws := e.NewWorkspace(conv.Forward, in, f, out, cfg)
//	e.ConvolutionForward(x, filter, y, ws, cfg)
//
// Contract violations panic with an *Error. Boundary code can convert them
// with Recover:
//
//	func run() (err error) {
//	    defer conv.Recover(&err)
//	    e.ConvolutionForward(x, filter, y, ws, cfg)
//	    return nil
//	}
package conv

import (
	"log/slog"

	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/engine"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/tensor"
)

// Engine runs convolutions of element type T on one device.
type Engine[T tensor.Float] = engine.Engine[T]

// Option configures an Engine.
type Option = engine.Option

// Config is the per-call convolution configuration.
type Config = conv.Config

// Algorithm selects the convolution strategy.
type Algorithm = conv.Algorithm

// Algorithm constants.
const (
	AlgorithmGemm      Algorithm = conv.AlgorithmGemm
	AlgorithmGemmBatch Algorithm = conv.AlgorithmGemmBatch
	AlgorithmDirect    Algorithm = conv.AlgorithmDirect
	AlgorithmVendor    Algorithm = conv.AlgorithmVendor
)

// Phase identifies a convolution pass.
type Phase = conv.Phase

// Phase constants.
const (
	Forward      Phase = conv.Forward
	BackwardData Phase = conv.BackwardData
	UpdateFilter Phase = conv.UpdateFilter
)

// Problem is the decoded extent set of a convolution.
type Problem = conv.Problem

// Vendor is an external convolution routine the accelerator can delegate to.
type Vendor[T tensor.Float] = conv.Vendor[T]

// VendorHandle is a vendor's prepared plan.
type VendorHandle = conv.VendorHandle

// Error is the value calls panic with on contract violations.
type Error = conv.Error

// Sentinel causes wrapped by Error.
var (
	ErrShapeMismatch        = conv.ErrShapeMismatch
	ErrLayout               = conv.ErrLayout
	ErrInvalidConfig        = conv.ErrInvalidConfig
	ErrUnsupportedAlgorithm = conv.ErrUnsupportedAlgorithm
	ErrDirectPadding        = conv.ErrDirectPadding
	ErrDeviceMismatch       = conv.ErrDeviceMismatch
	ErrWorkspace            = conv.ErrWorkspace
	ErrVendor               = conv.ErrVendor
)

// New creates an engine for device.
func New[T tensor.Float](device tensor.Device, opts ...Option) *Engine[T] {
	return engine.New[T](device, opts...)
}

// NewConfig returns a configuration with symmetric padding and stride.
func NewConfig(pad, stride int, algorithm Algorithm) Config {
	return conv.NewConfig(pad, stride, algorithm)
}

// ParseAlgorithm maps an algorithm name such as "convolution_blas_gemm" to
// its kind.
func ParseAlgorithm(name string) (Algorithm, error) {
	return conv.ParseAlgorithm(name)
}

// ParsePhase maps "forward", "backward" or "update" to a phase.
func ParsePhase(name string) (Phase, error) {
	return conv.ParsePhase(name)
}

// OutputShape returns the output shape the algorithm of cfg produces.
func OutputShape(input, filter tensor.Shape, cfg Config) tensor.Shape {
	return conv.OutputShape(input, filter, cfg)
}

// Available reports whether device can run algorithm without a vendor.
func Available(device tensor.Device, algorithm Algorithm) bool {
	return conv.Available(device, algorithm, false)
}

// Recover converts a panicking *Error into *err; other panics propagate.
// It must be deferred directly.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(*Error)
	if !ok {
		panic(r)
	}
	*err = e
}

// WithWorkers sets the host worker count.
func WithWorkers(n int) Option {
	return engine.WithWorkers(n)
}

// WithParallel replaces the host fan-out configuration.
func WithParallel(enabled bool, workers, minChunk int) Option {
	return engine.WithParallel(parallel.Config{Enabled: enabled, NumWorkers: workers, MinChunkSize: minChunk})
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return engine.WithLogger(logger)
}

// WithVendor registers a Vendor of the engine's element type.
func WithVendor[T tensor.Float](vendor Vendor[T]) Option {
	return engine.WithVendor(vendor)
}

// WithDeviceThreads sets the accelerator's device thread count.
func WithDeviceThreads(n int) Option {
	return engine.WithDeviceThreads(n)
}

// WithContexts sets the coprocessor's worker context count.
func WithContexts(n int) Option {
	return engine.WithContexts(n)
}
