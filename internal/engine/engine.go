// Package engine is the device-independent entry point of the convolution
// engine. An Engine is bound to one device; every call decodes and validates
// its tensors, selects the algorithm and dispatches to that device's
// backend.
//
// Contract violations are fatal: calls panic with a *conv.Error. Calls on
// one Engine, and calls sharing a workspace, must be serialized by the
// caller.
package engine

import (
	"log/slog"

	"github.com/born-ml/blitz/internal/backend/cpu"
	"github.com/born-ml/blitz/internal/backend/gpu"
	"github.com/born-ml/blitz/internal/backend/mic"
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// Engine runs convolutions of element type T on one device.
type Engine[T tensor.Float] struct {
	device tensor.Device
	logger *slog.Logger

	// Exactly one backend is set, selected by device.
	cpu *cpu.Backend[T]
	gpu *gpu.Backend[T]
	mic *mic.Backend[T]
}

// New creates an engine for device.
func New[T tensor.Float](device tensor.Device, opts ...Option) *Engine[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	var vendor conv.Vendor[T]
	if o.vendor != nil {
		v, ok := o.vendor.(conv.Vendor[T])
		if !ok {
			conv.Fatalf("new engine", conv.ErrInvalidConfig, "vendor %T does not handle %s", o.vendor, tensor.DataTypeOf[T]())
		}
		vendor = v
	}

	e := &Engine[T]{device: device, logger: o.logger}
	switch device {
	case tensor.CPU:
		e.cpu = cpu.New[T](o.par)
	case tensor.GPU:
		e.gpu = gpu.New[T](o.deviceThreads, vendor)
	case tensor.MIC:
		e.mic = mic.New[T](o.contexts)
	default:
		conv.Fatalf("new engine", conv.ErrInvalidConfig, "unknown device %s", device)
	}
	if vendor != nil && device != tensor.GPU {
		e.logger.Warn("vendor convolution ignored", "device", device, "vendor", vendor.Name())
	}

	e.logger.Info("convolution engine ready",
		"device", device,
		"dtype", tensor.DataTypeOf[T](),
		"workers", e.workers(),
		"algorithms", e.Algorithms())
	return e
}

// Device returns the device the engine runs on.
func (e *Engine[T]) Device() tensor.Device {
	return e.device
}

// Algorithms lists the algorithms this engine can run.
func (e *Engine[T]) Algorithms() []conv.Algorithm {
	return conv.AvailableAlgorithms(e.device, e.hasVendor())
}

func (e *Engine[T]) hasVendor() bool {
	return e.gpu != nil && e.gpu.HasVendor()
}

// workers is the fan-out the batched algorithm sizes its workspace for.
func (e *Engine[T]) workers() int {
	switch e.device {
	case tensor.CPU:
		return e.cpu.Workers()
	case tensor.MIC:
		return e.mic.Workers()
	default:
		return 1
	}
}

// ConvolutionForward computes output = input ⋆ filter.
func (e *Engine[T]) ConvolutionForward(input, filter, output, workspace *tensor.Buffer[T], cfg conv.Config) {
	e.run(conv.Forward, input, filter, output, workspace, cfg)
}

// ConvolutionBackwardData computes the input gradient from the output
// gradient. inputGrad is overwritten.
func (e *Engine[T]) ConvolutionBackwardData(outputGrad, filter, inputGrad, workspace *tensor.Buffer[T], cfg conv.Config) {
	e.run(conv.BackwardData, inputGrad, filter, outputGrad, workspace, cfg)
}

// ConvolutionUpdateFilter computes the filter gradient summed over the
// batch. filterGrad is overwritten.
func (e *Engine[T]) ConvolutionUpdateFilter(input, outputGrad, filterGrad, workspace *tensor.Buffer[T], cfg conv.Config) {
	e.run(conv.UpdateFilter, input, filterGrad, outputGrad, workspace, cfg)
}

// WorkspaceSize returns the workspace element count phase needs for the
// given shapes under cfg. It validates exactly like the call itself.
func (e *Engine[T]) WorkspaceSize(phase conv.Phase, input, filter, output tensor.Shape, cfg conv.Config) int {
	op := "workspace-size " + phase.String()
	p := conv.Decode(op, input, filter, output, cfg)
	conv.Select(e.device, phase, cfg, e.hasVendor())
	return conv.WorkspaceSize(cfg.Algorithm, p, e.workers())
}

// NewWorkspace allocates a workspace on the engine's device large enough
// for phase.
func (e *Engine[T]) NewWorkspace(phase conv.Phase, input, filter, output tensor.Shape, cfg conv.Config) *tensor.Buffer[T] {
	return tensor.NewWorkspace[T](e.device, e.WorkspaceSize(phase, input, filter, output, cfg))
}

// run executes phase. input, filter and output are named by their role in
// the forward pass.
func (e *Engine[T]) run(phase conv.Phase, input, filter, output, workspace *tensor.Buffer[T], cfg conv.Config) {
	op := phase.String()
	scope := perf.NewScope()

	p := conv.Decode(op, input.Shape(), filter.Shape(), output.Shape(), cfg)
	e.requireDevice(op, "input", input)
	e.requireDevice(op, "filter", filter)
	e.requireDevice(op, "output", output)
	s := conv.Select(e.device, phase, cfg, e.hasVendor())

	need := conv.WorkspaceSize(cfg.Algorithm, p, e.workers())
	var ws []T
	if workspace != nil {
		e.requireDevice(op, "workspace", workspace)
		ws = workspace.Data()
	}
	conv.RequireWorkspace(op, len(ws), need)

	ops := conv.Operands[T]{
		Input:     input.Data(),
		Filter:    filter.Data(),
		Output:    output.Data(),
		Workspace: ws,
	}
	switch e.device {
	case tensor.CPU:
		e.cpu.Run(s, p, cfg, ops, scope)
	case tensor.GPU:
		e.gpu.Run(s, p, cfg, ops, scope)
	case tensor.MIC:
		e.mic.Run(s, p, cfg, ops, scope)
	}

	e.logger.Debug("convolution",
		"device", e.device,
		"phase", phase,
		"algorithm", cfg.Algorithm,
		"problem", p,
		"gflop", float64(p.Flops())/1e9,
		"timing", scope)
}

func (e *Engine[T]) requireDevice(op, role string, b *tensor.Buffer[T]) {
	if b.Device() != e.device {
		conv.Fatalf(op, conv.ErrDeviceMismatch, "%s %s resides on %s, engine runs on %s", role, b.Shape(), b.Device(), e.device)
	}
}
