package gpu

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// handle returns the vendor plan for (p, cfg), preparing it on first use.
func (b *Backend[T]) handle(op string, p conv.Problem, cfg conv.Config) conv.VendorHandle {
	key := handleKey{problem: p, config: cfg}
	if h, ok := b.handles[key]; ok {
		return h
	}
	h, err := b.vendor.Prepare(p, cfg)
	if err != nil {
		conv.Fatalf(op, conv.ErrVendor, "%s prepare %s: %v", b.vendor.Name(), p, err)
	}
	b.handles[key] = h
	return h
}

// Handles returns the number of cached vendor plans.
func (b *Backend[T]) Handles() int {
	return len(b.handles)
}

// runVendor marshals the operands into the vendor layout inside the
// workspace (input, output, then filter), executes the vendor routine and
// copies the produced tensor back.
func (b *Backend[T]) runVendor(phase conv.Phase, p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	op := "gpu vendor " + phase.String()
	if b.vendor == nil {
		conv.Fatalf(op, conv.ErrUnsupportedAlgorithm, "no vendor registered")
	}
	layout := b.vendor.Layout()
	if !layout.IsBuffer() {
		conv.Fatalf(op, conv.ErrLayout, "%s declares %s, want a buffer layout", b.vendor.Name(), layout)
	}
	h := b.handle(op, p, cfg)

	inLen, outLen := p.N*p.InputImage(), p.N*p.OutputImage()
	ws := ops.Workspace
	in := ws[:inLen]
	out := ws[inLen : inLen+outLen]
	filter := ws[inLen+outLen : inLen+outLen+p.FilterSize()]
	inShape := tensor.NCHW(p.N, p.C, p.H, p.W)
	outShape := tensor.NCHW(p.N, p.K, p.P, p.Q)

	stop := scope.Measure("marshal")
	switch phase {
	case conv.Forward:
		tensor.ConvertLayout(in, layout, ops.Input, inShape)
		copy(filter, ops.Filter)
	case conv.BackwardData:
		tensor.ConvertLayout(out, layout, ops.Output, outShape)
		copy(filter, ops.Filter)
	case conv.UpdateFilter:
		tensor.ConvertLayout(in, layout, ops.Input, inShape)
		tensor.ConvertLayout(out, layout, ops.Output, outShape)
	}
	stop()

	stop = scope.Measure("vendor")
	err := b.vendor.Execute(h, phase, in, filter, out)
	stop()
	if err != nil {
		conv.Fatalf(op, conv.ErrVendor, "%s execute %s: %v", b.vendor.Name(), p, err)
	}

	defer scope.Measure("unmarshal")()
	switch phase {
	case conv.Forward:
		restore(ops.Output, out, layout, outShape)
	case conv.BackwardData:
		restore(ops.Input, in, layout, inShape)
	case conv.UpdateFilter:
		copy(ops.Filter, filter)
	}
}

// restore converts a vendor-layout tensor back to NCHW.
func restore[T tensor.Float](dst, src []T, layout tensor.Layout, nchw tensor.Shape) {
	if layout == tensor.BufferNCHW {
		copy(dst, src)
		return
	}
	n, c, h, w := nchw.Buffer2D()
	tensor.NHWCToNCHW(dst, src, n, c, h, w)
}
