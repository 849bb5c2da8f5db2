package conv

import (
	"fmt"

	"github.com/born-ml/blitz/internal/pack"
	"github.com/born-ml/blitz/internal/tensor"
)

// OutputExtent is the standard output extent along one axis:
//
//	out = (in + 2*pad - filter) / stride + 1
//
// using truncating integer division. The result may be non-positive for
// impossible configurations; Decode rejects those.
func OutputExtent(in, filter, pad, stride int) int {
	return (in+2*pad-filter)/stride + 1
}

// PaddedOutputExtent is the output extent of the direct algorithm, which
// pads the output instead of the input:
//
//	out = (in - filter) / stride + 1 + 2*pad
func PaddedOutputExtent(in, filter, pad, stride int) int {
	return (in-filter)/stride + 1 + 2*pad
}

// Problem is the decoded extent set of one convolution: N images of C×H×W,
// K filters of C×R×S, N outputs of K×P×Q.
type Problem struct {
	N, C, H, W int
	K, R, S    int
	P, Q       int
}

// Decode extracts the problem extents from the input, filter and output
// shapes and validates every cross-tensor invariant for cfg. The output
// extent formula depends on cfg.Algorithm. Violations panic with an *Error.
func Decode(op string, input, filter, output tensor.Shape, cfg Config) Problem {
	if err := cfg.Validate(); err != nil {
		panic(&Error{Op: op, Err: err})
	}
	if input.Layout() != tensor.BufferNCHW {
		Fatalf(op, ErrLayout, "input must be %s, got %s", tensor.BufferNCHW, input)
	}
	if output.Layout() != tensor.BufferNCHW {
		Fatalf(op, ErrLayout, "output must be %s, got %s", tensor.BufferNCHW, output)
	}
	if filter.Layout() != tensor.FilterKCRS {
		Fatalf(op, ErrLayout, "filter must be %s, got %s", tensor.FilterKCRS, filter)
	}

	var p Problem
	p.N, p.C, p.H, p.W = input.Buffer2D()
	k, fc, r, s := filter.Filter2D()
	p.K, p.R, p.S = k, r, s
	on, ok, oh, ow := output.Buffer2D()

	if p.N != on {
		Fatalf(op, ErrShapeMismatch, "input batch %d != output batch %d", p.N, on)
	}
	if p.C != fc {
		Fatalf(op, ErrShapeMismatch, "input channels %d != filter input channels %d", p.C, fc)
	}
	if ok != p.K {
		Fatalf(op, ErrShapeMismatch, "output channels %d != filter output channels %d", ok, p.K)
	}
	if p.R > p.H+2*cfg.PadH || p.S > p.W+2*cfg.PadW {
		Fatalf(op, ErrInvalidConfig, "filter %dx%d larger than padded input %dx%d",
			p.R, p.S, p.H+2*cfg.PadH, p.W+2*cfg.PadW)
	}

	p.P, p.Q = ExpectedOutput(p.H, p.W, p.R, p.S, cfg)
	if p.P <= 0 || p.Q <= 0 {
		Fatalf(op, ErrInvalidConfig, "output extent %dx%d is not positive for input %dx%d, filter %dx%d, %s",
			p.P, p.Q, p.H, p.W, p.R, p.S, cfg)
	}
	if oh != p.P || ow != p.Q {
		Fatalf(op, ErrShapeMismatch, "output extent %dx%d, expected %dx%d for input %dx%d, filter %dx%d, %s",
			oh, ow, p.P, p.Q, p.H, p.W, p.R, p.S, cfg)
	}
	return p
}

// ExpectedOutput returns the output extents the algorithm of cfg produces.
func ExpectedOutput(h, w, r, s int, cfg Config) (p, q int) {
	if cfg.Algorithm == AlgorithmDirect {
		if r > h || s > w {
			return 0, 0
		}
		return PaddedOutputExtent(h, r, cfg.PadH, cfg.StrideH), PaddedOutputExtent(w, s, cfg.PadW, cfg.StrideW)
	}
	return OutputExtent(h, r, cfg.PadH, cfg.StrideH), OutputExtent(w, s, cfg.PadW, cfg.StrideW)
}

// OutputShape returns the NCHW output shape for input and filter under cfg.
// Panics with an *Error when the configuration yields no output.
func OutputShape(input, filter tensor.Shape, cfg Config) tensor.Shape {
	if err := cfg.Validate(); err != nil {
		panic(&Error{Op: "output-shape", Err: err})
	}
	n, _, h, w := input.Buffer2D()
	k, _, r, s := filter.Filter2D()
	p, q := ExpectedOutput(h, w, r, s, cfg)
	if p <= 0 || q <= 0 {
		Fatalf("output-shape", ErrInvalidConfig, "no output for input %s, filter %s, %s", input, filter, cfg)
	}
	return tensor.NCHW(n, k, p, q)
}

// Geometry returns the per-image pack geometry.
func (p Problem) Geometry(cfg Config) pack.Geometry {
	return pack.Geometry{
		C: p.C, H: p.H, W: p.W,
		R: p.R, S: p.S,
		P: p.P, Q: p.Q,
		PadH: cfg.PadH, PadW: cfg.PadW,
		StrideH: cfg.StrideH, StrideW: cfg.StrideW,
	}
}

// CRS is the length of one unpacked window.
func (p Problem) CRS() int { return p.C * p.R * p.S }

// PQ is the number of output positions per image.
func (p Problem) PQ() int { return p.P * p.Q }

// InputImage is the element count of one input image.
func (p Problem) InputImage() int { return p.C * p.H * p.W }

// OutputImage is the element count of one output image.
func (p Problem) OutputImage() int { return p.K * p.P * p.Q }

// FilterSize is the element count of the filter bank.
func (p Problem) FilterSize() int { return p.K * p.C * p.R * p.S }

// UnpackSize is the element count of one unpacked image.
func (p Problem) UnpackSize() int { return p.CRS() * p.PQ() }

// Flops is the multiply-add count of one pass, 2·N·K·P·Q·C·R·S.
func (p Problem) Flops() int64 {
	return 2 * int64(p.N) * int64(p.K) * int64(p.PQ()) * int64(p.CRS())
}

func (p Problem) String() string {
	return fmt.Sprintf("N=%d C=%d H=%d W=%d K=%d R=%d S=%d P=%d Q=%d",
		p.N, p.C, p.H, p.W, p.K, p.R, p.S, p.P, p.Q)
}

// Operands are the element slices of one call, named by their role in the
// forward pass. BackwardData reads Output and writes Input; UpdateFilter
// reads Input and Output and writes Filter.
type Operands[T tensor.Float] struct {
	Input, Filter, Output, Workspace []T
}

// Image returns the input and output slices of image n.
func (o Operands[T]) Image(p Problem, n int) (input, output []T) {
	in, out := p.InputImage(), p.OutputImage()
	return o.Input[n*in : (n+1)*in], o.Output[n*out : (n+1)*out]
}
