// Package pack implements the data-reshaping transform that turns a 2D
// convolution into a matrix multiplication.
//
// Unpack (im2col) copies every filter window of one input image into a row
// of a dense matrix; Pack (col2im) is its adjoint and accumulates matrix
// entries back onto the input pixels they were read from.
//
// Each direction has two kernels with identical results: a small kernel that
// maps one spatial position to one execution unit with channels mapped to
// blocks, and a general kernel that flattens (channel, row, column) into one
// index space walked by a grid-stride loop.
package pack

import "fmt"

// Small-kernel eligibility thresholds.
const (
	SmallKernelMaxChannels = 64
	SmallKernelMaxSpatial  = 256
)

// UseSmallKernel reports whether the per-position kernel can be used for a
// problem with the given channel count and spatial extent.
func UseSmallKernel(channels, spatial int) bool {
	return channels <= SmallKernelMaxChannels && spatial <= SmallKernelMaxSpatial
}

// Geometry describes one image of a convolution: C×H×W input, R×S filter
// windows, P×Q output positions.
type Geometry struct {
	C, H, W int
	R, S    int
	P, Q    int

	PadH, PadW       int
	StrideH, StrideW int
}

// InputSize is the element count of one C×H×W image.
func (g Geometry) InputSize() int {
	return g.C * g.H * g.W
}

// RowSize is C·R·S, the length of one unpacked window.
func (g Geometry) RowSize() int {
	return g.C * g.R * g.S
}

// UnpackSize is the element count of the unpacked matrix, C·R·S·P·Q.
func (g Geometry) UnpackSize() int {
	return g.RowSize() * g.P * g.Q
}

// String formats the geometry for diagnostics.
func (g Geometry) String() string {
	return fmt.Sprintf("C=%d H=%d W=%d R=%d S=%d P=%d Q=%d pad=(%d,%d) stride=(%d,%d)",
		g.C, g.H, g.W, g.R, g.S, g.P, g.Q, g.PadH, g.PadW, g.StrideH, g.StrideW)
}

func (g Geometry) check(op string, input, unpack int) {
	if g.StrideH < 1 || g.StrideW < 1 {
		panic(fmt.Sprintf("pack: %s: stride must be >= 1 (%s)", op, g))
	}
	if input < g.InputSize() {
		panic(fmt.Sprintf("pack: %s: input holds %d elements, need %d (%s)", op, input, g.InputSize(), g))
	}
	if unpack < g.UnpackSize() {
		panic(fmt.Sprintf("pack: %s: unpack holds %d elements, need %d (%s)", op, unpack, g.UnpackSize(), g))
	}
}
