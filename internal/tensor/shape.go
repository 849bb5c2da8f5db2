package tensor

import "fmt"

// Layout describes the semantic meaning of each axis of a Shape.
type Layout int

// Recognized layouts.
const (
	// Flat has no axis semantics; used for workspaces.
	Flat Layout = iota
	// BufferNCHW is batch, channel, height, width.
	BufferNCHW
	// BufferNHWC is batch, height, width, channel.
	BufferNHWC
	// PackCRSPQ is the unpacked matrix of one image: C·R·S by P·Q, stored so that
	// every output position (p, q) owns a contiguous run of C·R·S elements.
	PackCRSPQ
	// PackPQCRS is the transpose of PackCRSPQ.
	PackPQCRS
	// FilterKCRS is output-channel, input-channel, filter row, filter column.
	FilterKCRS
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case Flat:
		return "flat"
	case BufferNCHW:
		return "NCHW"
	case BufferNHWC:
		return "NHWC"
	case PackCRSPQ:
		return "CRSPQ"
	case PackPQCRS:
		return "PQCRS"
	case FilterKCRS:
		return "KCRS"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// IsBuffer reports whether l is one of the 4-D activation layouts.
func (l Layout) IsBuffer() bool {
	return l == BufferNCHW || l == BufferNHWC
}

// IsFilter reports whether l is a filter layout.
func (l Layout) IsFilter() bool {
	return l == FilterKCRS
}

// Rank is the axis count of every convolution-participating tensor.
const Rank = 4

// Shape is an immutable set of extents tagged with a Layout.
//
// Convolution tensors always have 4 axes. Flat shapes (workspaces) keep
// their element count in the first extent and 1 elsewhere.
type Shape struct {
	dims   [Rank]int
	layout Layout
}

// NewShape creates a 4-D shape with the given layout.
// Panics if any extent is negative.
func NewShape(layout Layout, d0, d1, d2, d3 int) Shape {
	s := Shape{dims: [Rank]int{d0, d1, d2, d3}, layout: layout}
	for i, d := range s.dims {
		if d < 0 {
			panic(fmt.Sprintf("tensor: negative extent %d at axis %d of %s shape", d, i, layout))
		}
	}
	return s
}

// NCHW is shorthand for NewShape(BufferNCHW, n, c, h, w).
func NCHW(n, c, h, w int) Shape {
	return NewShape(BufferNCHW, n, c, h, w)
}

// KCRS is shorthand for NewShape(FilterKCRS, k, c, r, s).
func KCRS(k, c, r, s int) Shape {
	return NewShape(FilterKCRS, k, c, r, s)
}

// FlatShape returns a layout-free shape holding n elements.
func FlatShape(n int) Shape {
	return NewShape(Flat, n, 1, 1, 1)
}

// Layout returns the axis semantics.
func (s Shape) Layout() Layout {
	return s.layout
}

// Dims returns a copy of the extents.
func (s Shape) Dims() [Rank]int {
	return s.dims
}

// At returns the extent of axis i.
func (s Shape) At(i int) int {
	return s.dims[i]
}

// NumElements returns the product of the extents.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s.dims {
		n *= d
	}
	return n
}

// Equal checks extents and layout.
func (s Shape) Equal(other Shape) bool {
	return s.layout == other.layout && s.dims == other.dims
}

// String formats the shape as layout[d0 d1 d2 d3].
func (s Shape) String() string {
	if s.layout == Flat {
		return fmt.Sprintf("flat[%d]", s.dims[0])
	}
	return fmt.Sprintf("%s%v", s.layout, s.dims)
}

// Buffer2D decodes an activation shape into batch, channel, height and width
// regardless of its axis order.
// Panics if the shape does not carry a buffer layout.
func (s Shape) Buffer2D() (n, c, h, w int) {
	switch s.layout {
	case BufferNCHW:
		return s.dims[0], s.dims[1], s.dims[2], s.dims[3]
	case BufferNHWC:
		return s.dims[0], s.dims[3], s.dims[1], s.dims[2]
	default:
		panic(fmt.Sprintf("tensor: %s is not a buffer layout", s.layout))
	}
}

// Filter2D decodes a filter shape into output channel, input channel,
// filter rows and filter columns.
// Panics if the shape does not carry a filter layout.
func (s Shape) Filter2D() (k, c, r, ss int) {
	if s.layout != FilterKCRS {
		panic(fmt.Sprintf("tensor: %s is not a filter layout", s.layout))
	}
	return s.dims[0], s.dims[1], s.dims[2], s.dims[3]
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() [Rank]int {
	var strides [Rank]int
	strides[Rank-1] = 1
	for i := Rank - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s.dims[i+1]
	}
	return strides
}
