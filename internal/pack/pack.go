package pack

import (
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Pack2D folds an im2col matrix back onto one C×H×W image: every input
// element becomes the sum of all unpacked entries read from it. The image is
// overwritten, not accumulated into.
//
// The produced buffer is declared as BufferNCHW.
func Pack2D[T tensor.Float](unpack, input []T, g Geometry, threads int) tensor.Layout {
	g.check("pack", len(input), len(unpack))
	if UseSmallKernel(g.C, g.H*g.W) {
		packSmall(unpack, input, g)
	} else {
		packGeneral(unpack, input, g, threads)
	}
	return tensor.BufferNCHW
}

// packSmall launches one block per channel and one thread per input pixel.
func packSmall[T tensor.Float](unpack, input []T, g Geometry) {
	parallel.LaunchBlocks(g.C, parallel.Dim2{X: g.H, Y: g.W}, func(c, h, w int) {
		packPixel(unpack, input, g, c, h, w)
	})
}

// packGeneral walks the flattened (c, h, w) index space with a grid-stride loop.
func packGeneral[T tensor.Float](unpack, input []T, g Geometry, threads int) {
	parallel.GridStride(g.C*g.H*g.W, threads, func(index int) {
		channelHeight := index / g.W
		h := channelHeight % g.H
		w := index % g.W
		c := channelHeight / g.H
		packPixel(unpack, input, g, c, h, w)
	})
}

// WindowRange returns the half-open range of output indices along one axis
// whose window covers input coordinate i.
//
//	start = i+pad < filter ? 0 : (i+pad-filter)/stride + 1
//	end   = min((i+pad)/stride + 1, out)
func WindowRange(i, pad, filter, stride, out int) (start, end int) {
	padded := i + pad
	if padded >= filter {
		start = (padded-filter)/stride + 1
	}
	end = min(padded/stride+1, out)
	return start, end
}

// packPixel sums every unpacked entry read from input element (c, h, w).
func packPixel[T tensor.Float](unpack, input []T, g Geometry, c, h, w int) {
	hPadded := h + g.PadH
	wPadded := w + g.PadW
	pStart, pEnd := WindowRange(h, g.PadH, g.R, g.StrideH, g.P)
	qStart, qEnd := WindowRange(w, g.PadW, g.S, g.StrideW, g.Q)
	rowSize := g.RowSize()
	channel := unpack[c*g.R*g.S:]

	var sum T
	for p := pStart; p < pEnd; p++ {
		r := hPadded - p*g.StrideH
		for q := qStart; q < qEnd; q++ {
			s := wPadded - q*g.StrideW
			sum += channel[(p*g.Q+q)*rowSize+r*g.S+s]
		}
	}
	input[(c*g.H+h)*g.W+w] = sum
}
