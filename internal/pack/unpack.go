package pack

import (
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Unpack2D writes the im2col matrix of one C×H×W image into unpack.
//
// Row (p·Q + q) holds the window anchored at (p·StrideH − PadH, q·StrideW − PadW),
// ordered channel, filter row, filter column. Window cells outside the image
// are written as 0. threads bounds the general kernel's worker count.
//
// The produced matrix is declared as PackCRSPQ.
func Unpack2D[T tensor.Float](input, unpack []T, g Geometry, threads int) tensor.Layout {
	g.check("unpack", len(input), len(unpack))
	if UseSmallKernel(g.C, g.P*g.Q) {
		unpackSmall(input, unpack, g)
	} else {
		unpackGeneral(input, unpack, g, threads)
	}
	return tensor.PackCRSPQ
}

// unpackSmall launches one block per channel and one thread per output position.
func unpackSmall[T tensor.Float](input, unpack []T, g Geometry) {
	parallel.LaunchBlocks(g.C, parallel.Dim2{X: g.P, Y: g.Q}, func(c, p, q int) {
		unpackWindow(input, unpack, g, c, p, q)
	})
}

// unpackGeneral walks the flattened (c, p, q) index space with a grid-stride loop.
func unpackGeneral[T tensor.Float](input, unpack []T, g Geometry, threads int) {
	parallel.GridStride(g.C*g.P*g.Q, threads, func(index int) {
		channelOutput := index / g.Q
		p := channelOutput % g.P
		q := index % g.Q
		c := channelOutput / g.P
		unpackWindow(input, unpack, g, c, p, q)
	})
}

// unpackWindow copies the R×S window of channel c feeding output (p, q).
func unpackWindow[T tensor.Float](input, unpack []T, g Geometry, c, p, q int) {
	rs := g.R * g.S
	hOffset := p*g.StrideH - g.PadH
	wOffset := q*g.StrideW - g.PadW
	plane := input[c*g.H*g.W : (c+1)*g.H*g.W]
	start := (p*g.Q+q)*g.RowSize() + c*rs
	dst := unpack[start : start+rs]

	idx := 0
	for r := 0; r < g.R; r++ {
		h := hOffset + r
		if h < 0 || h >= g.H {
			clear(dst[idx : idx+g.S])
			idx += g.S
			continue
		}
		row := plane[h*g.W : (h+1)*g.W]
		for s := 0; s < g.S; s++ {
			w := wOffset + s
			if w < 0 || w >= g.W {
				dst[idx] = 0
			} else {
				dst[idx] = row[w]
			}
			idx++
		}
	}
}
