// Package direct implements fused convolution kernels that read input
// windows in place instead of materializing the unpacked matrix.
//
// Padding is only supported on the output side: the forward kernel writes
// the valid convolution into the interior of an output with a zero border
// of width PadH×PadW. Backward kernels require zero padding.
//
// Every kernel works on a half-open range of an independent axis so callers
// can split one call across workers that write disjoint regions.
package direct

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/pack"
	"github.com/born-ml/blitz/internal/tensor"
)

// DefaultLanes is the column block width used when the caller has no
// vector width of its own.
const DefaultLanes = 8

// validExtent returns the output extent that excludes the zero border.
func validExtent(p conv.Problem, cfg conv.Config) (pv, qv int) {
	return p.P - 2*cfg.PadH, p.Q - 2*cfg.PadW
}

// Forward computes output channels [k0, k1) of one image. x is C×H×W,
// f is K×C×R×S and y is K×P×Q; y's planes in the range are overwritten.
// Output columns are produced in blocks of lanes.
func Forward[T tensor.Float](x, f, y []T, p conv.Problem, cfg conv.Config, k0, k1, lanes int) {
	lanes = max(lanes, 1)
	pv, qv := validExtent(p, cfg)
	pq := p.PQ()
	crs := p.CRS()

	for k := k0; k < k1; k++ {
		plane := y[k*pq : (k+1)*pq]
		clear(plane)
		fk := f[k*crs : (k+1)*crs]
		for op := 0; op < pv; op++ {
			start := (op+cfg.PadH)*p.Q + cfg.PadW
			row := plane[start : start+qv]
			for q0 := 0; q0 < qv; q0 += lanes {
				acc := row[q0:min(q0+lanes, qv)]
				forwardBlock(acc, x, fk, p, cfg, op, q0)
			}
		}
	}
}

// forwardBlock accumulates len(acc) adjacent outputs of row op starting at
// column q0.
func forwardBlock[T tensor.Float](acc, x, fk []T, p conv.Problem, cfg conv.Config, op, q0 int) {
	sw := cfg.StrideW
	for c := 0; c < p.C; c++ {
		for r := 0; r < p.R; r++ {
			h := op*cfg.StrideH + r
			xrow := x[(c*p.H+h)*p.W : (c*p.H+h+1)*p.W]
			frow := fk[(c*p.R+r)*p.S : (c*p.R+r+1)*p.S]
			for s, wv := range frow {
				base := q0*sw + s
				for l := range acc {
					acc[l] += wv * xrow[base+l*sw]
				}
			}
		}
	}
}

// BackwardData computes input-gradient channels [c0, c1) of one image from
// the K×P×Q output gradient g. dx is C×H×W and is overwritten in the range.
// Panics unless cfg has zero padding.
func BackwardData[T tensor.Float](g, f, dx []T, p conv.Problem, cfg conv.Config, c0, c1 int) {
	conv.RequireDirect(conv.BackwardData, cfg)
	pq := p.PQ()
	rs := p.R * p.S

	for c := c0; c < c1; c++ {
		for h := 0; h < p.H; h++ {
			pStart, pEnd := pack.WindowRange(h, 0, p.R, cfg.StrideH, p.P)
			for w := 0; w < p.W; w++ {
				qStart, qEnd := pack.WindowRange(w, 0, p.S, cfg.StrideW, p.Q)
				var sum T
				for k := 0; k < p.K; k++ {
					gk := g[k*pq : (k+1)*pq]
					fkc := f[(k*p.C+c)*rs : (k*p.C+c+1)*rs]
					for op := pStart; op < pEnd; op++ {
						r := h - op*cfg.StrideH
						for oq := qStart; oq < qEnd; oq++ {
							s := w - oq*cfg.StrideW
							sum += gk[op*p.Q+oq] * fkc[r*p.S+s]
						}
					}
				}
				dx[(c*p.H+h)*p.W+w] = sum
			}
		}
	}
}

// UpdateFilter computes filter-gradient rows [k0, k1) over all N images of
// x (N×C×H×W) and g (N×K×P×Q). df is K×C×R×S and is overwritten in the
// range. Panics unless cfg has zero padding.
func UpdateFilter[T tensor.Float](x, g, df []T, p conv.Problem, cfg conv.Config, k0, k1 int) {
	conv.RequireDirect(conv.UpdateFilter, cfg)
	crs := p.CRS()
	chw := p.InputImage()
	kpq := p.OutputImage()
	pq := p.PQ()

	for k := k0; k < k1; k++ {
		dfk := df[k*crs : (k+1)*crs]
		clear(dfk)
		for n := 0; n < p.N; n++ {
			xn := x[n*chw : (n+1)*chw]
			gk := g[n*kpq+k*pq : n*kpq+(k+1)*pq]
			for c := 0; c < p.C; c++ {
				for r := 0; r < p.R; r++ {
					for s := 0; s < p.S; s++ {
						var sum T
						for op := 0; op < p.P; op++ {
							grow := gk[op*p.Q : (op+1)*p.Q]
							xrow := xn[(c*p.H+op*cfg.StrideH+r)*p.W+s:]
							for oq, gv := range grow {
								sum += gv * xrow[oq*cfg.StrideW]
							}
						}
						dfk[(c*p.R+r)*p.S+s] += sum
					}
				}
			}
		}
	}
}
