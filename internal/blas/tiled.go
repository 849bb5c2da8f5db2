package blas

import (
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// tileN is the width of the C row segment kept hot while the reduction
// dimension is swept.
const tileN = 256

// Tiled is a row-parallel GEMM that sweeps C rows in column tiles. Rows of C
// are distributed across workers, so every worker writes a disjoint region.
type Tiled[T tensor.Float] struct {
	Config parallel.Config
}

// NewTiled creates a tiled multiplier that fans out over cfg.
func NewTiled[T tensor.Float](cfg parallel.Config) Tiled[T] {
	// Rows are coarse work items; do not require a large chunk per goroutine.
	cfg.MinChunkSize = 1
	return Tiled[T]{Config: cfg}
}

// Name implements Multiplier.
func (Tiled[T]) Name() string {
	return "tiled"
}

// Gemm implements Multiplier.
func (t Tiled[T]) Gemm(tA, tB Transpose, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int) {
	if m == 0 || n == 0 {
		return
	}
	checkGemm(tA, tB, m, n, k, len(a), lda, len(b), ldb, len(c), ldc)

	parallel.For(m, func(i int) {
		row := c[i*ldc : i*ldc+n]
		if beta == 0 {
			clear(row)
		} else if beta != 1 {
			for j := range row {
				row[j] *= beta
			}
		}
		if tB {
			gemmRowTransB(row, tA, i, n, k, alpha, a, lda, b, ldb)
		} else {
			gemmRow(row, tA, i, n, k, alpha, a, lda, b, ldb)
		}
	}, t.Config)
}

// opA returns op(A)[i, p].
func opA[T tensor.Float](tA Transpose, a []T, lda, i, p int) T {
	if tA {
		return a[p*lda+i]
	}
	return a[i*lda+p]
}

// gemmRow accumulates row i of alpha*op(A)*B where B is stored k×n.
func gemmRow[T tensor.Float](row []T, tA Transpose, i, n, k int, alpha T, a []T, lda int, b []T, ldb int) {
	for j0 := 0; j0 < n; j0 += tileN {
		j1 := min(j0+tileN, n)
		seg := row[j0:j1]
		for p := 0; p < k; p++ {
			aip := alpha * opA(tA, a, lda, i, p)
			bSeg := b[p*ldb+j0 : p*ldb+j1]
			for j, bv := range bSeg {
				seg[j] += aip * bv
			}
		}
	}
}

// gemmRowTransB accumulates row i of alpha*op(A)*Bᵀ where B is stored n×k,
// as one dot product per output element.
func gemmRowTransB[T tensor.Float](row []T, tA Transpose, i, n, k int, alpha T, a []T, lda int, b []T, ldb int) {
	var aRow []T
	if !tA {
		aRow = a[i*lda : i*lda+k]
	}
	for j := 0; j < n; j++ {
		bRow := b[j*ldb : j*ldb+k]
		var sum T
		if aRow != nil {
			for p, bv := range bRow {
				sum += aRow[p] * bv
			}
		} else {
			for p, bv := range bRow {
				sum += a[p*lda+i] * bv
			}
		}
		row[j] += alpha * sum
	}
}
