package blas

import (
	gonumblas "gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/blitz/internal/tensor"
)

// Gonum runs GEMM through gonum's BLAS (Sgemm / Dgemm).
type Gonum[T tensor.Float] struct{}

// Name implements Multiplier.
func (Gonum[T]) Name() string {
	return "gonum"
}

// Gemm implements Multiplier.
func (Gonum[T]) Gemm(tA, tB Transpose, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int) {
	if m == 0 || n == 0 {
		return
	}
	checkGemm(tA, tB, m, n, k, len(a), lda, len(b), ldb, len(c), ldc)
	ar, ac := storedDims(tA, m, k)
	br, bc := storedDims(tB, k, n)

	switch a := any(a).(type) {
	case []float32:
		blas32.Gemm(tA.gonum(), tB.gonum(), float32(alpha),
			blas32.General{Rows: ar, Cols: ac, Stride: lda, Data: a},
			blas32.General{Rows: br, Cols: bc, Stride: ldb, Data: any(b).([]float32)},
			float32(beta),
			blas32.General{Rows: m, Cols: n, Stride: ldc, Data: any(c).([]float32)})
	case []float64:
		blas64.Gemm(tA.gonum(), tB.gonum(), float64(alpha),
			blas64.General{Rows: ar, Cols: ac, Stride: lda, Data: a},
			blas64.General{Rows: br, Cols: bc, Stride: ldb, Data: any(b).([]float64)},
			float64(beta),
			blas64.General{Rows: m, Cols: n, Stride: ldc, Data: any(c).([]float64)})
	}
}

func (t Transpose) gonum() gonumblas.Transpose {
	if t {
		return gonumblas.Trans
	}
	return gonumblas.NoTrans
}
