// Package blas provides the matrix-multiply capability consumed by the
// convolution strategies: a dense, real-valued, row-major GEMM
//
//	C = alpha * op(A) * op(B) + beta * C
//
// where op(X) is X or Xᵀ. Two implementations exist: Gonum, which forwards
// to gonum's BLAS for host memory, and Tiled, a parallel tiled kernel that
// plays the role of the device-resident GEMM on accelerator and coprocessor
// targets.
package blas

import (
	"fmt"

	"github.com/born-ml/blitz/internal/tensor"
)

// Transpose selects op(X) for a GEMM operand.
type Transpose bool

// Transposition flags.
const (
	NoTrans Transpose = false
	Trans   Transpose = true
)

// String returns "N" or "T" as in BLAS conventions.
func (t Transpose) String() string {
	if t {
		return "T"
	}
	return "N"
}

// Multiplier is the matrix-multiply capability.
//
// op(A) is m×k, op(B) is k×n and C is m×n. lda, ldb and ldc are the row
// strides of the stored (untransposed) matrices.
type Multiplier[T tensor.Float] interface {
	Name() string
	Gemm(tA, tB Transpose, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int)
}

// storedDims returns the stored rows and cols of an operand whose op() is rows×cols.
func storedDims(t Transpose, rows, cols int) (int, int) {
	if t {
		return cols, rows
	}
	return rows, cols
}

// checkOperand panics when an operand slice cannot hold its matrix.
func checkOperand(name string, data, rows, cols, ld int) {
	if rows == 0 || cols == 0 {
		return
	}
	if ld < cols {
		panic(fmt.Sprintf("blas: %s leading dimension %d < %d columns", name, ld, cols))
	}
	if need := (rows-1)*ld + cols; data < need {
		panic(fmt.Sprintf("blas: %s holds %d elements, %dx%d (ld %d) needs %d", name, data, rows, cols, ld, need))
	}
}

func checkGemm(tA, tB Transpose, m, n, k, la, lda, lb, ldb, lc, ldc int) {
	ar, ac := storedDims(tA, m, k)
	br, bc := storedDims(tB, k, n)
	checkOperand("A", la, ar, ac, lda)
	checkOperand("B", lb, br, bc, ldb)
	checkOperand("C", lc, m, n, ldc)
}
