package blas

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/blitz/internal/parallel"
)

// naiveGemm is the reference: C = alpha*op(A)*op(B) + beta*C.
func naiveGemm(tA, tB Transpose, m, n, k int, alpha float64, a []float64, lda int, b []float64, ldb int, beta float64, c []float64, ldc int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for p := 0; p < k; p++ {
				av := a[i*lda+p]
				if tA {
					av = a[p*lda+i]
				}
				bv := b[p*ldb+j]
				if tB {
					bv = b[j*ldb+p]
				}
				sum += av * bv
			}
			c[i*ldc+j] = alpha*sum + beta*c[i*ldc+j]
		}
	}
}

func randSlice(rng *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = rng.Float64()*2 - 1
	}
	return s
}

func TestMultipliers_MatchReference(t *testing.T) {
	multipliers := []Multiplier[float64]{
		Gonum[float64]{},
		NewTiled[float64](parallel.DefaultConfig()),
		NewTiled[float64](parallel.Sequential()),
	}
	rng := rand.New(rand.NewSource(7))
	m, n, k := 5, 300, 27

	for _, mul := range multipliers {
		for _, tA := range []Transpose{NoTrans, Trans} {
			for _, tB := range []Transpose{NoTrans, Trans} {
				name := mul.Name() + "/" + tA.String() + tB.String()
				t.Run(name, func(t *testing.T) {
					ar, ac := storedDims(tA, m, k)
					br, bc := storedDims(tB, k, n)
					a := randSlice(rng, ar*ac)
					b := randSlice(rng, br*bc)
					c := randSlice(rng, m*n)
					want := append([]float64(nil), c...)

					naiveGemm(tA, tB, m, n, k, 0.5, a, ac, b, bc, 2, want, n)
					mul.Gemm(tA, tB, m, n, k, 0.5, a, ac, b, bc, 2, c, n)

					require.Len(t, c, len(want))
					assert.InDeltaSlice(t, want, c, 1e-9)
				})
			}
		}
	}
}

func TestMultipliers_BetaZeroIgnoresGarbage(t *testing.T) {
	for _, mul := range []Multiplier[float32]{Gonum[float32]{}, NewTiled[float32](parallel.DefaultConfig())} {
		t.Run(mul.Name(), func(t *testing.T) {
			a := []float32{1, 2, 3, 4} // 2x2
			b := []float32{1, 0, 0, 1} // identity
			c := []float32{99, 99, 99, 99}
			mul.Gemm(NoTrans, NoTrans, 2, 2, 2, 1, a, 2, b, 2, 0, c, 2)
			assert.Equal(t, []float32{1, 2, 3, 4}, c)
		})
	}
}

func TestGemm_ShortOperandPanics(t *testing.T) {
	c := make([]float32, 4)
	assert.Panics(t, func() {
		NewTiled[float32](parallel.Sequential()).Gemm(NoTrans, NoTrans, 2, 2, 2, 1, []float32{1}, 2, []float32{1, 2, 3, 4}, 2, 0, c, 2)
	})
}

func BenchmarkGemm(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	m, n, k := 64, 784, 576
	a32 := make([]float32, m*k)
	b32 := make([]float32, n*k)
	for i := range a32 {
		a32[i] = rng.Float32()
	}
	for i := range b32 {
		b32[i] = rng.Float32()
	}
	c32 := make([]float32, m*n)

	for _, mul := range []Multiplier[float32]{Gonum[float32]{}, NewTiled[float32](parallel.DefaultConfig())} {
		b.Run(mul.Name(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				mul.Gemm(NoTrans, Trans, m, n, k, 1, a32, k, b32, k, 0, c32, n)
			}
		})
	}
}
