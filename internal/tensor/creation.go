package tensor

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats/scalar"
)

// Fill sets every element of b to v.
func Fill[T Float](b *Buffer[T], v T) {
	data := b.Data()
	for i := range data {
		data[i] = v
	}
}

// FillUniform draws every element of b uniformly from [lo, hi).
func FillUniform[T Float](b *Buffer[T], lo, hi float64, rng *rand.Rand) {
	data := b.Data()
	for i := range data {
		data[i] = T(lo + (hi-lo)*rng.Float64())
	}
}

// FromSlice creates a buffer on device holding a copy of values.
// Panics if len(values) differs from the shape's element count.
func FromSlice[T Float](device Device, shape Shape, values []T) *Buffer[T] {
	b := NewBuffer[T](device, shape)
	if len(values) != b.Len() {
		panic("tensor: FromSlice length does not match shape " + shape.String())
	}
	copy(b.data, values)
	return b
}

// MaxAbsDiff returns the largest element-wise absolute difference and the
// index where it occurs. Slices must have equal length.
func MaxAbsDiff[T Float](a, b []T) (float64, int) {
	if len(a) != len(b) {
		panic("tensor: MaxAbsDiff length mismatch")
	}
	worst, at := 0.0, -1
	for i := range a {
		d := math.Abs(float64(a[i]) - float64(b[i]))
		if d > worst || at < 0 {
			worst, at = d, i
		}
	}
	return worst, at
}

// AllClose reports whether every pair of elements agrees within the
// absolute tolerance tol.
func AllClose[T Float](a, b []T, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !scalar.EqualWithinAbs(float64(a[i]), float64(b[i]), tol) {
			return false
		}
	}
	return true
}

// Mismatches lists the indices where a and b differ by more than tol.
func Mismatches[T Float](a, b []T, tol float64) []int {
	var idx []int
	for i := range a {
		if !scalar.EqualWithinAbs(float64(a[i]), float64(b[i]), tol) {
			idx = append(idx, i)
		}
	}
	return idx
}
