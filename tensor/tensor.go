// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/blitz/internal/tensor"
)

// Type aliases for public API

// Float is the constraint for element types: float32 or float64.
type Float = tensor.Float

// DataType represents the element type of a buffer at runtime.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device identifies an execution target.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
	GPU Device = tensor.GPU
	MIC Device = tensor.MIC
)

// Layout is the axis semantics of a Shape.
type Layout = tensor.Layout

// Layout constants.
const (
	Flat       Layout = tensor.Flat
	BufferNCHW Layout = tensor.BufferNCHW
	BufferNHWC Layout = tensor.BufferNHWC
	PackCRSPQ  Layout = tensor.PackCRSPQ
	PackPQCRS  Layout = tensor.PackPQCRS
	FilterKCRS Layout = tensor.FilterKCRS
)

// Shape is an immutable 4-axis extent set tagged with a Layout.
type Shape = tensor.Shape

// Buffer is an owned, contiguous block of elements on one device.
type Buffer[T Float] = tensor.Buffer[T]

// Direction of a buffer transfer.
type Direction = tensor.Direction

// ParseDevice parses "cpu", "gpu" or "mic".
func ParseDevice(name string) (Device, error) {
	return tensor.ParseDevice(name)
}

// NewShape creates a shape. Panics on negative extents.
func NewShape(layout Layout, d0, d1, d2, d3 int) Shape {
	return tensor.NewShape(layout, d0, d1, d2, d3)
}

// NCHW creates an activation shape.
func NCHW(n, c, h, w int) Shape {
	return tensor.NCHW(n, c, h, w)
}

// KCRS creates a filter shape.
func KCRS(k, c, r, s int) Shape {
	return tensor.KCRS(k, c, r, s)
}

// NewBuffer allocates a zeroed buffer on device.
func NewBuffer[T Float](device Device, shape Shape) *Buffer[T] {
	return tensor.NewBuffer[T](device, shape)
}

// NewWorkspace allocates a flat scratch buffer of n elements on device.
func NewWorkspace[T Float](device Device, n int) *Buffer[T] {
	return tensor.NewWorkspace[T](device, n)
}

// FromSlice creates a buffer on device holding a copy of values.
func FromSlice[T Float](device Device, shape Shape, values []T) *Buffer[T] {
	return tensor.FromSlice(device, shape, values)
}

// Copy transfers count elements from src to dst.
func Copy[T Float](dst, src *Buffer[T], count int) Direction {
	return tensor.Copy(dst, src, count)
}

// To returns a copy of src resident on device.
func To[T Float](device Device, src *Buffer[T]) *Buffer[T] {
	return tensor.To(device, src)
}

// Fill sets every element to v.
func Fill[T Float](b *Buffer[T], v T) {
	tensor.Fill(b, v)
}

// FillUniform draws every element uniformly from [lo, hi).
func FillUniform[T Float](b *Buffer[T], lo, hi float64, rng *rand.Rand) {
	tensor.FillUniform(b, lo, hi, rng)
}

// AllClose reports whether a and b agree element-wise within tol.
func AllClose[T Float](a, b []T, tol float64) bool {
	return tensor.AllClose(a, b, tol)
}

// MaxAbsDiff returns the largest absolute difference and its index.
func MaxAbsDiff[T Float](a, b []T) (float64, int) {
	return tensor.MaxAbsDiff(a, b)
}
