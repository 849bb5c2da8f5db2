package tensor

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Device identifies the execution target that owns a Buffer.
type Device int

// Supported compute devices.
const (
	// CPU is the general-purpose host.
	CPU Device = iota
	// GPU is the massively-parallel accelerator class.
	GPU
	// MIC is the wide-SIMD coprocessor class.
	MIC
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case MIC:
		return "MIC"
	default:
		return fmt.Sprintf("Device(%d)", int(d))
	}
}

// IsHost reports whether the device memory is host memory.
func (d Device) IsHost() bool {
	return d == CPU
}

// ParseDevice parses a device name (case-insensitive).
func ParseDevice(name string) (Device, error) {
	switch strings.ToLower(name) {
	case "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	case "mic":
		return MIC, nil
	default:
		return 0, fmt.Errorf("tensor: unknown device %q", name)
	}
}

// Buffer is an owned, contiguous block of elements resident on one device.
//
// A Buffer is never aliased by another device: moving data between devices
// always goes through Copy. Buffers are not safe for concurrent mutation;
// callers serialize calls that share a buffer.
type Buffer[T Float] struct {
	data     []T
	shape    Shape
	device   Device
	released atomic.Bool
}

// NewBuffer allocates a zeroed buffer sized to shape on device.
func NewBuffer[T Float](device Device, shape Shape) *Buffer[T] {
	return &Buffer[T]{
		data:   make([]T, shape.NumElements()),
		shape:  shape,
		device: device,
	}
}

// NewWorkspace allocates a flat scratch buffer of n elements.
func NewWorkspace[T Float](device Device, n int) *Buffer[T] {
	return NewBuffer[T](device, FlatShape(n))
}

// Shape returns the buffer's shape.
func (b *Buffer[T]) Shape() Shape {
	return b.shape
}

// Device returns the owning device.
func (b *Buffer[T]) Device() Device {
	return b.device
}

// DType returns the runtime element type.
func (b *Buffer[T]) DType() DataType {
	return DataTypeOf[T]()
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// ByteSize returns the total memory size in bytes.
func (b *Buffer[T]) ByteSize() int {
	return b.Len() * b.DType().Size()
}

// Data returns the element slice.
// Kernels of the owning device are the only legitimate users of device memory.
// Panics after Release.
func (b *Buffer[T]) Data() []T {
	if b.released.Load() {
		panic(fmt.Sprintf("tensor: use of released %s buffer %s", b.device, b.shape))
	}
	return b.data
}

// Zero sets every element to 0.
func (b *Buffer[T]) Zero() {
	clear(b.Data())
}

// Grow reallocates the buffer when it holds fewer than n elements.
// Only flat (workspace) buffers can grow; contents are not preserved.
func (b *Buffer[T]) Grow(n int) {
	if b.shape.Layout() != Flat {
		panic(fmt.Sprintf("tensor: cannot grow %s buffer, shapes are immutable", b.shape))
	}
	if len(b.Data()) >= n {
		return
	}
	b.data = make([]T, n)
	b.shape = FlatShape(n)
}

// Release frees the element storage. Further access panics.
func (b *Buffer[T]) Release() {
	if b.released.Swap(true) {
		return
	}
	b.data = nil
}
