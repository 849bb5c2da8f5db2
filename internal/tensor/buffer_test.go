package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_NewIsZeroed(t *testing.T) {
	b := NewBuffer[float32](GPU, NCHW(1, 2, 3, 3))
	require.Equal(t, 18, b.Len())
	assert.Equal(t, GPU, b.Device())
	assert.Equal(t, Float32, b.DType())
	assert.Equal(t, 72, b.ByteSize())
	for _, v := range b.Data() {
		assert.Zero(t, v)
	}
}

func TestBuffer_ReleasePreventsAccess(t *testing.T) {
	b := NewBuffer[float64](CPU, NCHW(1, 1, 2, 2))
	b.Release()
	b.Release()
	assert.Panics(t, func() { _ = b.Data() })
}

func TestBuffer_Grow(t *testing.T) {
	ws := NewWorkspace[float32](CPU, 4)
	ws.Grow(2)
	assert.Equal(t, 4, ws.Len())
	ws.Grow(10)
	assert.Equal(t, 10, ws.Len())
	assert.Equal(t, 10, ws.Shape().NumElements())

	fixed := NewBuffer[float32](CPU, NCHW(1, 1, 1, 1))
	assert.Panics(t, func() { fixed.Grow(8) })
}

func TestCopy_Directions(t *testing.T) {
	host := FromSlice(CPU, NCHW(1, 1, 2, 2), []float32{1, 2, 3, 4})
	dev := NewBuffer[float32](GPU, host.Shape())

	assert.Equal(t, HostToDevice, CopyAll(dev, host))
	assert.Equal(t, []float32{1, 2, 3, 4}, dev.Data())

	back := NewBuffer[float32](CPU, host.Shape())
	assert.Equal(t, DeviceToHost, CopyAll(back, dev))
	assert.Equal(t, host.Data(), back.Data())

	mic := NewBuffer[float32](MIC, host.Shape())
	assert.Equal(t, DeviceToDevice, CopyAll(mic, dev))
	assert.Equal(t, HostToHost, Copy(back, host, 2))
}

func TestCopy_NoAliasing(t *testing.T) {
	host := FromSlice(CPU, NCHW(1, 1, 1, 2), []float64{1, 2})
	dev := To(GPU, host)
	host.Data()[0] = 42
	assert.Equal(t, 1.0, dev.Data()[0])
}

func TestCopy_OutOfRangePanics(t *testing.T) {
	a := NewBuffer[float32](CPU, NCHW(1, 1, 1, 2))
	b := NewBuffer[float32](GPU, NCHW(1, 1, 1, 4))
	assert.Panics(t, func() { Copy(a, b, 4) })
	assert.Panics(t, func() { CopyAll(a, b) })
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("Gpu")
	require.NoError(t, err)
	assert.Equal(t, GPU, d)

	_, err = ParseDevice("tpu")
	assert.Error(t, err)
}

func TestFillUniform_Range(t *testing.T) {
	b := NewBuffer[float32](CPU, NCHW(1, 3, 8, 8))
	FillUniform(b, -0.1, 0.1, rand.New(rand.NewSource(1)))
	for _, v := range b.Data() {
		assert.GreaterOrEqual(t, v, float32(-0.1))
		assert.LessOrEqual(t, v, float32(0.1))
	}
}

func TestAllClose(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1.005, 2, 2.995}
	assert.True(t, AllClose(a, b, 1e-2))
	assert.False(t, AllClose(a, b, 1e-3))
	assert.Equal(t, []int{0, 2}, Mismatches(a, b, 1e-3))

	d, at := MaxAbsDiff([]float64{1, 5}, []float64{1, 2})
	assert.Equal(t, 3.0, d)
	assert.Equal(t, 1, at)
}
