package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  int
	}{
		{"nchw", NCHW(2, 3, 5, 5), 150},
		{"kcrs", KCRS(4, 3, 3, 3), 108},
		{"zero extent", NCHW(0, 3, 5, 5), 0},
		{"flat", FlatShape(17), 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.NumElements())
		})
	}
}

func TestShape_NegativeExtentPanics(t *testing.T) {
	assert.Panics(t, func() { NCHW(1, -1, 2, 2) })
}

func TestShape_Buffer2D(t *testing.T) {
	n, c, h, w := NCHW(2, 3, 4, 5).Buffer2D()
	assert.Equal(t, [4]int{2, 3, 4, 5}, [4]int{n, c, h, w})

	n, c, h, w = NewShape(BufferNHWC, 2, 4, 5, 3).Buffer2D()
	assert.Equal(t, [4]int{2, 3, 4, 5}, [4]int{n, c, h, w})

	assert.Panics(t, func() { KCRS(1, 1, 1, 1).Buffer2D() })
}

func TestShape_Filter2D(t *testing.T) {
	k, c, r, s := KCRS(4, 3, 2, 1).Filter2D()
	assert.Equal(t, [4]int{4, 3, 2, 1}, [4]int{k, c, r, s})
	assert.Panics(t, func() { NCHW(1, 1, 1, 1).Filter2D() })
}

func TestShape_EqualIncludesLayout(t *testing.T) {
	assert.True(t, NCHW(1, 2, 3, 4).Equal(NCHW(1, 2, 3, 4)))
	assert.False(t, NCHW(1, 2, 3, 4).Equal(NewShape(BufferNHWC, 1, 2, 3, 4)))
	assert.False(t, NCHW(1, 2, 3, 4).Equal(NCHW(1, 2, 3, 5)))
}

func TestShape_DimsIsCopy(t *testing.T) {
	s := NCHW(1, 2, 3, 4)
	d := s.Dims()
	d[0] = 99
	require.Equal(t, 1, s.At(0))
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, [4]int{60, 20, 5, 1}, NCHW(2, 3, 4, 5).ComputeStrides())
}

func TestLayout_String(t *testing.T) {
	assert.Equal(t, "NCHW", BufferNCHW.String())
	assert.Equal(t, "CRSPQ", PackCRSPQ.String())
	assert.Equal(t, "KCRS", FilterKCRS.String())
	assert.Equal(t, "Layout(42)", Layout(42).String())
}
