package engine

import (
	"bytes"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/tensor"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// onDevice copies host values onto device.
func onDevice[T tensor.Float](device tensor.Device, shape tensor.Shape, values []T) *tensor.Buffer[T] {
	return tensor.To(device, tensor.FromSlice(tensor.CPU, shape, values))
}

func ones(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

type target struct {
	device    tensor.Device
	algorithm conv.Algorithm
}

func (t target) String() string {
	return t.device.String() + "/" + t.algorithm.String()
}

var lowered = []target{
	{tensor.CPU, conv.AlgorithmGemm},
	{tensor.CPU, conv.AlgorithmGemmBatch},
	{tensor.GPU, conv.AlgorithmGemm},
	{tensor.MIC, conv.AlgorithmGemmBatch},
}

// forward runs one forward pass on device from host data and returns the
// host copy of the output.
func forward[T tensor.Float](t *testing.T, tg target, input, filter tensor.Shape, x, f []T, cfg conv.Config) []T {
	t.Helper()
	e := New[T](tg.device, quiet(), WithDeviceThreads(16), WithContexts(3))
	outShape := conv.OutputShape(input, filter, cfg)
	in := onDevice(tg.device, input, x)
	flt := onDevice(tg.device, filter, f)
	out := tensor.NewBuffer[T](tg.device, outShape)
	ws := e.NewWorkspace(conv.Forward, input, filter, outShape, cfg)

	e.ConvolutionForward(in, flt, out, ws, cfg)
	return tensor.To(tensor.CPU, out).Data()
}

func TestForward_EndToEnd(t *testing.T) {
	input := tensor.NCHW(2, 3, 5, 5)
	filter := tensor.KCRS(4, 3, 3, 3)

	for _, tg := range lowered {
		t.Run(tg.String(), func(t *testing.T) {
			cfg := conv.NewConfig(1, 1, tg.algorithm)
			require.Equal(t, tensor.NCHW(2, 4, 5, 5), conv.OutputShape(input, filter, cfg))

			zeros := forward(t, tg, input, filter, make([]float32, input.NumElements()), make([]float32, filter.NumElements()), cfg)
			assert.Equal(t, make([]float32, 2*4*5*5), zeros)

			y := forward(t, tg, input, filter, ones(input.NumElements()), ones(filter.NumElements()), cfg)
			inBounds := func(i int) float32 {
				if i == 0 || i == 4 {
					return 2
				}
				return 3
			}
			for n := 0; n < 2; n++ {
				for k := 0; k < 4; k++ {
					for p := 0; p < 5; p++ {
						for q := 0; q < 5; q++ {
							want := 3 * inBounds(p) * inBounds(q) // 27 interior, 18 edge, 12 corner
							assert.Equal(t, want, y[((n*4+k)*5+p)*5+q], "n=%d k=%d p=%d q=%d", n, k, p, q)
						}
					}
				}
			}
		})
	}
}

// The direct algorithm pads the output: the valid 3x3 convolution lands in
// the interior of the 5x5 output and the border stays zero.
func TestForward_DirectOutputPadding(t *testing.T) {
	input := tensor.NCHW(2, 3, 5, 5)
	filter := tensor.KCRS(4, 3, 3, 3)
	for _, device := range []tensor.Device{tensor.CPU, tensor.GPU, tensor.MIC} {
		cfg := conv.NewConfig(1, 1, conv.AlgorithmDirect)
		require.Equal(t, tensor.NCHW(2, 4, 5, 5), conv.OutputShape(input, filter, cfg))

		y := forward(t, target{device, conv.AlgorithmDirect}, input, filter, ones(input.NumElements()), ones(filter.NumElements()), cfg)
		for i, v := range y {
			p, q := (i/5)%5, i%5
			if p == 0 || p == 4 || q == 0 || q == 4 {
				assert.Zero(t, v, "%s border %d", device, i)
			} else {
				assert.Equal(t, float32(27), v, "%s interior %d", device, i)
			}
		}
	}
}

func randomSlice(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

// passes runs all three phases on tg and returns host copies of the
// output, input gradient and filter gradient.
func passes(t *testing.T, tg target, cfg conv.Config, input, filter tensor.Shape, x, f, g []float32) [3][]float32 {
	t.Helper()
	e := New[float32](tg.device, quiet(), WithDeviceThreads(8), WithContexts(4))
	out := conv.OutputShape(input, filter, cfg)

	xb := onDevice(tg.device, input, x)
	fb := onDevice(tg.device, filter, f)
	gb := onDevice(tg.device, out, g)
	yb := tensor.NewBuffer[float32](tg.device, out)
	dxb := tensor.NewBuffer[float32](tg.device, input)
	dfb := tensor.NewBuffer[float32](tg.device, filter)

	ws := e.NewWorkspace(conv.Forward, input, filter, out, cfg)
	e.ConvolutionForward(xb, fb, yb, ws, cfg)
	ws.Grow(e.WorkspaceSize(conv.BackwardData, input, filter, out, cfg))
	e.ConvolutionBackwardData(gb, fb, dxb, ws, cfg)
	ws.Grow(e.WorkspaceSize(conv.UpdateFilter, input, filter, out, cfg))
	e.ConvolutionUpdateFilter(xb, gb, dfb, ws, cfg)

	return [3][]float32{
		tensor.To(tensor.CPU, yb).Data(),
		tensor.To(tensor.CPU, dxb).Data(),
		tensor.To(tensor.CPU, dfb).Data(),
	}
}

func TestCrossBackendEquivalence(t *testing.T) {
	const tol = 1e-2
	rng := rand.New(rand.NewSource(42))
	input := tensor.NCHW(1, 3, 8, 8)
	filter := tensor.KCRS(4, 3, 3, 3)
	x := randomSlice(rng, input.NumElements())
	f := randomSlice(rng, filter.NumElements())

	for _, pad := range []int{0, 1} {
		ref := target{tensor.CPU, conv.AlgorithmGemm}
		cfg := conv.NewConfig(pad, 1, ref.algorithm)
		g := randomSlice(rng, conv.OutputShape(input, filter, cfg).NumElements())
		want := passes(t, ref, cfg, input, filter, x, f, g)

		others := []target{
			{tensor.GPU, conv.AlgorithmGemm},
			{tensor.MIC, conv.AlgorithmGemmBatch},
			{tensor.CPU, conv.AlgorithmGemmBatch},
		}
		if pad == 0 {
			// Direct pads the output, so it only matches the lowered
			// algorithms without padding.
			others = append(others,
				target{tensor.GPU, conv.AlgorithmDirect},
				target{tensor.MIC, conv.AlgorithmDirect},
				target{tensor.CPU, conv.AlgorithmDirect})
		}
		for _, tg := range others {
			cfg.Algorithm = tg.algorithm
			got := passes(t, tg, cfg, input, filter, x, f, g)
			for i, name := range []string{"forward", "backward-data", "update"} {
				worst, at := tensor.MaxAbsDiff(want[i], got[i])
				assert.True(t, tensor.AllClose(want[i], got[i], tol),
					"%s pad=%d %s: max diff %g at %d", tg, pad, name, worst, at)
			}
		}
	}
}

// <forward(x), g> == <x, backward-data(g)> == <f, update(x, g)>.
func TestAdjointIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input := tensor.NCHW(2, 3, 9, 7)
	filter := tensor.KCRS(5, 3, 3, 3)
	cfg := conv.Config{PadH: 1, PadW: 2, StrideH: 2, StrideW: 1, Algorithm: conv.AlgorithmGemm}
	out := conv.OutputShape(input, filter, cfg)

	e := New[float64](tensor.CPU, quiet())
	rand64 := func(s tensor.Shape) *tensor.Buffer[float64] {
		b := tensor.NewBuffer[float64](tensor.CPU, s)
		tensor.FillUniform(b, -1, 1, rng)
		return b
	}
	x, f, g := rand64(input), rand64(filter), rand64(out)
	y := tensor.NewBuffer[float64](tensor.CPU, out)
	dx := rand64(input)
	df := rand64(filter)
	ws := e.NewWorkspace(conv.Forward, input, filter, out, cfg)

	e.ConvolutionForward(x, f, y, ws, cfg)
	e.ConvolutionBackwardData(g, f, dx, ws, cfg)
	e.ConvolutionUpdateFilter(x, g, df, ws, cfg)

	dot := func(a, b *tensor.Buffer[float64]) float64 {
		var s float64
		for i, v := range a.Data() {
			s += v * b.Data()[i]
		}
		return s
	}
	want := dot(y, g)
	assert.InDelta(t, want, dot(x, dx), 1e-9)
	assert.InDelta(t, want, dot(f, df), 1e-9)
}

func TestFatal_DirectBackwardWithPaddingRunsNoKernel(t *testing.T) {
	for _, device := range []tensor.Device{tensor.CPU, tensor.GPU, tensor.MIC} {
		e := New[float32](device, quiet())
		cfg := conv.NewConfig(1, 1, conv.AlgorithmDirect)
		input := tensor.NCHW(1, 2, 6, 6)
		filter := tensor.KCRS(3, 2, 3, 3)
		out := conv.OutputShape(input, filter, cfg)

		dx := tensor.NewBuffer[float32](device, input)
		tensor.Fill(dx, 7)
		df := tensor.NewBuffer[float32](device, filter)
		tensor.Fill(df, 7)
		g := tensor.NewBuffer[float32](device, out)
		tensor.Fill(g, 1)
		f := tensor.NewBuffer[float32](device, filter)
		x := tensor.NewBuffer[float32](device, input)

		err := conv.Catch(func() { e.ConvolutionBackwardData(g, f, dx, nil, cfg) })
		require.ErrorIs(t, err, conv.ErrDirectPadding, device.String())
		err = conv.Catch(func() { e.ConvolutionUpdateFilter(x, g, df, nil, cfg) })
		require.ErrorIs(t, err, conv.ErrDirectPadding, device.String())

		for _, v := range tensor.To(tensor.CPU, dx).Data() {
			require.Equal(t, float32(7), v)
		}
		for _, v := range tensor.To(tensor.CPU, df).Data() {
			require.Equal(t, float32(7), v)
		}
	}
}

func TestFatal_Paths(t *testing.T) {
	input := tensor.NCHW(2, 3, 5, 5)
	filter := tensor.KCRS(4, 3, 3, 3)
	output := tensor.NCHW(2, 4, 5, 5)
	gemm := conv.NewConfig(1, 1, conv.AlgorithmGemm)

	host := New[float32](tensor.CPU, quiet())
	gpuEngine := New[float32](tensor.GPU, quiet())
	buf := func(d tensor.Device, s tensor.Shape) *tensor.Buffer[float32] { return tensor.NewBuffer[float32](d, s) }
	ws := func(d tensor.Device, n int) *tensor.Buffer[float32] { return tensor.NewWorkspace[float32](d, n) }
	need := host.WorkspaceSize(conv.Forward, input, filter, output, gemm)

	tests := []struct {
		name     string
		call     func()
		want     error
		contains string
	}{
		{
			name: "unknown algorithm kind",
			call: func() {
				host.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.CPU, filter), buf(tensor.CPU, output),
					ws(tensor.CPU, need), conv.NewConfig(1, 1, conv.Algorithm(99)))
			},
			want: conv.ErrUnsupportedAlgorithm, contains: "99",
		},
		{
			name: "algorithm not on device",
			call: func() {
				gpuEngine.ConvolutionForward(buf(tensor.GPU, input), buf(tensor.GPU, filter), buf(tensor.GPU, output),
					ws(tensor.GPU, need*8), conv.NewConfig(1, 1, conv.AlgorithmGemmBatch))
			},
			want: conv.ErrUnsupportedAlgorithm, contains: "convolution_blas_gemm_batch",
		},
		{
			name: "channel mismatch",
			call: func() {
				host.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.CPU, tensor.KCRS(4, 2, 3, 3)), buf(tensor.CPU, output),
					ws(tensor.CPU, need), gemm)
			},
			want: conv.ErrShapeMismatch, contains: "input channels 3 != filter input channels 2",
		},
		{
			name: "output extent",
			call: func() {
				host.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.CPU, filter), buf(tensor.CPU, tensor.NCHW(2, 4, 3, 3)),
					ws(tensor.CPU, need), gemm)
			},
			want: conv.ErrShapeMismatch, contains: "expected 5x5",
		},
		{
			name: "buffer on another device",
			call: func() {
				gpuEngine.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.GPU, filter), buf(tensor.GPU, output),
					ws(tensor.GPU, need), gemm)
			},
			want: conv.ErrDeviceMismatch, contains: "input",
		},
		{
			name: "workspace on another device",
			call: func() {
				host.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.CPU, filter), buf(tensor.CPU, output),
					ws(tensor.GPU, need), gemm)
			},
			want: conv.ErrDeviceMismatch, contains: "workspace",
		},
		{
			name: "workspace too small",
			call: func() {
				host.ConvolutionForward(buf(tensor.CPU, input), buf(tensor.CPU, filter), buf(tensor.CPU, output),
					ws(tensor.CPU, need-1), gemm)
			},
			want: conv.ErrWorkspace, contains: "need",
		},
		{
			name: "missing workspace",
			call: func() {
				host.ConvolutionBackwardData(buf(tensor.CPU, output), buf(tensor.CPU, filter), buf(tensor.CPU, input), nil, gemm)
			},
			want: conv.ErrWorkspace, contains: "holds 0 elements",
		},
		{
			name: "vendor not registered",
			call: func() {
				gpuEngine.ConvolutionForward(buf(tensor.GPU, input), buf(tensor.GPU, filter), buf(tensor.GPU, output),
					ws(tensor.GPU, need*8), conv.NewConfig(1, 1, conv.AlgorithmVendor))
			},
			want: conv.ErrUnsupportedAlgorithm, contains: "vendor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := conv.Catch(tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNew_RejectsVendorOfOtherType(t *testing.T) {
	err := conv.Catch(func() { New[float64](tensor.GPU, quiet(), WithVendor("not a vendor")) })
	assert.ErrorIs(t, err, conv.ErrInvalidConfig)
}

func TestWorkspaceSize(t *testing.T) {
	input := tensor.NCHW(4, 3, 8, 8)
	filter := tensor.KCRS(5, 3, 3, 3)
	cfg := conv.NewConfig(1, 1, conv.AlgorithmGemmBatch)
	out := conv.OutputShape(input, filter, cfg)

	e := New[float32](tensor.CPU, quiet(), WithWorkers(2))
	assert.Equal(t, 2*27*64+2*5*27, e.WorkspaceSize(conv.Forward, input, filter, out, cfg))

	m := New[float32](tensor.MIC, quiet(), WithContexts(3))
	assert.Equal(t, 3*27*64+3*5*27, m.WorkspaceSize(conv.UpdateFilter, input, filter, out, cfg))

	cfg.Algorithm = conv.AlgorithmDirect
	assert.Zero(t, m.WorkspaceSize(conv.Forward, input, filter, out, cfg))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New[float32](tensor.MIC, WithLogger(logger), WithContexts(2))
	assert.Contains(t, buf.String(), "convolution engine ready")
	assert.Contains(t, buf.String(), "device=MIC")

	cfg := conv.NewConfig(0, 1, conv.AlgorithmDirect)
	input, filter := tensor.NCHW(1, 1, 4, 4), tensor.KCRS(1, 1, 3, 3)
	out := conv.OutputShape(input, filter, cfg)
	e.ConvolutionForward(tensor.NewBuffer[float32](tensor.MIC, input), tensor.NewBuffer[float32](tensor.MIC, filter),
		tensor.NewBuffer[float32](tensor.MIC, out), nil, cfg)

	logged := buf.String()
	assert.Contains(t, logged, "phase=forward")
	assert.Contains(t, logged, "algorithm=convolution_direct")
	assert.Contains(t, logged, "timing.direct=")
}

func TestAlgorithms(t *testing.T) {
	assert.Equal(t, []conv.Algorithm{conv.AlgorithmGemm, conv.AlgorithmGemmBatch, conv.AlgorithmDirect},
		New[float32](tensor.CPU, quiet()).Algorithms())
	assert.Equal(t, []conv.Algorithm{conv.AlgorithmGemmBatch, conv.AlgorithmDirect},
		New[float32](tensor.MIC, quiet()).Algorithms())
}
