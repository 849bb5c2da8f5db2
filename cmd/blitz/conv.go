package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/born-ml/blitz/conv"
	"github.com/born-ml/blitz/tensor"
)

const maxReportedMismatches = 10

type convFlags struct {
	algorithm  string
	device     string
	n, c, h, w int
	k, r, s    int
	padH, padW int
	strideH    int
	strideW    int
	iterations int
	seed       int64
	tolerance  float64
	verbose    bool
}

func newConvCmd() *cobra.Command {
	f := &convFlags{}
	cmd := &cobra.Command{
		Use:       "conv forward|backward|update",
		Short:     "Run one convolution pass and compare it with the host",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"forward", "backward", "update"},
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := conv.ParsePhase(args[0])
			if err != nil {
				return err
			}
			return runConv(cmd.OutOrStdout(), phase, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.algorithm, "algorithm", "convolution_blas_gemm", "algorithm name")
	fl.StringVar(&f.device, "device", "cpu", "device: cpu, gpu or mic")
	fl.IntVar(&f.n, "n", 1, "batch size")
	fl.IntVar(&f.c, "c", 3, "input channels")
	fl.IntVar(&f.h, "h", 8, "input height")
	fl.IntVar(&f.w, "w", 8, "input width")
	fl.IntVar(&f.k, "k", 4, "output channels")
	fl.IntVar(&f.r, "r", 3, "filter height")
	fl.IntVar(&f.s, "s", 3, "filter width")
	fl.IntVar(&f.padH, "pad-h", 1, "height padding")
	fl.IntVar(&f.padW, "pad-w", 1, "width padding")
	fl.IntVar(&f.strideH, "stride-h", 1, "height stride")
	fl.IntVar(&f.strideW, "stride-w", 1, "width stride")
	fl.IntVar(&f.iterations, "iterations", 1, "timed repetitions on the device")
	fl.Int64Var(&f.seed, "seed", 1, "random seed")
	fl.Float64Var(&f.tolerance, "tolerance", 1e-2, "absolute tolerance against the host")
	fl.BoolVar(&f.verbose, "verbose", false, "log every call")
	return cmd
}

func (f *convFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// pass holds the host tensors of one phase: the buffers it reads and the
// shape it writes.
type pass struct {
	input, filter, output tensor.Shape
	x, flt, g             *tensor.Buffer[float32]
}

func (p pass) run(e *conv.Engine[float32], phase conv.Phase, cfg conv.Config, iterations int) (result *tensor.Buffer[float32], elapsed time.Duration) {
	device := e.Device()
	x := tensor.To(device, p.x)
	flt := tensor.To(device, p.flt)
	g := tensor.To(device, p.g)
	ws := e.NewWorkspace(phase, p.input, p.filter, p.output, cfg)

	var dst *tensor.Buffer[float32]
	switch phase {
	case conv.Forward:
		dst = tensor.NewBuffer[float32](device, p.output)
	case conv.BackwardData:
		dst = tensor.NewBuffer[float32](device, p.input)
	default:
		dst = tensor.NewBuffer[float32](device, p.filter)
	}

	start := time.Now()
	for i := 0; i < iterations; i++ {
		switch phase {
		case conv.Forward:
			e.ConvolutionForward(x, flt, dst, ws, cfg)
		case conv.BackwardData:
			e.ConvolutionBackwardData(g, flt, dst, ws, cfg)
		default:
			e.ConvolutionUpdateFilter(x, g, dst, ws, cfg)
		}
	}
	elapsed = time.Since(start)
	return tensor.To(tensor.CPU, dst), elapsed
}

func runConv(out io.Writer, phase conv.Phase, f *convFlags) (err error) {
	defer conv.Recover(&err)

	algorithm, err := conv.ParseAlgorithm(f.algorithm)
	if err != nil {
		return err
	}
	device, err := tensor.ParseDevice(f.device)
	if err != nil {
		return err
	}
	if f.iterations < 1 {
		return errors.Errorf("iterations must be >= 1, got %d", f.iterations)
	}

	cfg := conv.Config{PadH: f.padH, PadW: f.padW, StrideH: f.strideH, StrideW: f.strideW, Algorithm: algorithm}
	// The host runs the same algorithm when it can, so that direct output
	// padding is compared like for like.
	refCfg := cfg
	if !conv.Available(tensor.CPU, algorithm) {
		refCfg.Algorithm = conv.AlgorithmGemm
	}

	p := pass{input: tensor.NCHW(f.n, f.c, f.h, f.w), filter: tensor.KCRS(f.k, f.c, f.r, f.s)}
	p.output = conv.OutputShape(p.input, p.filter, cfg)
	if ref := conv.OutputShape(p.input, p.filter, refCfg); !ref.Equal(p.output) {
		return errors.Errorf("host reference produces %s, %s produces %s", ref, algorithm, p.output)
	}

	rng := rand.New(rand.NewSource(f.seed))
	p.x = tensor.NewBuffer[float32](tensor.CPU, p.input)
	p.flt = tensor.NewBuffer[float32](tensor.CPU, p.filter)
	p.g = tensor.NewBuffer[float32](tensor.CPU, p.output)
	for _, b := range []*tensor.Buffer[float32]{p.x, p.flt, p.g} {
		tensor.FillUniform(b, -1, 1, rng)
	}

	logger := f.logger()
	host := conv.New[float32](tensor.CPU, conv.WithLogger(logger))
	want, _ := p.run(host, phase, refCfg, 1)

	e := conv.New[float32](device, conv.WithLogger(logger))
	got, elapsed := p.run(e, phase, cfg, f.iterations)

	mismatches := 0
	for i, v := range got.Data() {
		ref := want.Data()[i]
		if d := float64(v - ref); d > f.tolerance || d < -f.tolerance {
			if mismatches < maxReportedMismatches {
				fmt.Fprintf(out, "mismatch at %d: %s %g, host %g\n", i, device, v, ref)
			}
			mismatches++
		}
	}

	flops := float64(decodeFlops(p, f)) * float64(f.iterations)
	gflops := flops / elapsed.Seconds() / 1e9
	fmt.Fprintf(out, "%s %s on %s: input %s filter %s output %s\n", phase, algorithm, device, p.input, p.filter, p.output)
	fmt.Fprintf(out, "%d iterations in %s, %.3f GFLOPS, %d mismatches beyond %g\n",
		f.iterations, elapsed, gflops, mismatches, f.tolerance)
	if mismatches > 0 {
		return errors.Errorf("%d of %d elements differ from the host", mismatches, got.Len())
	}
	return nil
}

func decodeFlops(p pass, f *convFlags) int64 {
	_, _, oh, ow := p.output.Buffer2D()
	return conv.Problem{N: f.n, C: f.c, H: f.h, W: f.w, K: f.k, R: f.r, S: f.s, P: oh, Q: ow}.Flops()
}
