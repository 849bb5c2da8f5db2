// Package gemmconv lowers convolution passes onto a matrix multiply: every
// image is unpacked into the workspace and multiplied against the filter.
//
// Per image n, with U the P·Q × C·R·S unpacked matrix (row-major):
//
//	forward:        Y[K×PQ]  = F[K×CRS] · Uᵀ
//	backward-data:  U        = Gᵀ · F, then packed into dX
//	update:         dF[K×CRS] += G[K×PQ] · U
package gemmconv

import (
	"github.com/born-ml/blitz/internal/blas"
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/pack"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/perf"
	"github.com/born-ml/blitz/internal/tensor"
)

// Lowering runs the pack-then-multiply algorithms on one device.
type Lowering[T tensor.Float] struct {
	// Mul is the device's matrix-multiply capability.
	Mul blas.Multiplier[T]
	// Threads bounds the general pack kernels' fan-out.
	Threads int
}

// Forward computes the forward pass one image at a time through a single
// C·R·S·P·Q workspace.
func (l Lowering[T]) Forward(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	g := p.Geometry(cfg)
	u := ops.Workspace[:p.UnpackSize()]
	for n := 0; n < p.N; n++ {
		x, y := ops.Image(p, n)
		l.forwardImage(g, p, x, ops.Filter, y, u, l.Threads, scope)
	}
}

// BackwardData computes the input gradient one image at a time.
func (l Lowering[T]) BackwardData(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	g := p.Geometry(cfg)
	u := ops.Workspace[:p.UnpackSize()]
	for n := 0; n < p.N; n++ {
		dx, dy := ops.Image(p, n)
		l.backwardImage(g, p, dy, ops.Filter, dx, u, l.Threads, scope)
	}
}

// UpdateFilter computes the filter gradient summed over the batch. The
// filter gradient is overwritten.
func (l Lowering[T]) UpdateFilter(p conv.Problem, cfg conv.Config, ops conv.Operands[T], scope *perf.Scope) {
	g := p.Geometry(cfg)
	u := ops.Workspace[:p.UnpackSize()]
	l.updateImages(g, p, ops, 0, p.N, u, ops.Filter, l.Threads, scope)
}

// ForwardBatch unpacks up to workers images concurrently, each into its own
// workspace slice.
func (l Lowering[T]) ForwardBatch(p conv.Problem, cfg conv.Config, ops conv.Operands[T], workers int, scope *perf.Scope) {
	g := p.Geometry(cfg)
	workers = conv.BatchWorkers(p.N, workers)
	parallel.Workers(workers, func(tid int) {
		u := unpackSlice(ops.Workspace, p, tid)
		start, end := parallel.Split(p.N, workers, tid)
		for n := start; n < end; n++ {
			x, y := ops.Image(p, n)
			l.forwardImage(g, p, x, ops.Filter, y, u, 1, scope)
		}
	})
}

// BackwardDataBatch is the batched form of BackwardData.
func (l Lowering[T]) BackwardDataBatch(p conv.Problem, cfg conv.Config, ops conv.Operands[T], workers int, scope *perf.Scope) {
	g := p.Geometry(cfg)
	workers = conv.BatchWorkers(p.N, workers)
	parallel.Workers(workers, func(tid int) {
		u := unpackSlice(ops.Workspace, p, tid)
		start, end := parallel.Split(p.N, workers, tid)
		for n := start; n < end; n++ {
			dx, dy := ops.Image(p, n)
			l.backwardImage(g, p, dy, ops.Filter, dx, u, 1, scope)
		}
	})
}

// UpdateFilterBatch accumulates one partial filter gradient per worker in
// the workspace and reduces them into the filter gradient.
func (l Lowering[T]) UpdateFilterBatch(p conv.Problem, cfg conv.Config, ops conv.Operands[T], workers int, scope *perf.Scope) {
	g := p.Geometry(cfg)
	workers = conv.BatchWorkers(p.N, workers)
	if p.N == 0 {
		clear(ops.Filter)
		return
	}
	fs := p.FilterSize()
	partials := ops.Workspace[workers*p.UnpackSize() : workers*p.UnpackSize()+workers*fs]

	parallel.Workers(workers, func(tid int) {
		u := unpackSlice(ops.Workspace, p, tid)
		start, end := parallel.Split(p.N, workers, tid)
		l.updateImages(g, p, ops, start, end, u, partials[tid*fs:(tid+1)*fs], 1, scope)
	})

	defer scope.Measure("reduce")()
	df := ops.Filter[:fs]
	parallel.Workers(min(workers, fs), func(tid int) {
		start, end := parallel.Split(fs, min(workers, fs), tid)
		for i := start; i < end; i++ {
			var sum T
			for w := 0; w < workers; w++ {
				sum += partials[w*fs+i]
			}
			df[i] = sum
		}
	})
}

func unpackSlice[T tensor.Float](ws []T, p conv.Problem, tid int) []T {
	size := p.UnpackSize()
	return ws[tid*size : (tid+1)*size]
}

func (l Lowering[T]) forwardImage(g pack.Geometry, p conv.Problem, x, f, y, u []T, threads int, scope *perf.Scope) {
	stop := scope.Measure("unpack")
	pack.Unpack2D(x, u, g, threads)
	stop()

	defer scope.Measure("gemm")()
	crs := p.CRS()
	l.Mul.Gemm(blas.NoTrans, blas.Trans, p.K, p.PQ(), crs,
		1, f, crs,
		u, crs,
		0, y, p.PQ())
}

func (l Lowering[T]) backwardImage(g pack.Geometry, p conv.Problem, dy, f, dx, u []T, threads int, scope *perf.Scope) {
	stop := scope.Measure("gemm")
	crs := p.CRS()
	l.Mul.Gemm(blas.Trans, blas.NoTrans, p.PQ(), crs, p.K,
		1, dy, p.PQ(),
		f, crs,
		0, u, crs)
	stop()

	defer scope.Measure("pack")()
	pack.Pack2D(u, dx, g, threads)
}

// updateImages writes the filter gradient of images [start, end) into df.
func (l Lowering[T]) updateImages(g pack.Geometry, p conv.Problem, ops conv.Operands[T], start, end int, u, df []T, threads int, scope *perf.Scope) {
	if start == end {
		clear(df)
		return
	}
	crs := p.CRS()
	for n := start; n < end; n++ {
		x, dy := ops.Image(p, n)

		stop := scope.Measure("unpack")
		pack.Unpack2D(x, u, g, threads)
		stop()

		beta := T(1)
		if n == start {
			beta = 0
		}
		stop = scope.Measure("gemm")
		l.Mul.Gemm(blas.NoTrans, blas.NoTrans, p.K, crs, p.PQ(),
			1, dy, p.PQ(),
			u, crs,
			beta, df, crs)
		stop()
	}
}
