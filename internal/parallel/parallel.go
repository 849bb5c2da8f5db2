// Package parallel provides the data-parallel fan-out primitives used by the
// convolution kernels. Every helper joins all workers before returning.
package parallel

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvNumThreads overrides the default worker count when set to a positive integer.
const EnvNumThreads = "BLITZ_NUM_THREADS"

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count, honoring
// BLITZ_NUM_THREADS.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	if v, err := strconv.Atoi(os.Getenv(EnvNumThreads)); err == nil && v > 0 {
		n = v
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// Sequential returns a configuration that runs everything on the caller's goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// Workers returns the effective worker count (1 when disabled).
func (c Config) Workers() int {
	if !c.Enabled || c.NumWorkers < 1 {
		return 1
	}
	return c.NumWorkers
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize || cfg.NumWorkers <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch optimized for batch*channels iteration pattern.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	n := batch * channels
	For(n, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}

// Workers runs f(tid) for tid in [0, n) on n goroutines and waits for all of them.
// Used for fixed pools of worker contexts where each tid owns a disjoint slice of work.
func Workers(n int, f func(tid int)) {
	switch {
	case n <= 0:
		return
	case n == 1:
		f(0)
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for tid := 0; tid < n; tid++ {
		go func(tid int) {
			defer wg.Done()
			f(tid)
		}(tid)
	}
	wg.Wait()
}

// GridStride runs f(index) for index in [0, size) across threads workers.
// Worker t visits t, t+threads, t+2*threads, ... so any thread count covers
// the whole index space exactly once.
func GridStride(size, threads int, f func(index int)) {
	if size <= 0 {
		return
	}
	threads = min(max(threads, 1), size)
	Workers(threads, func(tid int) {
		for index := tid; index < size; index += threads {
			f(index)
		}
	})
}

// Dim2 is a two-dimensional block extent.
type Dim2 struct {
	X, Y int
}

// LaunchBlocks runs one goroutine per block in [0, grid) and, inside it,
// kernel(block, x, y) for every thread of the block. Threads of a block run
// in order on the block's goroutine.
func LaunchBlocks(grid int, block Dim2, kernel func(block, x, y int)) {
	Workers(grid, func(b int) {
		for x := 0; x < block.X; x++ {
			for y := 0; y < block.Y; y++ {
				kernel(b, x, y)
			}
		}
	})
}

// Split returns the half-open range [start, end) of n items owned by worker
// tid out of workers, distributing the remainder to the first workers.
func Split(n, workers, tid int) (start, end int) {
	q, r := n/workers, n%workers
	start = tid*q + min(tid, r)
	end = start + q
	if tid < r {
		end++
	}
	return start, end
}
