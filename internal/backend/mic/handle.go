package mic

import (
	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/direct"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Handle is a prepared direct convolution: a problem, its configuration and
// the phases it may execute, split across a fixed number of worker
// contexts. Preparation validates everything; Execute only computes.
type Handle[T tensor.Float] struct {
	problem  conv.Problem
	config   conv.Config
	phases   [3]bool
	contexts int
	lanes    int
}

// Prepare creates a handle for phases of (p, cfg). It panics with an
// *conv.Error when a phase cannot run with cfg, before any compute starts.
func Prepare[T tensor.Float](p conv.Problem, cfg conv.Config, phases []conv.Phase, contexts, lanes int) *Handle[T] {
	if contexts < 1 {
		conv.Fatalf("mic prepare", conv.ErrInvalidConfig, "need at least one worker context, got %d", contexts)
	}
	h := &Handle[T]{problem: p, config: cfg, contexts: contexts, lanes: max(lanes, 1)}
	for _, phase := range phases {
		if phase < conv.Forward || phase > conv.UpdateFilter {
			conv.Fatalf("mic prepare", conv.ErrInvalidConfig, "unknown %s", phase)
		}
		conv.RequireDirect(phase, cfg)
		h.phases[phase] = true
	}
	return h
}

// Contexts returns the number of worker contexts.
func (h *Handle[T]) Contexts() int {
	return h.contexts
}

// Execute runs the share of phase owned by worker context tid. Contexts
// write disjoint regions; the caller runs all of them and joins.
func (h *Handle[T]) Execute(phase conv.Phase, ops conv.Operands[T], tid int) {
	if phase < conv.Forward || phase > conv.UpdateFilter || !h.phases[phase] {
		conv.Fatalf("mic execute", conv.ErrInvalidConfig, "handle was not prepared for %s", phase)
	}
	if tid < 0 || tid >= h.contexts {
		conv.Fatalf("mic execute", conv.ErrInvalidConfig, "context %d out of range [0, %d)", tid, h.contexts)
	}

	p, cfg := h.problem, h.config
	switch phase {
	case conv.Forward:
		start, end := parallel.Split(p.N*p.K, h.contexts, tid)
		for i := start; i < end; i++ {
			n, k := i/p.K, i%p.K
			x, y := ops.Image(p, n)
			direct.Forward(x, ops.Filter, y, p, cfg, k, k+1, h.lanes)
		}
	case conv.BackwardData:
		start, end := parallel.Split(p.N*p.C, h.contexts, tid)
		for i := start; i < end; i++ {
			n, c := i/p.C, i%p.C
			dx, dy := ops.Image(p, n)
			direct.BackwardData(dy, ops.Filter, dx, p, cfg, c, c+1)
		}
	case conv.UpdateFilter:
		start, end := parallel.Split(p.K, h.contexts, tid)
		direct.UpdateFilter(ops.Input, ops.Output, ops.Filter, p, cfg, start, end)
	}
}
