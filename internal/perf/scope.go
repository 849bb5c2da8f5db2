// Package perf measures the stages of one convolution call.
package perf

import (
	"log/slog"
	"sync"
	"time"
)

// Scope accumulates named stage durations for one call. It is created by
// the call that owns it and is safe for use by that call's workers.
type Scope struct {
	mu     sync.Mutex
	start  time.Time
	order  []string
	stages map[string]time.Duration
}

// NewScope starts a scope.
func NewScope() *Scope {
	return &Scope{start: time.Now(), stages: make(map[string]time.Duration)}
}

// Measure starts timing stage and returns the function that stops it.
// Repeated measurements of one stage add up.
//
//	defer scope.Measure("gemm")()
func (s *Scope) Measure(stage string) func() {
	if s == nil {
		return func() {}
	}
	t0 := time.Now()
	return func() {
		s.Add(stage, time.Since(t0))
	}
}

// Add records d against stage.
func (s *Scope) Add(stage string, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stages[stage]; !ok {
		s.order = append(s.order, stage)
	}
	s.stages[stage] += d
}

// Stage returns the accumulated duration of stage.
func (s *Scope) Stage(stage string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stages[stage]
}

// Elapsed returns the time since the scope started.
func (s *Scope) Elapsed() time.Duration {
	return time.Since(s.start)
}

// LogValue implements slog.LogValuer: stages in first-seen order followed
// by the total.
func (s *Scope) LogValue() slog.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs := make([]slog.Attr, 0, len(s.order)+1)
	for _, name := range s.order {
		attrs = append(attrs, slog.Duration(name, s.stages[name]))
	}
	attrs = append(attrs, slog.Duration("total", time.Since(s.start)))
	return slog.GroupValue(attrs...)
}
