// Package tracing times pipeline stages. Spans form a tree rooted at one
// pipeline run, are carried through contexts and are logged via slog once the
// run ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey string

const spanKey contextKey = "stage_span"

// Span is one timed stage of a run.
type Span struct {
	Name      string
	RunID     string
	StartTime time.Time
	Duration  time.Duration
	Err       error
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

// StartRun creates the root span of a pipeline run.
func StartRun(ctx context.Context, name string, runID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		RunID:     runID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartStage creates a child of the span in ctx. Without a parent the stage
// becomes a root of its own.
func StartStage(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	child := &Span{
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	if parent != nil {
		child.RunID = parent.RunID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey, child), child
}

// End records the span's duration and the error, if any, that ended it.
func (s *Span) End(err error) {
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.Err = err
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// FromContext extracts the current Span from ctx, or nil if none.
func FromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// Walk calls fn for s and every descendant, parents first.
func (s *Span) Walk(fn func(span *Span, depth int)) {
	s.walk(fn, 0)
}

func (s *Span) walk(fn func(*Span, int), depth int) {
	fn(s, depth)
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, c := range children {
		c.walk(fn, depth+1)
	}
}

// Observe reports every span's duration to observe, keyed by span name.
func (s *Span) Observe(observe func(name string, d time.Duration)) {
	s.Walk(func(span *Span, _ int) {
		observe(span.Name, span.Duration)
	})
}

// Log writes the span tree to logger.
func (s *Span) Log(logger *slog.Logger) {
	s.Walk(func(span *Span, depth int) {
		attrs := []any{
			"run_id", span.RunID,
			"span", span.Name,
			"duration_ms", span.Duration.Milliseconds(),
			"depth", depth,
		}
		for k, v := range span.Attrs {
			attrs = append(attrs, k, v)
		}
		if span.Err != nil {
			attrs = append(attrs, "error", span.Err)
			logger.Warn("span", attrs...)
			return
		}
		logger.Info("span", attrs...)
	})
}
