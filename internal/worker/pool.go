// Package worker runs one goroutine per corpus range. Workers share nothing
// mutable; the pool only joins them and reports the first failure.
package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
)

// Func processes one range. It must only touch state it owns.
type Func func(ctx context.Context, r corpus.Range) error

// Pool fans a plan out over goroutines.
type Pool struct {
	pinCPU bool
	// OnStart and OnDone, when set, bracket every worker.
	OnStart func()
	OnDone  func()
	logger  *slog.Logger
}

// NewPool returns a pool. With pinCPU each numbered worker is locked to its
// own OS thread, bound to CPU index mod NumCPU where the platform allows.
func NewPool(pinCPU bool) *Pool {
	return &Pool{pinCPU: pinCPU, logger: logger.WithComponent("worker")}
}

// Run calls fn once per range and waits for all of them. An inline plan runs
// on the calling goroutine. The first error cancels the context passed to
// the remaining workers and is returned.
func (p *Pool) Run(ctx context.Context, plan corpus.Plan, fn Func) error {
	if plan.Inline() {
		return p.call(ctx, plan.Ranges[0], fn)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range plan.Ranges {
		g.Go(func() error {
			if p.pinCPU {
				idx, _ := r.Worker.Index()
				if err := pinThread(idx); err != nil {
					p.logger.Debug("cpu pinning unavailable", "worker", r.Worker.String(), "error", err)
				}
			}
			return p.call(gctx, r, fn)
		})
	}
	return g.Wait()
}

func (p *Pool) call(ctx context.Context, r corpus.Range, fn Func) error {
	if p.OnStart != nil {
		p.OnStart()
	}
	if p.OnDone != nil {
		defer p.OnDone()
	}
	p.logger.Debug("worker started", "worker", r.Worker.String(), "start", r.Start, "end", r.End)
	return fn(ctx, r)
}
