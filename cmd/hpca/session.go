package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/ledger"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/runlock"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/tracing"
)

const closeTimeout = 10 * time.Second

// session owns everything around the pipeline stages of one command: run
// id, metrics, the optional sinks and the root span.
type session struct {
	cfg      *config.Config
	runID    string
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	tracker  *health.Tracker
	root     *tracing.Span
	closers  []func(context.Context) error
	logger   *slog.Logger
}

// stageOutcome is what a stage reports to the ledger and the notifier.
type stageOutcome struct {
	Summary any
	Outputs []string
}

// openSession connects the enabled sinks. When lockDir is non-empty and Redis
// is enabled, the directory is locked for the lifetime of the session.
// stages names the stages the command will run, in order.
func openSession(ctx context.Context, cfg *config.Config, name, lockDir string, stages ...string) (context.Context, *session, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s := &session{
		cfg:     cfg,
		runID:   notify.NewRunID(),
		metrics: metrics.New(reg),
	}
	s.tracker = health.NewTracker(s.runID, stages...)
	ctx = logger.WithRunID(ctx, s.runID)
	s.logger = logger.FromContext(ctx).With("command", name)

	if cfg.Metrics.Enabled {
		s.closers = append(s.closers, s.metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/healthz": s.tracker.Handler(),
		}))
	}
	if err := s.connect(ctx, lockDir); err != nil {
		s.shutdown()
		return nil, nil, err
	}

	ctx, s.root = tracing.StartRun(ctx, name, s.runID)
	s.logger.Info("run started")
	return ctx, s, nil
}

func (s *session) connect(ctx context.Context, lockDir string) error {
	cfg := s.cfg
	if cfg.Redis.Enabled && lockDir != "" {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		lock, err := runlock.Acquire(ctx, client, lockDir, s.runID, cfg.Redis.LockTTL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, lock.Release)
	}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		s.ledger = ledger.New(db)
		if err := s.ledger.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.StageComplete)
		s.closers = append(s.closers, func(context.Context) error { return producer.Close() })
		s.notifier = notify.New(producer)
	}
	return nil
}

// stage runs fn as one named stage. Sink failures are logged and never fail
// the stage.
func (s *session) stage(ctx context.Context, name string, fn func(context.Context) (stageOutcome, error)) error {
	if s.ledger != nil {
		if err := s.ledger.Start(ctx, s.runID, name); err != nil {
			s.logger.Warn("ledger start failed", "stage", name, "error", err)
		}
	}

	s.tracker.Begin(name)
	stageCtx, span := tracing.StartStage(ctx, name)
	out, err := fn(stageCtx)
	span.End(err)
	s.tracker.Done(name, err)

	if s.ledger != nil {
		if lerr := s.ledger.Finish(ctx, s.runID, name, out.Summary, err); lerr != nil {
			s.logger.Warn("ledger finish failed", "stage", name, "error", lerr)
		}
	}
	if s.notifier != nil {
		ev := notify.StageCompleted{
			RunID:      s.runID,
			Stage:      name,
			Succeeded:  err == nil,
			DurationMS: span.Duration.Milliseconds(),
			Outputs:    out.Outputs,
			Summary:    out.Summary,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		if nerr := s.notifier.StageDone(ctx, ev); nerr != nil {
			s.logger.Warn("stage notification failed", "stage", name, "error", nerr)
		}
	}
	return err
}

// close ends the run span, reports stage timings and releases the sinks.
func (s *session) close(err error) {
	s.root.End(err)
	s.root.Observe(s.metrics.ObserveStage)
	s.root.Log(s.logger)
	s.shutdown()
}

func (s *session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
}
