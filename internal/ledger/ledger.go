// Package ledger records pipeline stage runs in PostgreSQL.
//
// Rows live in a `pipeline_runs` table:
//
//	CREATE TABLE pipeline_runs (
//	    run_id      TEXT        NOT NULL,
//	    stage       TEXT        NOT NULL,
//	    status      TEXT        NOT NULL,
//	    error       TEXT,
//	    summary     JSONB,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ,
//	    PRIMARY KEY (run_id, stage)
//	);
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/postgres"
)

// Run states.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id      TEXT        NOT NULL,
		stage       TEXT        NOT NULL,
		status      TEXT        NOT NULL,
		error       TEXT,
		summary     JSONB,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		PRIMARY KEY (run_id, stage)
	)`,
	`CREATE INDEX IF NOT EXISTS pipeline_runs_started_at ON pipeline_runs (started_at)`,
}

// DB is the subset of pkg/postgres.Client the ledger uses.
type DB interface {
	postgres.Execer
	InTx(ctx context.Context, fn func(tx postgres.Execer) error) error
}

type Ledger struct {
	db     DB
	now    func() time.Time
	logger *slog.Logger
}

func New(db DB) *Ledger {
	return &Ledger{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.WithComponent("ledger"),
	}
}

// EnsureSchema creates the table and its index when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	return l.db.InTx(ctx, func(tx postgres.Execer) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating pipeline_runs schema: %w", err)
			}
		}
		return nil
	})
}

// Start inserts a running row for stage. Restarting a stage under the same
// run id resets its row.
func (l *Ledger) Start(ctx context.Context, runID, stage string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, stage, status, started_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, stage) DO UPDATE
		 SET status = EXCLUDED.status, error = NULL, summary = NULL,
		     started_at = EXCLUDED.started_at, finished_at = NULL`,
		runID, stage, StatusRunning, l.now(),
	)
	if err != nil {
		return fmt.Errorf("recording start of %s: %w", stage, err)
	}
	return nil
}

// Finish marks stage succeeded or failed, storing summary as JSON.
func (l *Ledger) Finish(ctx context.Context, runID, stage string, summary any, stageErr error) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling %s summary: %w", stage, err)
	}
	status, errText := StatusSucceeded, any(nil)
	if stageErr != nil {
		status, errText = StatusFailed, stageErr.Error()
	}
	_, err = l.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = $3, error = $4, summary = $5, finished_at = $6
		 WHERE run_id = $1 AND stage = $2`,
		runID, stage, status, errText, data, l.now(),
	)
	if err != nil {
		return fmt.Errorf("recording end of %s: %w", stage, err)
	}
	l.logger.Info("stage recorded", "run_id", runID, "stage", stage, "status", status)
	return nil
}
