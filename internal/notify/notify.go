// Package notify announces finished pipeline stages on Kafka so downstream
// jobs (the decomposition step, dashboards) can start without polling.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/kafka"
)

// StageCompleted is the JSON payload of one event.
type StageCompleted struct {
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Outputs    []string  `json:"outputs,omitempty"`
	Summary    any       `json:"summary,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Notifier struct {
	pub Publisher
	now func() time.Time
}

func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub, now: func() time.Time { return time.Now().UTC() }}
}

// NewRunID returns a fresh identifier shared by every stage of one run.
func NewRunID() string {
	return uuid.NewString()
}

// StageDone publishes ev keyed by its run id so all stages of a run land on
// one partition in order.
func (n *Notifier) StageDone(ctx context.Context, ev StageCompleted) error {
	if ev.FinishedAt.IsZero() {
		ev.FinishedAt = n.now()
	}
	return n.pub.Publish(ctx, kafka.Event{Key: ev.RunID, Value: ev})
}
