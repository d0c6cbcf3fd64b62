// Package health tracks the state of pipeline stages so a long run can be
// probed over HTTP while it works through a corpus.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status of one stage or of the run as a whole.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// StageHealth is the state of one stage.
type StageHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`

	started time.Time
}

// Report is the state of every stage seen so far. The overall status is
// failed if any stage failed, running if any is running, done otherwise.
type Report struct {
	RunID     string        `json:"run_id"`
	Status    Status        `json:"status"`
	Stages    []StageHealth `json:"stages"`
	Timestamp string        `json:"timestamp"`
}

// Tracker records stage transitions. It is safe for concurrent use.
type Tracker struct {
	runID  string
	mu     sync.RWMutex
	stages map[string]*StageHealth
	order  []string
	now    func() time.Time
}

func NewTracker(runID string, stages ...string) *Tracker {
	t := &Tracker{
		runID:  runID,
		stages: make(map[string]*StageHealth),
		now:    time.Now,
	}
	for _, name := range stages {
		t.stage(name)
	}
	return t
}

func (t *Tracker) stage(name string) *StageHealth {
	s, ok := t.stages[name]
	if !ok {
		s = &StageHealth{Name: name, Status: StatusPending}
		t.stages[name] = s
		t.order = append(t.order, name)
	}
	return s
}

// Begin marks stage as running.
func (t *Tracker) Begin(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stage(stage)
	s.Status = StatusRunning
	s.Message = ""
	s.started = t.now()
}

// Done marks stage as finished, failed when err is non-nil.
func (t *Tracker) Done(stage string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stage(stage)
	s.Status = StatusDone
	if err != nil {
		s.Status = StatusFailed
		s.Message = err.Error()
	}
	if !s.started.IsZero() {
		s.Elapsed = t.now().Sub(s.started).Round(time.Millisecond).String()
	}
}

// Report snapshots the tracker. Running stages report their elapsed time so
// far.
func (t *Tracker) Report() Report {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := t.now()
	r := Report{
		RunID:     t.runID,
		Status:    StatusDone,
		Stages:    make([]StageHealth, 0, len(t.order)),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	pending := false
	for _, name := range t.order {
		s := *t.stages[name]
		switch s.Status {
		case StatusRunning:
			s.Elapsed = now.Sub(s.started).Round(time.Millisecond).String()
			if r.Status != StatusFailed {
				r.Status = StatusRunning
			}
		case StatusFailed:
			r.Status = StatusFailed
		case StatusPending:
			pending = true
		}
		r.Stages = append(r.Stages, s)
	}
	if r.Status == StatusDone && pending {
		r.Status = StatusRunning
	}
	return r
}

// Failed lists the stages that ended in error, sorted by name.
func (t *Tracker) Failed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for name, s := range t.stages {
		if s.Status == StatusFailed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Handler serves the report as JSON; a failed run answers 503.
func (t *Tracker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report := t.Report()
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusFailed {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
