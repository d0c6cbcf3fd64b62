// Package spill bounds a counting worker's memory. Records are buffered in a
// fixed-capacity slice; once it fills past capacity minus headroom the buffer
// is sorted, coalesced and flushed to a new run file.
package spill

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
)

// RunFile is one sorted, duplicate-free file produced by a spill.
type RunFile struct {
	Path    string
	Records int
}

// Config describes one worker's spill behaviour.
type Config struct {
	Dir      string
	Base     string
	Worker   corpus.Worker
	Capacity int
	// Headroom is the number of free slots that must remain after a
	// MaybeSpill check; 2*contextSize fits one full window.
	Headroom int
	Compress bool
	// OnSpill, when set, is called after every run file is closed.
	OnSpill func(RunFile)
}

// RunPath names the seq-th run file of worker. Names never collide across
// workers or across spills of one worker.
func RunPath(dir, base string, worker corpus.Worker, seq int, compress bool) string {
	name := fmt.Sprintf("%s-%s_%04d.bin", base, worker, seq)
	if compress {
		name += record.CompressedExt
	}
	return filepath.Join(dir, name)
}

// Manager owns a worker's record buffer and the run files flushed from it.
// It is not safe for concurrent use.
type Manager struct {
	cfg    Config
	buf    []record.Record
	seq    int
	runs   []RunFile
	logger *slog.Logger
}

// NewManager allocates the record buffer up front.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Headroom < 0 || cfg.Capacity <= cfg.Headroom {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageCount,
			"buffer of %d records cannot keep %d records of headroom; raise memory.limit or lower workers.max",
			cfg.Capacity, cfg.Headroom)
	}
	return &Manager{
		cfg:    cfg,
		buf:    make([]record.Record, 0, cfg.Capacity),
		logger: logger.WithComponent("spill").With("worker", cfg.Worker.String()),
	}, nil
}

// Append buffers r. A completely full buffer is spilled first so no record is
// ever dropped.
func (m *Manager) Append(r record.Record) error {
	if len(m.buf) == m.cfg.Capacity {
		if _, _, err := m.Spill(); err != nil {
			return err
		}
	}
	m.buf = append(m.buf, r)
	return nil
}

// MaybeSpill spills when fewer than Headroom free slots remain.
func (m *Manager) MaybeSpill() (RunFile, bool, error) {
	if len(m.buf) <= m.cfg.Capacity-m.cfg.Headroom {
		return RunFile{}, false, nil
	}
	return m.Spill()
}

// Spill sorts and coalesces the buffer, writes it to the next run file and
// resets the buffer. An empty buffer produces no file.
func (m *Manager) Spill() (RunFile, bool, error) {
	if len(m.buf) == 0 {
		return RunFile{}, false, nil
	}
	recs := record.SortAndCoalesce(m.buf)
	path := RunPath(m.cfg.Dir, m.cfg.Base, m.cfg.Worker, m.seq, m.cfg.Compress)
	if err := record.WriteFile(path, recs); err != nil {
		os.Remove(path)
		return RunFile{}, false, fmt.Errorf("spilling worker %s: %w", m.cfg.Worker, err)
	}
	run := RunFile{Path: path, Records: len(recs)}
	m.logger.Debug("spilled run file", "path", path, "buffered", len(m.buf), "records", len(recs))
	m.seq++
	m.runs = append(m.runs, run)
	m.buf = m.buf[:0]
	if m.cfg.OnSpill != nil {
		m.cfg.OnSpill(run)
	}
	return run, true, nil
}

// Close flushes whatever is still buffered.
func (m *Manager) Close() error {
	_, _, err := m.Spill()
	return err
}

// Len returns the number of buffered records.
func (m *Manager) Len() int { return len(m.buf) }

// Runs returns the run files produced so far, in creation order.
func (m *Manager) Runs() []RunFile { return m.runs }

// Paths returns the paths of Runs.
func (m *Manager) Paths() []string {
	paths := make([]string, len(m.runs))
	for i, r := range m.runs {
		paths[i] = r.Path
	}
	return paths
}
