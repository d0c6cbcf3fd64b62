// Package cooccur counts windowed word-word cooccurrences over a corpus. Each
// worker scans its own range and spills sorted runs under a fixed memory
// budget. Once all workers have joined, the controller merges every worker's
// runs into one file per worker and then those files into the final sorted,
// deduplicated cooccurrence file.
package cooccur

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/c2h5oh/datasize"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/memory"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/merge"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/spill"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/worker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/tracing"
)

// Output file names inside Options.OutputDir.
const (
	BaseName         = "cooccurrence"
	FinalName        = BaseName + ".bin"
	TargetWordsName  = "target_words.txt"
	ContextWordsName = "context_words.txt"
)

const checkEvery = 4096

// Options configures a Counter.
type Options struct {
	OutputDir      string
	ContextSize    int
	DynamicContext bool
	MaxWorkers     int
	// CPUs bounds the worker count; 0 means runtime.NumCPU.
	CPUs   int
	PinCPU bool
	// MemoryBudget is shared evenly by all workers' record buffers.
	MemoryBudget datasize.ByteSize
	CompressRuns bool
}

// Result summarises one counting run.
type Result struct {
	Workers        int
	BufferCapacity int
	RunFiles       int
	RecordsEmitted uint64
	UnknownTokens  uint64
	RecordsMerged  int64
	RecordsOut     int64
	// Found holds every target id that cooccurred with a context word.
	Found            *roaring.Bitmap
	ContextWords     int
	Output           string
	TargetWordsFile  string
	ContextWordsFile string
}

// WorkerPath names the merged output of a numbered worker.
func WorkerPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%04d.bin", BaseName, index))
}

// Counter drives the count, merge and output stages.
type Counter struct {
	src     *corpus.Source
	vocab   *vocab.Frozen
	window  Window
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCounter(src *corpus.Source, v *vocab.Frozen, opts Options, m *metrics.Metrics) *Counter {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Counter{
		src:     src,
		vocab:   v,
		window:  NewWindow(v, opts.ContextSize, opts.DynamicContext),
		opts:    opts,
		metrics: m,
		logger:  logger.WithComponent("cooccur"),
	}
}

// workerOutput is what one worker hands back to the controller.
type workerOutput struct {
	paths   []string
	runs    int
	emitted uint64
	unknown uint64
}

// Run counts the whole corpus and writes the final cooccurrence file and the
// two word lists.
func (c *Counter) Run(ctx context.Context) (Result, error) {
	if c.opts.ContextSize < 1 {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageCount,
			"context size must be positive, got %d", c.opts.ContextSize)
	}
	plan, err := c.src.Partition(c.opts.MaxWorkers, c.opts.CPUs)
	if err != nil {
		return Result{}, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageCount, "%v", err)
	}
	if plan.Workers() == 0 {
		return Result{}, apperrors.Newf(apperrors.ErrEmptyCorpus, apperrors.StageCount, "%s", c.src.Path())
	}
	capacity := memory.Capacity(c.opts.MemoryBudget, plan.Workers())
	if headroom := 2 * c.opts.ContextSize; capacity <= headroom {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageCount,
			"memory budget %s leaves %d records per worker for %d workers, need more than %d",
			c.opts.MemoryBudget.HumanReadable(), capacity, plan.Workers(), headroom)
	}
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	c.logger.Info("counting cooccurrences",
		"corpus", c.src.Path(),
		"workers", plan.Workers(),
		"buffer_records", capacity,
		"targets", c.vocab.TargetLimit,
		"context_band", fmt.Sprintf("[%d,%d)", c.vocab.ContextStart, c.vocab.ContextEnd),
	)

	outputs := make([]workerOutput, plan.Workers())
	pool := worker.NewPool(c.opts.PinCPU)
	active := c.metrics.ActiveWorkers.WithLabelValues(apperrors.StageCount)
	pool.OnStart = active.Inc
	pool.OnDone = active.Dec
	countCtx, countSpan := tracing.StartStage(ctx, apperrors.StageCount)
	countSpan.SetAttr("workers", plan.Workers())
	err = pool.Run(countCtx, plan, func(ctx context.Context, r corpus.Range) error {
		out, err := c.countRange(ctx, r, capacity)
		if err != nil {
			return err
		}
		idx, _ := r.Worker.Index()
		outputs[idx] = out
		return nil
	})
	countSpan.End(err)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Workers:        plan.Workers(),
		BufferCapacity: capacity,
		Found:          roaring.New(),
	}
	for _, o := range outputs {
		res.RunFiles += o.runs
		res.RecordsEmitted += o.emitted
		res.UnknownTokens += o.unknown
	}
	countSpan.SetAttr("run_files", res.RunFiles)

	res.Output = filepath.Join(c.opts.OutputDir, FinalName)
	if err := c.mergeAll(ctx, plan, outputs, &res); err != nil {
		return Result{}, err
	}

	_, outSpan := tracing.StartStage(ctx, apperrors.StageOutput)
	err = c.writeWordLists(&res)
	outSpan.End(err)
	if err != nil {
		return Result{}, err
	}
	c.logger.Info("cooccurrence file written",
		"path", res.Output,
		"records", res.RecordsOut,
		"targets_found", res.Found.GetCardinality(),
		"context_words", res.ContextWords,
	)
	return res, nil
}

// mergeAll folds the per-worker run files and then the worker outputs into
// the final file, recording every target id that survives.
func (c *Counter) mergeAll(ctx context.Context, plan corpus.Plan, outputs []workerOutput, res *Result) (err error) {
	ctx, span := tracing.StartStage(ctx, apperrors.StageMerge)
	defer func() { span.End(err) }()

	inputs, err := c.mergeWorkers(ctx, plan, outputs)
	if err != nil {
		return err
	}
	stats, err := merge.Merge(ctx, inputs, res.Output, merge.Options{
		OnRecord: func(rec record.Record) { res.Found.Add(rec.Idx1) },
	})
	if err != nil {
		return err
	}
	c.metrics.ObserveMerge(metrics.ScopeFinal, stats.RecordsIn, stats.RecordsOut)
	res.RecordsMerged = stats.RecordsIn
	res.RecordsOut = stats.RecordsOut
	span.SetAttr("records_out", stats.RecordsOut)
	return nil
}

// countRange scans one range, spilling run files as the buffer fills.
func (c *Counter) countRange(ctx context.Context, r corpus.Range, capacity int) (workerOutput, error) {
	log := c.logger.With("worker", r.Worker.String())
	mgr, err := spill.NewManager(spill.Config{
		Dir:      c.opts.OutputDir,
		Base:     BaseName,
		Worker:   r.Worker,
		Capacity: capacity,
		Headroom: 2 * c.opts.ContextSize,
		Compress: c.opts.CompressRuns,
		OnSpill: func(run spill.RunFile) {
			c.metrics.SpillsTotal.Inc()
			c.metrics.RunFileRecords.Observe(float64(run.Records))
		},
	})
	if err != nil {
		return workerOutput{}, err
	}
	sc, err := c.src.Scan(r)
	if err != nil {
		return workerOutput{}, err
	}
	defer sc.Close()

	var (
		out    workerOutput
		ids    []int32
		recs   []record.Record
		tokens uint64
		lines  int
	)
	for sc.Next() {
		lines++
		if lines%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return workerOutput{}, err
			}
		}
		ids = ids[:0]
		for _, tok := range sc.Tokens() {
			id := c.vocab.ID(tok)
			if id == vocab.Unknown {
				out.unknown++
			}
			ids = append(ids, id)
		}
		tokens += uint64(len(ids))
		for j := range ids {
			recs = c.window.Emit(recs[:0], ids, j)
			if len(recs) == 0 {
				continue
			}
			for _, rec := range recs {
				if err := mgr.Append(rec); err != nil {
					return workerOutput{}, err
				}
			}
			out.emitted += uint64(len(recs))
			if _, _, err := mgr.MaybeSpill(); err != nil {
				return workerOutput{}, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return workerOutput{}, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageCount, "worker %s: %v", r.Worker, err)
	}
	if err := mgr.Close(); err != nil {
		return workerOutput{}, err
	}
	c.metrics.TokensScannedTotal.WithLabelValues(apperrors.StageCount).Add(float64(tokens))
	c.metrics.UnknownTokensTotal.Add(float64(out.unknown))
	c.metrics.RecordsEmittedTotal.Add(float64(out.emitted))
	out.runs = len(mgr.Runs())
	log.Debug("range counted", "tokens", tokens, "emitted", out.emitted, "run_files", out.runs)

	out.paths = mgr.Paths()
	return out, nil
}

// mergeWorkers merges each numbered worker's runs into its own file, one
// worker at a time. The inline worker's runs are left for the final merge.
func (c *Counter) mergeWorkers(ctx context.Context, plan corpus.Plan, outputs []workerOutput) ([]string, error) {
	if plan.Inline() {
		return outputs[0].paths, nil
	}
	inputs := make([]string, 0, len(outputs))
	for i, o := range outputs {
		path := WorkerPath(c.opts.OutputDir, i)
		stats, err := merge.Merge(ctx, o.paths, path, merge.Options{})
		if err != nil {
			return nil, err
		}
		c.metrics.ObserveMerge(metrics.ScopeWorker, stats.RecordsIn, stats.RecordsOut)
		inputs = append(inputs, path)
	}
	return inputs, nil
}
