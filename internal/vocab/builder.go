// Package vocab builds the frequency-sorted vocabulary of a corpus and loads
// it back as the frozen token-to-id mapping used for cooccurrence counting.
//
// Counting is approximate: every worker counts into its own shrinking hash
// table, so tokens rare enough to be evicted may be missing or undercounted.
package vocab

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/hashtable"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/worker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/tracing"
)

const (
	progressEvery = 1_000_000
	checkEvery    = 4096
)

// Span names of the build phases, kept apart from the cooccurrence stages in
// the stage-duration histogram.
const (
	SpanCount = "vocab.count"
	SpanMerge = "vocab.merge"
)

// Options configures a Builder.
type Options struct {
	VocabFile  string
	TableSize  int
	MaxWorkers int
	// CPUs bounds the worker count; 0 means runtime.NumCPU.
	CPUs   int
	PinCPU bool
}

// Result summarises one build.
type Result struct {
	Path    string
	Workers int
	Tokens  uint64
	Types   int
	Shrinks int
}

// Builder counts tokens over a corpus and writes the vocabulary file.
type Builder struct {
	src     *corpus.Source
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBuilder(src *corpus.Source, opts Options, m *metrics.Metrics) *Builder {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Builder{
		src:     src,
		opts:    opts,
		metrics: m,
		logger:  logger.WithComponent("vocab"),
	}
}

// ShardPath names the private table dump of worker index.
func ShardPath(vocabFile string, index int) string {
	return fmt.Sprintf("%s-%d", vocabFile, index)
}

type workerResult struct {
	table   *hashtable.Table
	tokens  uint64
	shrinks int
}

// Build partitions the corpus, counts every range into a private table, merges
// the tables and writes the vocabulary sorted by count descending.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	plan, err := b.src.Partition(b.opts.MaxWorkers, b.opts.CPUs)
	if err != nil {
		return Result{}, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageVocab, "%v", err)
	}
	if plan.Workers() == 0 {
		return Result{}, apperrors.Newf(apperrors.ErrEmptyCorpus, apperrors.StageVocab, "%s", b.src.Path())
	}
	b.logger.Info("counting vocabulary", "corpus", b.src.Path(), "workers", plan.Workers())

	results := make([]workerResult, plan.Workers())
	pool := worker.NewPool(b.opts.PinCPU)
	active := b.metrics.ActiveWorkers.WithLabelValues(apperrors.StageVocab)
	pool.OnStart = active.Inc
	pool.OnDone = active.Dec
	countCtx, countSpan := tracing.StartStage(ctx, SpanCount)
	countSpan.SetAttr("workers", plan.Workers())
	err = pool.Run(countCtx, plan, func(ctx context.Context, r corpus.Range) error {
		res, err := b.count(ctx, r)
		if err != nil {
			return err
		}
		slot := 0
		if idx, ok := r.Worker.Index(); ok {
			slot = idx
			if err := WriteFile(ShardPath(b.opts.VocabFile, idx), res.table.Entries()); err != nil {
				return fmt.Errorf("worker %s: %w", r.Worker, err)
			}
			res.table = nil
		}
		results[slot] = res
		return nil
	})
	countSpan.End(err)
	if err != nil {
		return Result{}, err
	}

	out := Result{Path: b.opts.VocabFile, Workers: plan.Workers()}
	for _, r := range results {
		out.Tokens += r.tokens
		out.Shrinks += r.shrinks
	}

	var final *hashtable.Table
	if plan.Inline() {
		final = results[0].table
	} else {
		_, mergeSpan := tracing.StartStage(ctx, SpanMerge)
		final, err = b.mergeShards(plan.Workers())
		mergeSpan.End(err)
		if err != nil {
			return Result{}, err
		}
	}

	entries := final.Sorted()
	if err := WriteFile(b.opts.VocabFile, entries); err != nil {
		return Result{}, fmt.Errorf("finalizing vocabulary: %w", err)
	}
	out.Types = len(entries)
	b.logger.Info("vocabulary written", "path", out.Path, "types", out.Types, "tokens", out.Tokens)
	return out, nil
}

func (b *Builder) count(ctx context.Context, r corpus.Range) (workerResult, error) {
	log := b.logger.With("worker", r.Worker.String())
	sc, err := b.src.Scan(r)
	if err != nil {
		return workerResult{}, err
	}
	defer sc.Close()

	table := hashtable.New(b.opts.TableSize, hashtable.PolicyShrink)
	var tokens, lines uint64
	nextProgress := uint64(progressEvery)
	for sc.Next() {
		lines++
		if lines%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return workerResult{}, err
			}
		}
		for _, tok := range sc.Tokens() {
			table.Count(tok)
		}
		tokens += uint64(len(sc.Tokens()))
		if tokens >= nextProgress {
			log.Debug("counting", "tokens", tokens, "types", table.Len(), "shrinks", table.Shrinks())
			nextProgress += progressEvery
		}
	}
	if err := sc.Err(); err != nil {
		return workerResult{}, apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.StageVocab, "worker %s: %v", r.Worker, err)
	}
	b.metrics.TokensScannedTotal.WithLabelValues(apperrors.StageVocab).Add(float64(tokens))
	b.metrics.TableShrinksTotal.Add(float64(table.Shrinks()))
	log.Debug("range counted", "tokens", tokens, "types", table.Len(), "threshold", table.Threshold())
	return workerResult{table: table, tokens: tokens, shrinks: table.Shrinks()}, nil
}

// mergeShards folds every shard file into one exact table, deleting each
// shard once it has been read.
func (b *Builder) mergeShards(workers int) (*hashtable.Table, error) {
	combined := hashtable.New(b.opts.TableSize, hashtable.PolicyGrow)
	for i := 0; i < workers; i++ {
		path := ShardPath(b.opts.VocabFile, i)
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrShardMissing, apperrors.StageMerge, "%s: %v", path, err)
		}
		err = readEntries(f, func(e hashtable.Entry) error {
			combined.Merge(e.Token, e.Count)
			return nil
		})
		f.Close()
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrShardMissing, apperrors.StageMerge, "%s: %v", path, err)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing shard %s: %w", path, err)
		}
	}
	return combined, nil
}
