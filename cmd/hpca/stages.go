package main

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/cooccur"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/memory"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/metrics"
)

const (
	stageVocab   = "vocab"
	stageCooccur = "cooccur"
)

// cooccurSummary is the JSON-friendly view of cooccur.Result.
type cooccurSummary struct {
	Workers        int    `json:"workers"`
	BufferRecords  int    `json:"buffer_records"`
	RunFiles       int    `json:"run_files"`
	RecordsEmitted uint64 `json:"records_emitted"`
	UnknownTokens  uint64 `json:"unknown_tokens"`
	RecordsMerged  int64  `json:"records_merged"`
	RecordsOut     int64  `json:"records_out"`
	TargetsFound   uint64 `json:"targets_found"`
	ContextWords   int    `json:"context_words"`
}

func buildVocab(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (stageOutcome, error) {
	src, err := corpus.Open(cfg.Corpus.InputFile)
	if err != nil {
		return stageOutcome{}, err
	}
	defer src.Close()

	res, err := vocab.NewBuilder(src, vocab.Options{
		VocabFile:  cfg.Vocab.File,
		TableSize:  cfg.Vocab.TableSize,
		MaxWorkers: cfg.Workers.Max,
		PinCPU:     cfg.Workers.PinCPU,
	}, m).Build(ctx)
	if err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{Summary: res, Outputs: []string{res.Path}}, nil
}

func countCooccurrences(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (stageOutcome, error) {
	v, err := vocab.Load(cfg.Vocab.File, vocab.Bounds{
		MinFreq:    cfg.Cooccur.MinFreq,
		UpperBound: cfg.Cooccur.UpperBound,
		LowerBound: cfg.Cooccur.LowerBound,
	})
	if err != nil {
		return stageOutcome{}, err
	}
	src, err := corpus.Open(cfg.Corpus.InputFile)
	if err != nil {
		return stageOutcome{}, err
	}
	defer src.Close()

	res, err := cooccur.NewCounter(src, v, cooccur.Options{
		OutputDir:      cfg.Cooccur.OutputDir,
		ContextSize:    cfg.Cooccur.ContextSize,
		DynamicContext: cfg.Cooccur.DynamicContext,
		MaxWorkers:     cfg.Workers.Max,
		PinCPU:         cfg.Workers.PinCPU,
		MemoryBudget:   memory.Budget(cfg.Memory.Limit, memory.Available()),
		CompressRuns:   cfg.Cooccur.CompressRuns,
	}, m).Run(ctx)
	if err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{
		Summary: cooccurSummary{
			Workers:        res.Workers,
			BufferRecords:  res.BufferCapacity,
			RunFiles:       res.RunFiles,
			RecordsEmitted: res.RecordsEmitted,
			UnknownTokens:  res.UnknownTokens,
			RecordsMerged:  res.RecordsMerged,
			RecordsOut:     res.RecordsOut,
			TargetsFound:   res.Found.GetCardinality(),
			ContextWords:   res.ContextWords,
		},
		Outputs: []string{res.Output, res.TargetWordsFile, res.ContextWordsFile},
	}, nil
}
