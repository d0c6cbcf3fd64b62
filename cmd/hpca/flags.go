package main

import (
	"github.com/c2h5oh/datasize"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

// Flags registered here override the matching config values only when set on
// the command line.

type vocabFlags struct {
	input     string
	vocabFile string
	tableSize int
	workers   int
}

func (f *vocabFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.input, "input", "i", "", "preprocessed corpus file (plain or gzip)")
	fs.StringVarP(&f.vocabFile, "vocab-file", "v", "", "vocabulary file")
	fs.IntVar(&f.tableSize, "table-size", 0, "initial per-worker hash table capacity")
	fs.IntVarP(&f.workers, "workers", "t", 0, "maximum number of workers")
}

func (f *vocabFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("input") {
		cfg.Corpus.InputFile = f.input
	}
	if fs.Changed("vocab-file") {
		cfg.Vocab.File = f.vocabFile
	}
	if fs.Changed("table-size") {
		cfg.Vocab.TableSize = f.tableSize
	}
	if fs.Changed("workers") {
		cfg.Workers.Max = f.workers
	}
}

type cooccurFlags struct {
	outputDir    string
	minFreq      uint64
	upperBound   float64
	lowerBound   float64
	contextSize  int
	dynamic      bool
	memory       string
	compressRuns bool
}

func (f *cooccurFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for cooccurrence files")
	fs.Uint64Var(&f.minFreq, "min-freq", 0, "minimum count of a target word")
	fs.Float64Var(&f.upperBound, "upper-bound", 0, "upper relative frequency of context words (exclusive)")
	fs.Float64Var(&f.lowerBound, "lower-bound", 0, "lower relative frequency of context words (inclusive)")
	fs.IntVarP(&f.contextSize, "context-size", "c", 0, "words on each side of the centre")
	fs.BoolVar(&f.dynamic, "dynamic-context", false, "weight context words by distance")
	fs.StringVarP(&f.memory, "memory", "m", "", "soft memory limit shared by all workers, e.g. 4GB")
	fs.BoolVar(&f.compressRuns, "compress-runs", false, "lz4-compress intermediate run files")
}

func (f *cooccurFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("output-dir") {
		cfg.Cooccur.OutputDir = f.outputDir
	}
	if fs.Changed("min-freq") {
		cfg.Cooccur.MinFreq = f.minFreq
	}
	if fs.Changed("upper-bound") {
		cfg.Cooccur.UpperBound = f.upperBound
	}
	if fs.Changed("lower-bound") {
		cfg.Cooccur.LowerBound = f.lowerBound
	}
	if fs.Changed("context-size") {
		cfg.Cooccur.ContextSize = f.contextSize
	}
	if fs.Changed("dynamic-context") {
		cfg.Cooccur.DynamicContext = f.dynamic
	}
	if fs.Changed("compress-runs") {
		cfg.Cooccur.CompressRuns = f.compressRuns
	}
	if fs.Changed("memory") {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(f.memory)); err != nil {
			return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.StageConfig,
				"--memory %q: %v", f.memory, err)
		}
		cfg.Memory.Limit = size
	}
	return nil
}
