package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint64(100), cfg.Cooccur.MinFreq)
	assert.Equal(t, 5, cfg.Cooccur.ContextSize)
	assert.Equal(t, 1.0, cfg.Cooccur.UpperBound)
	assert.Equal(t, 0.00001, cfg.Cooccur.LowerBound)
	assert.Equal(t, 4*datasize.GB, cfg.Memory.Limit)
	assert.Equal(t, 8, cfg.Workers.Max)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipeline.yaml", `
corpus:
  inputFile: /data/corpus.txt
cooccur:
  contextSize: 3
  dynamicContext: true
memory:
  limit: 512MB
workers:
  max: 2
`)
	t.Setenv("HPCA_WORKERS_MAX", "6")
	t.Setenv("HPCA_MEMORY_LIMIT", "1GB")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/corpus.txt", cfg.Corpus.InputFile)
	assert.Equal(t, 3, cfg.Cooccur.ContextSize)
	assert.True(t, cfg.Cooccur.DynamicContext)
	assert.Equal(t, 6, cfg.Workers.Max)
	assert.Equal(t, datasize.GB, cfg.Memory.Limit)
	assert.Equal(t, uint64(100), cfg.Cooccur.MinFreq, "unset keys keep defaults")
}

func TestValidateCooccur(t *testing.T) {
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.txt", "a b c\n")
	vocab := writeFile(t, dir, "vocab.txt", "a 1\n")

	base := func() *Config {
		cfg := Default()
		cfg.Corpus.InputFile = corpus
		cfg.Vocab.File = vocab
		cfg.Cooccur.OutputDir = dir
		return cfg
	}
	require.NoError(t, base().ValidateCooccur())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing corpus", func(c *Config) { c.Corpus.InputFile = filepath.Join(dir, "nope") }, apperrors.ErrCorpusUnreadable},
		{"empty corpus", func(c *Config) { c.Corpus.InputFile = writeFile(t, dir, "empty.txt", "") }, apperrors.ErrEmptyCorpus},
		{"missing vocab", func(c *Config) { c.Vocab.File = filepath.Join(dir, "nope") }, apperrors.ErrVocabUnreadable},
		{"zero context", func(c *Config) { c.Cooccur.ContextSize = 0 }, apperrors.ErrInvalidConfig},
		{"inverted band", func(c *Config) { c.Cooccur.LowerBound = 0.5; c.Cooccur.UpperBound = 0.1 }, apperrors.ErrInvalidConfig},
		{"no workers", func(c *Config) { c.Workers.Max = 0 }, apperrors.ErrInvalidConfig},
		{"no memory", func(c *Config) { c.Memory.Limit = 0 }, apperrors.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.ValidateCooccur()
			require.ErrorIs(t, err, tt.want)
			assert.True(t, apperrors.IsConfig(err))
		})
	}
}

func TestValidateRunDoesNotNeedVocabFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Corpus.InputFile = writeFile(t, dir, "corpus.txt", "a b c\n")
	cfg.Vocab.File = filepath.Join(dir, "vocab.txt")
	cfg.Cooccur.OutputDir = dir

	require.NoError(t, cfg.ValidateRun())
}
