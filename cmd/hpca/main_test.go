package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/cooccur"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("the cat sat on the mat\n")
		b.WriteString("the dog sat on the log\n")
	}
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunStatsInspect(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir)
	vocabFile := filepath.Join(dir, "vocab.txt")
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "run",
		"--log-level", "error",
		"-i", input, "-v", vocabFile, "-o", outDir,
		"--min-freq", "1", "--upper-bound", "1", "--lower-bound", "0",
		"-c", "2", "-t", "2", "-m", "64MB")
	require.NoError(t, err)

	entries, err := vocab.ReadFile(vocabFile)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "the", entries[0].Token)
	assert.Equal(t, uint64(200), entries[0].Count)

	assert.FileExists(t, filepath.Join(outDir, cooccur.FinalName))
	assert.FileExists(t, filepath.Join(outDir, cooccur.TargetWordsName))
	assert.FileExists(t, filepath.Join(outDir, cooccur.ContextWordsName))

	out, err := execute(t, "stats", "--log-level", "error", vocabFile)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = execute(t, "inspect", "--log-level", "error", filepath.Join(outDir, cooccur.FinalName))
	require.NoError(t, err)
	assert.Contains(t, out, "sorted   = true")
}

func TestVocabRejectsMissingCorpus(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "vocab", "--log-level", "error",
		"-i", filepath.Join(dir, "missing.txt"), "-v", filepath.Join(dir, "vocab.txt"))
	require.ErrorIs(t, err, apperrors.ErrCorpusUnreadable)
	assert.NoFileExists(t, filepath.Join(dir, "vocab.txt"))
}

func TestCooccurRequiresVocabulary(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir)
	_, err := execute(t, "cooccur", "--log-level", "error",
		"-i", input, "-v", filepath.Join(dir, "vocab.txt"), "-o", dir)
	require.ErrorIs(t, err, apperrors.ErrVocabUnreadable)
}

func TestInvalidMemoryFlag(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir)
	_, err := execute(t, "run", "--log-level", "error", "-i", input, "-m", "lots")
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
