package matrix

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

func TestSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooccurrence.bin")
	require.NoError(t, record.WriteFile(path, []record.Record{
		{0, 1, 2.0}, {0, 4, 1.0}, {3, 0, 0.5}, {7, 2, 1.5},
	}))

	s, err := Summarize(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s.Rows)
	assert.Equal(t, uint64(5), s.Columns)
	assert.Equal(t, int64(4), s.NonZero)
	assert.Equal(t, 5.0, s.Total)
	assert.True(t, s.Sorted)
	assert.InDelta(t, 4.0/15, s.Density(), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.Contains(t, buf.String(), "rows     = 3")
}

func TestSummarizeDetectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.bin")
	require.NoError(t, record.WriteFile(path, []record.Record{{1, 1, 1}, {1, 1, 1}}))

	s, err := Summarize(path)
	require.NoError(t, err)
	assert.False(t, s.Sorted)
}

func TestSummarizeEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.bin")
	require.NoError(t, record.WriteFile(path, nil))

	s, err := Summarize(path)
	require.NoError(t, err)
	assert.Zero(t, s.Rows)
	assert.True(t, s.Sorted)
	assert.Zero(t, s.Density())
}

func TestSummarizeTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.bin")
	require.NoError(t, record.WriteFile(path, []record.Record{{1, 1, 1}}))
	require.NoError(t, os.Truncate(path, 7))

	_, err := Summarize(path)
	require.ErrorIs(t, err, apperrors.ErrCorruptRunFile)
}
