package spill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

func newManager(t *testing.T, capacity, headroom int) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Dir:      t.TempDir(),
		Base:     "cooccurrence",
		Worker:   corpus.Numbered(2),
		Capacity: capacity,
		Headroom: headroom,
	})
	require.NoError(t, err)
	return m
}

func TestRunPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "cooccurrence-3_0012.bin"),
		RunPath("out", "cooccurrence", corpus.Numbered(3), 12, false))
	assert.Equal(t, filepath.Join("out", "cooccurrence-inline_0000.bin.lz4"),
		RunPath("out", "cooccurrence", corpus.Inline(), 0, true))
}

func TestNewManagerRejectsTooSmallBuffer(t *testing.T) {
	_, err := NewManager(Config{Dir: t.TempDir(), Base: "c", Worker: corpus.Inline(), Capacity: 4, Headroom: 4})
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestMaybeSpillHonoursHeadroom(t *testing.T) {
	m := newManager(t, 10, 4)
	for i := 0; i < 6; i++ {
		require.NoError(t, m.Append(record.Record{Idx1: 1, Idx2: uint32(i), Val: 1}))
	}
	_, spilled, err := m.MaybeSpill()
	require.NoError(t, err)
	assert.False(t, spilled, "6 <= 10-4")

	require.NoError(t, m.Append(record.Record{Idx1: 0, Idx2: 0, Val: 1}))
	run, spilled, err := m.MaybeSpill()
	require.NoError(t, err)
	require.True(t, spilled)
	assert.Equal(t, 7, run.Records)
	assert.Zero(t, m.Len())

	recs, err := record.ReadFile(run.Path)
	require.NoError(t, err)
	assert.Equal(t, record.Record{Idx1: 0, Idx2: 0, Val: 1}, recs[0], "run files are sorted")
}

func TestSpillCoalescesDuplicates(t *testing.T) {
	m := newManager(t, 16, 2)
	for _, r := range []record.Record{{5, 7, 1}, {2, 3, 0.5}, {5, 7, 1}, {2, 3, 0.25}} {
		require.NoError(t, m.Append(r))
	}
	run, spilled, err := m.Spill()
	require.NoError(t, err)
	require.True(t, spilled)

	recs, err := record.ReadFile(run.Path)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{2, 3, 0.75}, {5, 7, 2}}, recs)
}

func TestAppendNeverDropsOnFullBuffer(t *testing.T) {
	m := newManager(t, 5, 1)
	var total float32
	for i := 0; i < 23; i++ {
		require.NoError(t, m.Append(record.Record{Idx1: uint32(i % 3), Idx2: uint32(i), Val: 1}))
		total++
	}
	require.NoError(t, m.Close())

	var got float32
	for _, run := range m.Runs() {
		recs, err := record.ReadFile(run.Path)
		require.NoError(t, err)
		for _, r := range recs {
			got += r.Val
		}
	}
	assert.Equal(t, total, got)
	assert.Len(t, m.Runs(), 5)
	assert.Len(t, m.Paths(), 5)
}

func TestCloseWithEmptyBufferWritesNothing(t *testing.T) {
	m := newManager(t, 8, 2)
	require.NoError(t, m.Close())
	assert.Empty(t, m.Runs())

	entries, err := os.ReadDir(m.cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOnSpillHook(t *testing.T) {
	var seen []RunFile
	m, err := NewManager(Config{
		Dir: t.TempDir(), Base: "c", Worker: corpus.Inline(),
		Capacity: 4, Headroom: 1, Compress: true,
		OnSpill: func(r RunFile) { seen = append(seen, r) },
	})
	require.NoError(t, err)
	require.NoError(t, m.Append(record.Record{Idx1: 1, Idx2: 1, Val: 1}))
	require.NoError(t, m.Close())

	require.Len(t, seen, 1)
	assert.True(t, record.IsCompressed(seen[0].Path))
}
