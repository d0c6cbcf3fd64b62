package cooccur

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
)

// "a b c d e" with a=0 ... e=4, every word a target and a context word.
var abcde = []int32{0, 1, 2, 3, 4}

func fullWindow(size int, dynamic bool) Window {
	return Window{Size: size, Dynamic: dynamic, TargetLimit: 5, ContextStart: 0, ContextEnd: 5}
}

func TestStaticWindowCentre(t *testing.T) {
	got := fullWindow(2, false).Emit(nil, abcde, 2)
	assert.Equal(t, []record.Record{
		{Idx1: 2, Idx2: 0, Val: 1},
		{Idx1: 2, Idx2: 1, Val: 1},
		{Idx1: 2, Idx2: 3, Val: 1},
		{Idx1: 2, Idx2: 4, Val: 1},
	}, got)
}

func TestDynamicWindowWeights(t *testing.T) {
	w := fullWindow(2, true)
	tests := []struct {
		name string
		j    int
		want []record.Record
	}{
		{"c centre", 2, []record.Record{{2, 0, 0.5}, {2, 1, 1.0}, {2, 3, 1.0}, {2, 4, 0.5}}},
		{"a clipped left", 0, []record.Record{{0, 1, 1.0}, {0, 2, 0.5}}},
		{"b clipped left", 1, []record.Record{{1, 0, 1.0}, {1, 2, 1.0}, {1, 3, 0.5}}},
		{"d clipped right", 3, []record.Record{{3, 1, 0.5}, {3, 2, 1.0}, {3, 4, 1.0}}},
		{"e clipped right", 4, []record.Record{{4, 2, 0.5}, {4, 3, 1.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Emit(nil, abcde, tt.j))
		})
	}
}

func TestDynamicWindowIsAsymmetricAtSegmentStart(t *testing.T) {
	// The window of a is clipped on the left: the start weight is
	// (3-0+1)/3 = 4/3 and drops by 1/3 at j itself, giving b=1, c=2/3, d=1/3.
	w := fullWindow(3, true)
	got := w.Emit(nil, abcde, 0)
	assert.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0].Val, 1e-6)
	assert.InDelta(t, 2.0/3, got[1].Val, 1e-6)
	assert.InDelta(t, 1.0/3, got[2].Val, 1e-6)
}

func TestUnknownTokensKeepTheirPosition(t *testing.T) {
	w := fullWindow(2, true)
	ids := []int32{0, -1, 2}
	// Target at j=2 still starts its window at position 0, so a gets the
	// distance-2 weight.
	assert.Equal(t, []record.Record{{2, 0, 0.5}}, w.Emit(nil, ids, 2))
	assert.Empty(t, w.Emit(nil, ids, 1), "unknown tokens are never targets")
}

func TestContextBandIsReindexed(t *testing.T) {
	w := Window{Size: 3, TargetLimit: 2, ContextStart: 1, ContextEnd: 3}
	ids := []int32{0, 1, 2, 3}

	assert.Equal(t, []record.Record{{0, 0, 1}, {0, 1, 1}}, w.Emit(nil, ids, 0))
	assert.Equal(t, []record.Record{{1, 1, 1}}, w.Emit(nil, ids, 1))
	assert.Empty(t, w.Emit(nil, ids, 2), "ids at or past TargetLimit are not targets")
}

func TestEmitAppendsToDst(t *testing.T) {
	w := fullWindow(1, false)
	dst := w.Emit(nil, abcde, 0)
	dst = w.Emit(dst, abcde, 4)
	assert.Equal(t, []record.Record{{0, 1, 1}, {4, 3, 1}}, dst)
}
