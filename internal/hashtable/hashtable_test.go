package hashtable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetIncrement(t *testing.T) {
	tbl := New(64, PolicyShrink)

	_, ok := tbl.Get("hello")
	require.False(t, ok)

	id := tbl.Insert("hello")
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, tbl.Insert("world"))

	got, ok := tbl.Get("hello")
	require.True(t, ok)
	assert.Equal(t, id, got)

	tbl.Increment(id)
	tbl.Increment(id)
	tbl.Add(id, 3)
	assert.Equal(t, Entry{Token: "hello", Count: 5}, tbl.Entry(id))
	assert.Equal(t, uint64(0), tbl.Entry(1).Count, "new entries start at zero")
}

func TestInsertCopiesToken(t *testing.T) {
	tbl := New(16, PolicyGrow)
	buf := []byte("cat")
	tbl.Insert(string(buf))
	buf[0] = 'b'

	_, ok := tbl.Get("cat")
	assert.True(t, ok)
}

func TestHashIsPolynomialModCapacity(t *testing.T) {
	// "ab" = 97*256 + 98 = 24930
	assert.Equal(t, 24930%1000, hash("ab", 1000))
	assert.Equal(t, hash("token", 977), hash("token", 977))
	assert.Equal(t, 0, hash("", 10))
}

func TestCollidingKeysProbeLinearly(t *testing.T) {
	// With capacity 256 the hash only depends on the last byte.
	tbl := New(256, PolicyGrow)
	tbl.Count("xa")
	tbl.Count("ya")
	tbl.Count("ya")

	x, ok := tbl.Get("xa")
	require.True(t, ok)
	y, ok := tbl.Get("ya")
	require.True(t, ok)
	assert.NotEqual(t, x, y)
	assert.Equal(t, uint64(1), tbl.Entry(x).Count)
	assert.Equal(t, uint64(2), tbl.Entry(y).Count)
	_, ok = tbl.Get("za")
	assert.False(t, ok)
}

func TestShrinkKeepsFrequentTokens(t *testing.T) {
	const capacity = 100
	tbl := New(capacity, PolicyShrink)

	for i := 0; i < 10; i++ {
		tbl.Count("frequent")
	}
	singletons := int(MaxLoad*capacity) + 10
	for i := 0; i < singletons; i++ {
		tbl.Count(fmt.Sprintf("w%d", i))
	}
	for i := 0; i < 5; i++ {
		tbl.Count("frequent")
	}

	require.GreaterOrEqual(t, tbl.Shrinks(), 1)
	id, ok := tbl.Get("frequent")
	require.True(t, ok)
	assert.Equal(t, uint64(15), tbl.Entry(id).Count)

	// Tokens at or below the threshold at shrink time may be gone.
	_, ok = tbl.Get("w0")
	assert.False(t, ok)
	assert.LessOrEqual(t, float64(tbl.Len()), MaxLoad*capacity)
}

func TestShrinkRaisesThreshold(t *testing.T) {
	tbl := New(32, PolicyShrink)
	tbl.Merge("two", 2)
	tbl.Merge("one", 1)
	tbl.Merge("three", 3)

	assert.Equal(t, uint64(1), tbl.Threshold())
	tbl.Shrink()
	assert.Equal(t, uint64(2), tbl.Threshold())
	assert.Equal(t, 2, tbl.Len())
	tbl.Shrink()
	assert.Equal(t, 1, tbl.Len())

	id, ok := tbl.Get("three")
	require.True(t, ok)
	assert.Equal(t, 0, id, "ids are compacted")
	_, ok = tbl.Get("two")
	assert.False(t, ok)
}

func TestInsertShrinksUntilUnderLoad(t *testing.T) {
	tbl := New(10, PolicyShrink)
	for i := 0; i < 7; i++ {
		tbl.Merge(fmt.Sprintf("w%d", i), 5)
	}
	require.Equal(t, 0, tbl.Shrinks())

	// Nothing is evictable until the threshold climbs past 5.
	tbl.Merge("late", 1)
	assert.Equal(t, 5, tbl.Shrinks())
	assert.Equal(t, uint64(6), tbl.Threshold())
	assert.Equal(t, 1, tbl.Len())
	id, ok := tbl.Get("late")
	require.True(t, ok)
	assert.Equal(t, uint64(1), tbl.Entry(id).Count)
	_, ok = tbl.Get("w0")
	assert.False(t, ok)
}

func TestGrowPolicyIsExact(t *testing.T) {
	tbl := New(8, PolicyGrow)
	for round := 1; round <= 3; round++ {
		for i := 0; i < 500; i++ {
			tbl.Count(fmt.Sprintf("tok%d", i))
		}
	}
	assert.Equal(t, 500, tbl.Len())
	assert.Equal(t, 0, tbl.Shrinks())
	assert.Greater(t, tbl.Capacity(), 500)
	for i := 0; i < 500; i++ {
		id, ok := tbl.Get(fmt.Sprintf("tok%d", i))
		require.True(t, ok)
		require.Equal(t, uint64(3), tbl.Entry(id).Count)
	}
}

func TestSortedIsCountDescendingWithStableTies(t *testing.T) {
	tbl := New(16, PolicyGrow)
	tbl.Merge("b", 2)
	tbl.Merge("a", 5)
	tbl.Merge("d", 2)
	tbl.Merge("c", 7)

	assert.Equal(t, []Entry{
		{"c", 7}, {"a", 5}, {"b", 2}, {"d", 2},
	}, tbl.Sorted())
	assert.Equal(t, "b", tbl.Entries()[0].Token, "Sorted does not reorder the table")
}

func BenchmarkCount(b *testing.B) {
	tokens := make([]string, 4096)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i%1500)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tbl := New(1<<12, PolicyShrink)
		for _, tok := range tokens {
			tbl.Count(tok)
		}
	}
}
