// Package hashtable implements the open-addressing token table used for
// vocabulary counting. Entries live in a dense array indexed by id; a separate
// fixed-size probe index maps hash slots to dense ids with linear probing.
//
// A Table is single-writer. Concurrent counting gives every worker its own
// Table instead of sharing one; a table that is no longer written to may be
// read from any number of goroutines.
//
// With PolicyShrink the table counts approximately: once the probe index is
// more than 70% occupied, every entry whose count is at or below a threshold
// is evicted and the threshold rises by one. Rare tokens may therefore be
// missing or undercounted; tokens that stay above the threshold are exact.
// An insert keeps shrinking until the index is back under MaxLoad, so when
// every count sits above the threshold a single insert can raise it several
// times and evict the whole table.
package hashtable

import (
	"slices"
	"strings"
)

// MaxLoad is the probe-index occupancy above which the table shrinks or grows.
const MaxLoad = 0.7

const emptySlot int32 = -1

// Policy selects what happens when the probe index passes MaxLoad.
type Policy int

const (
	// PolicyShrink evicts low-count entries; memory stays bounded and
	// counting becomes approximate.
	PolicyShrink Policy = iota
	// PolicyGrow doubles the probe index; counting stays exact.
	PolicyGrow
)

// Entry is one token and its occurrence count.
type Entry struct {
	Token string
	Count uint64
}

type Table struct {
	entries   []Entry
	slots     []int32
	policy    Policy
	threshold uint64
	shrinks   int
}

// MinCapacity is the smallest probe index that can hold an entry under
// MaxLoad.
const MinCapacity = 2

// New creates a table whose probe index has capacity slots.
func New(capacity int, policy Policy) *Table {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	t := &Table{
		entries:   make([]Entry, 0, initialDense(capacity)),
		policy:    policy,
		threshold: 1,
	}
	t.slots = newSlots(capacity)
	return t
}

func initialDense(capacity int) int {
	n := capacity / 8
	if n < 16 {
		n = 16
	}
	return n
}

func newSlots(capacity int) []int32 {
	slots := make([]int32, capacity)
	for i := range slots {
		slots[i] = emptySlot
	}
	return slots
}

// hash accumulates hash*256+byte over the token, reduced modulo capacity at
// every step so the result equals the full polynomial modulo capacity.
func hash(token string, capacity int) int {
	c := uint64(capacity)
	var h uint64
	for i := 0; i < len(token); i++ {
		h = (h*256 + uint64(token[i])) % c
	}
	return int(h)
}

// Get returns the dense id of token, probing linearly until an exact match or
// an empty slot.
func (t *Table) Get(token string) (int, bool) {
	capacity := len(t.slots)
	for i, probes := hash(token, capacity), 0; probes < capacity; probes++ {
		id := t.slots[i]
		if id == emptySlot {
			return 0, false
		}
		if t.entries[id].Token == token {
			return int(id), true
		}
		i++
		if i == capacity {
			i = 0
		}
	}
	return 0, false
}

// Insert appends token with count 0 and returns its dense id. The caller must
// have checked that token is absent. When the probe index would pass MaxLoad
// the table shrinks or grows first, so the returned id is valid until the
// next Insert.
func (t *Table) Insert(token string) int {
	for t.overloaded(len(t.entries) + 1) {
		if t.policy == PolicyGrow {
			t.rehash(len(t.slots) * 2)
		} else {
			t.Shrink()
		}
	}
	id := len(t.entries)
	t.entries = append(t.entries, Entry{Token: strings.Clone(token)})
	t.place(token, int32(id))
	return id
}

// Increment adds one occurrence to id.
func (t *Table) Increment(id int) {
	t.entries[id].Count++
}

// Add adds n occurrences to id.
func (t *Table) Add(id int, n uint64) {
	t.entries[id].Count += n
}

// Count looks token up and increments it, inserting it first when absent.
func (t *Table) Count(token string) {
	id, ok := t.Get(token)
	if !ok {
		id = t.Insert(token)
	}
	t.Increment(id)
}

// Merge adds n occurrences of token, inserting it when absent.
func (t *Table) Merge(token string, n uint64) {
	id, ok := t.Get(token)
	if !ok {
		id = t.Insert(token)
	}
	t.Add(id, n)
}

// Shrink evicts every entry whose count is at or below the current
// threshold, compacts the dense array, rebuilds the probe index and raises
// the threshold by one. Ids of surviving entries change.
func (t *Table) Shrink() {
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.Count > t.threshold {
			kept = append(kept, e)
		}
	}
	clear(t.entries[len(kept):])
	t.entries = kept
	t.threshold++
	t.shrinks++
	t.rehash(len(t.slots))
}

func (t *Table) overloaded(n int) bool {
	return float64(n) > MaxLoad*float64(len(t.slots))
}

func (t *Table) rehash(capacity int) {
	t.slots = newSlots(capacity)
	for id, e := range t.entries {
		t.place(e.Token, int32(id))
	}
}

func (t *Table) place(token string, id int32) {
	capacity := len(t.slots)
	i := hash(token, capacity)
	for t.slots[i] != emptySlot {
		i++
		if i == capacity {
			i = 0
		}
	}
	t.slots[i] = id
}

// Len returns the number of retained entries.
func (t *Table) Len() int { return len(t.entries) }

// Capacity returns the size of the probe index.
func (t *Table) Capacity() int { return len(t.slots) }

// Threshold returns the count at or below which the next Shrink evicts.
func (t *Table) Threshold() uint64 { return t.threshold }

// Shrinks returns how many times the table has shrunk.
func (t *Table) Shrinks() int { return t.shrinks }

// Entry returns the entry with the given id.
func (t *Table) Entry(id int) Entry { return t.entries[id] }

// Entries returns the dense entries in id order. The slice aliases the
// table and is invalidated by the next Insert.
func (t *Table) Entries() []Entry { return t.entries }

// Sorted returns a copy of the entries ordered by count descending. Equal
// counts keep id order, so the result is deterministic for a given insertion
// sequence.
func (t *Table) Sorted() []Entry {
	out := slices.Clone(t.entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		default:
			return 0
		}
	})
	return out
}
