package vocab

import (
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/hashtable"
	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

// Unknown is the id of a token missing from the vocabulary.
const Unknown int32 = -1

// Bounds selects target and context words.
type Bounds struct {
	// MinFreq is the smallest count of a target word.
	MinFreq uint64
	// UpperBound and LowerBound delimit the relative frequency band
	// [LowerBound, UpperBound) of context words.
	UpperBound float64
	LowerBound float64
}

// Frozen is a read-only vocabulary. Ids follow file order, so the most
// frequent token has id 0. It is safe for concurrent lookups.
type Frozen struct {
	entries []hashtable.Entry
	index   *hashtable.Table
	total   uint64

	// TargetLimit is the number of tokens with count >= MinFreq; target ids
	// are [0, TargetLimit).
	TargetLimit int
	// ContextStart and ContextEnd delimit the context band
	// [ContextStart, ContextEnd): tokens whose relative frequency lies in
	// [LowerBound, UpperBound).
	ContextStart int
	ContextEnd   int
}

// Load reads a vocabulary file and freezes it.
func Load(path string, b Bounds) (*Frozen, error) {
	entries, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Freeze(entries, b)
}

// Freeze indexes entries, which must be unique and sorted by count
// descending.
func Freeze(entries []hashtable.Entry, b Bounds) (*Frozen, error) {
	index := hashtable.New(2*len(entries)+hashtable.MinCapacity, hashtable.PolicyGrow)
	var total uint64
	for i, e := range entries {
		if i > 0 && e.Count > entries[i-1].Count {
			return nil, apperrors.Newf(apperrors.ErrMalformedVocab, apperrors.StageConfig,
				"entry %d (%q) is not sorted by count descending", i+1, e.Token)
		}
		if _, dup := index.Get(e.Token); dup {
			return nil, apperrors.Newf(apperrors.ErrMalformedVocab, apperrors.StageConfig,
				"duplicate token %q at entry %d", e.Token, i+1)
		}
		id := index.Insert(e.Token)
		index.Add(id, e.Count)
		total += e.Count
	}

	f := &Frozen{entries: entries, index: index, total: total}
	f.TargetLimit = countWhile(entries, func(e hashtable.Entry) bool { return e.Count >= b.MinFreq })
	f.ContextStart = countWhile(entries, func(e hashtable.Entry) bool { return f.freq(e) >= b.UpperBound })
	f.ContextEnd = countWhile(entries, func(e hashtable.Entry) bool { return f.freq(e) >= b.LowerBound })
	if f.ContextEnd < f.ContextStart {
		f.ContextEnd = f.ContextStart
	}
	return f, nil
}

// countWhile returns the length of the longest prefix whose entries satisfy
// pred. Entries are sorted, so this is also the number that satisfy it.
func countWhile(entries []hashtable.Entry, pred func(hashtable.Entry) bool) int {
	for i, e := range entries {
		if !pred(e) {
			return i
		}
	}
	return len(entries)
}

func (f *Frozen) freq(e hashtable.Entry) float64 {
	if f.total == 0 {
		return 0
	}
	return float64(e.Count) / float64(f.total)
}

// ID returns the id of token, or Unknown.
func (f *Frozen) ID(token string) int32 {
	id, ok := f.index.Get(token)
	if !ok {
		return Unknown
	}
	return int32(id)
}

// IsTarget reports whether id is a target word.
func (f *Frozen) IsTarget(id int32) bool {
	return id >= 0 && int(id) < f.TargetLimit
}

// ContextIndex returns id relative to the start of the context band, and
// false when id is outside the band.
func (f *Frozen) ContextIndex(id int32) (uint32, bool) {
	if int(id) < f.ContextStart || int(id) >= f.ContextEnd {
		return 0, false
	}
	return uint32(int(id) - f.ContextStart), true
}

func (f *Frozen) Len() int { return len(f.entries) }

// Total returns the sum of all counts.
func (f *Frozen) Total() uint64 { return f.total }

// Token returns the token with the given id.
func (f *Frozen) Token(id int) string { return f.entries[id].Token }

// Entries returns the vocabulary in id order.
func (f *Frozen) Entries() []hashtable.Entry { return f.entries }

// ContextWords returns the tokens of the context band in band order.
func (f *Frozen) ContextWords() []string {
	words := make([]string, 0, f.ContextEnd-f.ContextStart)
	for _, e := range f.entries[f.ContextStart:f.ContextEnd] {
		words = append(words, e.Token)
	}
	return words
}
