package vocab

import (
	"fmt"
	"io"
	"math"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/hashtable"
)

// CountThresholds are the occurrence counts reported by Describe.
var CountThresholds = []uint64{10000, 5000, 1000, 500, 100, 50, 10, 5, 4, 3, 2}

// Level is the number of word types at or above some threshold.
type Level struct {
	Threshold float64
	Types     int
}

// Stats describes a vocabulary.
type Stats struct {
	Types  int
	Tokens uint64
	// ByCount holds, for every CountThresholds value, the types with at
	// least that many occurrences.
	ByCount []Level
	// ByProbability holds the types with probability of occurrence >= 10^-k
	// for k = 0, 1, ... until the rarest word is covered.
	ByProbability []Level
}

// Describe computes descriptive statistics over a vocabulary.
func Describe(entries []hashtable.Entry) Stats {
	s := Stats{Types: len(entries)}
	for _, e := range entries {
		s.Tokens += e.Count
	}
	for _, th := range CountThresholds {
		s.ByCount = append(s.ByCount, Level{
			Threshold: float64(th),
			Types:     countIf(entries, func(e hashtable.Entry) bool { return e.Count >= th }),
		})
	}
	if s.Tokens == 0 {
		return s
	}
	seen := countIf(entries, func(e hashtable.Entry) bool { return e.Count > 0 })
	for k := 0; ; k++ {
		th := math.Pow(10, -float64(k))
		n := countIf(entries, func(e hashtable.Entry) bool {
			return float64(e.Count)/float64(s.Tokens) >= th
		})
		s.ByProbability = append(s.ByProbability, Level{Threshold: th, Types: n})
		if n >= seen {
			return s
		}
	}
}

func countIf(entries []hashtable.Entry, pred func(hashtable.Entry) bool) int {
	n := 0
	for _, e := range entries {
		if pred(e) {
			n++
		}
	}
	return n
}

// Write prints s as a plain-text report.
func (s Stats) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "number of word types           = %d\ntotal number of tokens in file = %d\n", s.Types, s.Tokens); err != nil {
		return err
	}
	for _, l := range s.ByProbability {
		if _, err := fmt.Fprintf(w, "word types with probability >= %.1e = %d\n", l.Threshold, l.Types); err != nil {
			return err
		}
	}
	for _, l := range s.ByCount {
		if _, err := fmt.Fprintf(w, "word types with occurrences >= %5d = %d\n", uint64(l.Threshold), l.Types); err != nil {
			return err
		}
	}
	return nil
}
