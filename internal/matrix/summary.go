// Package matrix inspects a final cooccurrence file the way the downstream
// decomposition reads it: as a sparse matrix with one row per target id and
// one column per context-band id.
package matrix

import (
	"errors"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
)

// Summary describes a cooccurrence file.
type Summary struct {
	Path string
	// Rows is the number of distinct target ids.
	Rows uint64
	// Columns is the largest context index plus one.
	Columns uint64
	NonZero int64
	Total   float64
	// Sorted is true when keys strictly increase, which also rules out
	// duplicates.
	Sorted bool
}

// Summarize streams the file at path. A truncated file yields
// ErrCorruptRunFile.
func Summarize(path string) (Summary, error) {
	r, err := record.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer r.Close()

	s := Summary{Path: path, Sorted: true}
	rows := roaring.New()
	var prev record.Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summary{}, err
		}
		if s.NonZero > 0 && record.Compare(prev, rec) >= 0 {
			s.Sorted = false
		}
		rows.Add(rec.Idx1)
		if c := uint64(rec.Idx2) + 1; c > s.Columns {
			s.Columns = c
		}
		s.NonZero++
		s.Total += float64(rec.Val)
		prev = rec
	}
	s.Rows = rows.GetCardinality()
	return s, nil
}

// Density is the fraction of the Rows x Columns matrix that is non-zero.
func (s Summary) Density() float64 {
	if s.Rows == 0 || s.Columns == 0 {
		return 0
	}
	return float64(s.NonZero) / (float64(s.Rows) * float64(s.Columns))
}

// Write prints s as a plain-text report.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"file     = %s\nrows     = %d\ncolumns  = %d\nnon-zero = %d\ndensity  = %.3e\ntotal    = %g\nsorted   = %t\n",
		s.Path, s.Rows, s.Columns, s.NonZero, s.Density(), s.Total, s.Sorted)
	return err
}
