// Package record defines the 12-byte cooccurrence record and the run files
// built from it. A file is a bare sequence of records in host byte order: no
// header, no count prefix, no padding.
package record

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"
)

// Size is the encoded size of a Record in bytes.
const Size = 12

// Record is one weighted (target, context) observation. Idx2 is relative to
// the start of the context band.
type Record struct {
	Idx1 uint32
	Idx2 uint32
	Val  float32
}

// Compare orders records by (Idx1, Idx2).
func Compare(a, b Record) int {
	if c := cmp.Compare(a.Idx1, b.Idx1); c != 0 {
		return c
	}
	return cmp.Compare(a.Idx2, b.Idx2)
}

// SameKey reports whether a and b share (Idx1, Idx2).
func SameKey(a, b Record) bool {
	return a.Idx1 == b.Idx1 && a.Idx2 == b.Idx2
}

// Encode writes r into the first Size bytes of buf.
func Encode(buf []byte, r Record) {
	binary.NativeEndian.PutUint32(buf[0:4], r.Idx1)
	binary.NativeEndian.PutUint32(buf[4:8], r.Idx2)
	binary.NativeEndian.PutUint32(buf[8:12], math.Float32bits(r.Val))
}

// Decode reads a record from the first Size bytes of buf.
func Decode(buf []byte) Record {
	return Record{
		Idx1: binary.NativeEndian.Uint32(buf[0:4]),
		Idx2: binary.NativeEndian.Uint32(buf[4:8]),
		Val:  math.Float32frombits(binary.NativeEndian.Uint32(buf[8:12])),
	}
}

// SortAndCoalesce sorts recs by key and sums the weights of equal keys in
// place, returning the deduplicated prefix. The sort is stable so equal keys
// are summed in emission order and the result is reproducible. Sums are
// accumulated in float64 and rounded to float32 once per key.
func SortAndCoalesce(recs []Record) []Record {
	if len(recs) == 0 {
		return recs
	}
	slices.SortStableFunc(recs, Compare)
	out := recs[:1]
	sum := float64(recs[0].Val)
	for _, r := range recs[1:] {
		last := &out[len(out)-1]
		if SameKey(*last, r) {
			sum += float64(r.Val)
			continue
		}
		last.Val = float32(sum)
		out = append(out, r)
		sum = float64(r.Val)
	}
	out[len(out)-1].Val = float32(sum)
	return out
}

// Accumulator sums the weights of consecutive records with equal keys in
// float64. The zero value is empty.
type Accumulator struct {
	key  Record
	sum  float64
	full bool
}

// Add folds r in. When r starts a new key the previous total is returned
// with flushed set.
func (a *Accumulator) Add(r Record) (done Record, flushed bool) {
	if a.full && SameKey(a.key, r) {
		a.sum += float64(r.Val)
		return Record{}, false
	}
	done, flushed = a.Flush()
	a.key, a.sum, a.full = r, float64(r.Val), true
	return done, flushed
}

// Flush returns the pending total, if any, and empties a.
func (a *Accumulator) Flush() (Record, bool) {
	if !a.full {
		return Record{}, false
	}
	a.full = false
	return Record{Idx1: a.key.Idx1, Idx2: a.key.Idx2, Val: float32(a.sum)}, true
}
