package cooccur

import (
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/vocab"
)

// Window turns one segment of token ids into weighted observations.
type Window struct {
	// Size is the number of neighbours considered on each side.
	Size int
	// Dynamic weights neighbours by distance instead of a flat 1.0.
	Dynamic bool

	TargetLimit  int32
	ContextStart int32
	ContextEnd   int32
}

// NewWindow derives the target and context limits from v.
func NewWindow(v *vocab.Frozen, size int, dynamic bool) Window {
	return Window{
		Size:         size,
		Dynamic:      dynamic,
		TargetLimit:  int32(v.TargetLimit),
		ContextStart: int32(v.ContextStart),
		ContextEnd:   int32(v.ContextEnd),
	}
}

// Emit appends to dst one record per context-band neighbour of the target at
// position j and returns the extended slice. Neighbours are scanned over
// [max(j-Size, 0), min(j+Size+1, len(ids))), skipping j itself.
//
// With Dynamic the weight starts at (Size-(j-left)+1)/Size and moves by
// 1/Size after every scanned position, up while left of j and down from j
// onwards. A window clipped by the segment start therefore starts above 1
// and is not symmetric around j.
func (w Window) Emit(dst []record.Record, ids []int32, j int) []record.Record {
	target := ids[j]
	if target < 0 || target >= w.TargetLimit {
		return dst
	}
	left := max(j-w.Size, 0)
	right := min(j+w.Size+1, len(ids))

	weight := float32(1)
	var step float32
	if w.Dynamic {
		weight = float32(w.Size-(j-left)+1) / float32(w.Size)
		step = float32(1.0 / float64(w.Size))
	}
	for k := left; k < right; k++ {
		if k != j {
			if t := ids[k]; t >= w.ContextStart && t < w.ContextEnd {
				dst = append(dst, record.Record{
					Idx1: uint32(target),
					Idx2: uint32(t - w.ContextStart),
					Val:  weight,
				})
			}
		}
		if w.Dynamic {
			if k < j {
				weight += step
			} else {
				weight -= step
			}
		}
	}
	return dst
}
