package merge

import "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"

// Item is the head record of one input file.
type Item struct {
	Rec    record.Record
	Source int
}

// less orders items by (Idx1, Idx2) and then by source, so equal keys are
// always popped in input order.
func less(a, b Item) bool {
	if c := record.Compare(a.Rec, b.Rec); c != 0 {
		return c < 0
	}
	return a.Source < b.Source
}

// Heap is an array-backed binary min-heap of Items. The children of node i
// live at 2i+1 and 2i+2; its parent at (i-1)/2.
type Heap struct {
	items []Item
}

// NewHeap returns an empty heap with room for capacity items.
func NewHeap(capacity int) *Heap {
	return &Heap{items: make([]Item, 0, capacity)}
}

func (h *Heap) Len() int { return len(h.items) }

// Push adds it and restores the heap order.
func (h *Heap) Push(it Item) {
	h.items = append(h.items, it)
	h.up(len(h.items) - 1)
}

// Pop removes and returns the minimum item. It panics on an empty heap.
func (h *Heap) Pop() Item {
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return top
}

// Peek returns the minimum item without removing it.
func (h *Heap) Peek() Item { return h.items[0] }

func (h *Heap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap) down(i int) {
	n := len(h.items)
	for {
		smallest := i
		if l := 2*i + 1; l < n && less(h.items[l], h.items[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < n && less(h.items[r], h.items[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
