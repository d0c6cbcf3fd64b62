// Package memory derives the per-worker record buffer size from the
// configured soft limit and the memory the host currently has available.
package memory

import (
	"github.com/c2h5oh/datasize"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
)

// Headroom is the fraction of the budget handed to record buffers; the rest
// covers everything else a worker allocates.
const Headroom = 0.85

// Available returns the memory the host reports as available, or 0 when it
// cannot be determined.
func Available() datasize.ByteSize {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return datasize.ByteSize(vm.Available)
}

// Budget intersects the soft limit with available memory. An available value
// of 0 means unknown and leaves the limit unchanged.
func Budget(limit, available datasize.ByteSize) datasize.ByteSize {
	if available > 0 && available < limit {
		return available
	}
	return limit
}

// Capacity is the number of records each of workers may buffer:
// floor(0.85 * budget / record.Size / workers).
func Capacity(budget datasize.ByteSize, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return int(Headroom * float64(budget) / record.Size / float64(workers))
}
