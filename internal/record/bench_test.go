package record

import (
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkSortAndCoalesce(b *testing.B) {
	for _, n := range []int{1 << 10, 1 << 16, 1 << 20} {
		rng := rand.New(rand.NewSource(int64(n)))
		src := make([]Record, n)
		for i := range src {
			src[i] = Record{Idx1: uint32(rng.Intn(1000)), Idx2: uint32(rng.Intn(1000)), Val: 1}
		}
		b.Run(fmt.Sprintf("records_%d", n), func(b *testing.B) {
			buf := make([]Record, n)
			b.ReportAllocs()
			b.SetBytes(int64(n * Size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				copy(buf, src)
				_ = SortAndCoalesce(buf)
			}
		})
	}
}
