package cooccur

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/record"
)

func BenchmarkEmit(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ids := make([]int32, 1000)
	for i := range ids {
		ids[i] = int32(rng.Intn(5000)) - 1
	}
	for _, size := range []int{2, 5, 10} {
		for _, dynamic := range []bool{false, true} {
			w := Window{Size: size, Dynamic: dynamic, TargetLimit: 4000, ContextStart: 10, ContextEnd: 3000}
			b.Run(fmt.Sprintf("cxt_%d_dynamic_%t", size, dynamic), func(b *testing.B) {
				dst := make([]record.Record, 0, 2*size)
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					for j := range ids {
						dst = w.Emit(dst[:0], ids, j)
					}
				}
			})
		}
	}
}
