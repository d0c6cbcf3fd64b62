package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/corpus"
)

func plan(n int) corpus.Plan {
	if n == 1 {
		return corpus.Plan{Ranges: []corpus.Range{{Worker: corpus.Inline(), Start: 0, End: 10}}}
	}
	var p corpus.Plan
	for i := 0; i < n; i++ {
		p.Ranges = append(p.Ranges, corpus.Range{Worker: corpus.Numbered(i), Start: int64(i * 10), End: int64(i*10 + 10)})
	}
	return p
}

func TestRunVisitsEveryRange(t *testing.T) {
	for _, pin := range []bool{false, true} {
		var mu sync.Mutex
		seen := map[string]bool{}
		var started, done atomic.Int32
		p := NewPool(pin)
		p.OnStart = func() { started.Add(1) }
		p.OnDone = func() { done.Add(1) }

		err := p.Run(context.Background(), plan(4), func(_ context.Context, r corpus.Range) error {
			mu.Lock()
			seen[r.Worker.String()] = true
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, seen, 4)
		assert.Equal(t, int32(4), started.Load())
		assert.Equal(t, int32(4), done.Load())
	}
}

func TestRunInlineOnCaller(t *testing.T) {
	var got corpus.Range
	err := NewPool(true).Run(context.Background(), plan(1), func(_ context.Context, r corpus.Range) error {
		got = r
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.Worker.IsInline())
}

func TestRunReturnsFirstErrorAndCancels(t *testing.T) {
	boom := errors.New("boom")
	err := NewPool(false).Run(context.Background(), plan(3), func(ctx context.Context, r corpus.Range) error {
		if idx, _ := r.Worker.Index(); idx == 1 {
			return boom
		}
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, boom)
}
