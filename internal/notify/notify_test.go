package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/kafka"
)

type recorder struct {
	events []kafka.Event
}

func (r *recorder) Publish(_ context.Context, ev kafka.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestStageDoneKeysByRunID(t *testing.T) {
	rec := &recorder{}
	n := New(rec)
	finished := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	n.now = func() time.Time { return finished }

	id := NewRunID()
	require.NoError(t, n.StageDone(context.Background(), StageCompleted{
		RunID:      id,
		Stage:      "count",
		Succeeded:  true,
		DurationMS: 1500,
		Outputs:    []string{"out/cooccurrence.bin"},
	}))

	require.Len(t, rec.events, 1)
	assert.Equal(t, id, rec.events[0].Key)

	msg, err := kafka.Encode(rec.events[0])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "count", got["stage"])
	assert.Equal(t, true, got["succeeded"])
	assert.Equal(t, "2024-05-06T07:08:09Z", got["finished_at"])
	assert.NotContains(t, got, "error")
}

func TestNewRunIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewRunID())
	require.NoError(t, err)
	assert.NotEqual(t, NewRunID(), NewRunID())
}
