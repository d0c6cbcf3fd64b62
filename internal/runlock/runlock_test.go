package runlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
)

type memStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemStore() *memStore { return &memStore{keys: make(map[string]string)} }

func (m *memStore) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	return v, ok, nil
}

func (m *memStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] != value {
		return false, nil
	}
	delete(m.keys, key)
	return true, nil
}

func TestAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dir := t.TempDir()

	l, err := Acquire(ctx, store, dir, "run-a", time.Hour)
	require.NoError(t, err)

	_, err = Acquire(ctx, store, dir, "run-b", time.Hour)
	require.ErrorIs(t, err, apperrors.ErrRunLocked)
	assert.Contains(t, err.Error(), "run-a")

	require.NoError(t, l.Release(ctx))

	l2, err := Acquire(ctx, store, dir, "run-b", time.Hour)
	require.NoError(t, err)
	require.NoError(t, l2.Release(ctx))
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dir := t.TempDir()

	l, err := Acquire(ctx, store, dir, "run-a", time.Hour)
	require.NoError(t, err)

	// Simulate expiry followed by another run taking the key.
	store.keys[Key(dir)] = "run-b"
	require.NoError(t, l.Release(ctx))

	holder, ok, _ := store.Get(ctx, Key(dir))
	require.True(t, ok)
	assert.Equal(t, "run-b", holder)
}

func TestKeyNormalisesPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, Key(dir), Key(dir+"/./"))
	assert.NotEqual(t, Key(dir), Key(dir+"/other"))
}
