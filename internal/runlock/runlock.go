// Package runlock guards an output directory against two concurrent pipeline
// runs. The lock is a Redis key holding the owning run id.
package runlock

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
)

const keyPrefix = "hpca:lock:"

// Store is the subset of pkg/redis.Client the lock needs.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// Lock is a held output-directory lock.
type Lock struct {
	store  Store
	key    string
	runID  string
	logger *slog.Logger
}

// Key returns the Redis key guarding dir. The directory is made absolute so
// relative spellings of the same path collide.
func Key(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	sum := sha1.Sum([]byte(filepath.Clean(dir)))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Acquire takes the lock on dir for runID. If another run holds it the
// returned error wraps ErrRunLocked and names the holder.
func Acquire(ctx context.Context, store Store, dir, runID string, ttl time.Duration) (*Lock, error) {
	key := Key(dir)
	ok, err := store.SetNX(ctx, key, runID, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock on %s: %w", dir, err)
	}
	if !ok {
		holder, _, _ := store.Get(ctx, key)
		return nil, apperrors.Newf(apperrors.ErrRunLocked, apperrors.StageConfig,
			"%s is locked by run %s", dir, holder)
	}
	l := &Lock{
		store:  store,
		key:    key,
		runID:  runID,
		logger: logger.WithComponent("runlock").With("dir", dir, "run_id", runID),
	}
	l.logger.Debug("lock acquired", "ttl", ttl)
	return l, nil
}

// Release drops the lock if this run still owns it. A lock that expired and
// was taken by another run is left alone.
func (l *Lock) Release(ctx context.Context) error {
	deleted, err := l.store.CompareAndDelete(ctx, l.key, l.runID)
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.key, err)
	}
	if !deleted {
		l.logger.Warn("lock was no longer held at release")
	}
	return nil
}
