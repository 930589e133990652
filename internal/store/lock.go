package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"github.com/RMShur/model-organization/internal/log"
)

// ErrLockNotAcquired is returned when the sidecar lock could not be obtained
// within the store's lock timeout. It is distinct from I/O errors so callers
// can back off and retry deliberately instead of treating contention as a
// corrupt file.
var ErrLockNotAcquired = errors.New("inter-process lock not acquired")

// withLock runs fn while holding the exclusive lock for path. The lock is
// released on every exit path before the error propagates.
func (s *Store) withLock(ctx context.Context, path string, fn func() error) error {
	lockPath := path + LockSuffix
	fl := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, s.retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn(log.CatLock, "lock acquisition timed out", "path", lockPath, "timeout", s.lockTimeout)
			return fmt.Errorf("%w: %s after %v", ErrLockNotAcquired, lockPath, s.lockTimeout)
		}
		return fmt.Errorf("acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockNotAcquired, lockPath)
	}
	defer func() {
		if unlockErr := fl.Unlock(); unlockErr != nil {
			log.ErrorErr(log.CatLock, "releasing lock failed", unlockErr, "path", lockPath)
		}
	}()

	return fn()
}
