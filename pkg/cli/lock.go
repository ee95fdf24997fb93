package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/replicate/pload/pkg/logging"
)

const lockRetryDelay = 100 * time.Millisecond

// Lock serializes updates of one destination across pload processes.
type Lock struct {
	flock *flock.Flock
}

// AcquireLock takes an exclusive lock on path, creating it if needed. It waits for another
// holder to release the lock, until ctx is done.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	logger := logging.GetLogger()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating lock directory: %w", err)
	}

	fl := flock.New(path)
	logger.Debug().Str("blocking_lock_acquire", "false").Str("path", path).Msg("Waiting on Lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("error acquiring lock %s: %w", path, err)
	}
	if !locked {
		logger.Warn().
			Str("path", path).
			Str("message", "Another pload update may be running").
			Msg("Waiting on Lock")
		logger.Debug().Str("blocking_lock_acquire", "true").Msg("Waiting on Lock")
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("error acquiring lock %s: %w", path, err)
		}
		if !locked {
			return nil, fmt.Errorf("error acquiring lock %s: not acquired", path)
		}
	}
	return &Lock{flock: fl}, nil
}

func (l *Lock) Release() error {
	return l.flock.Unlock()
}
