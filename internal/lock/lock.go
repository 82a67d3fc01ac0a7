// Package lock provides short-lived advisory locks keyed by string, used to
// serialize work on the same logical resource across requests and
// processes.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("lock is held")

// Release gives a lock back.  Releasing a lock that expired and was taken
// over by someone else is a no-op.
type Release func(ctx context.Context) error

// Locker hands out exclusive, expiring locks.  Acquire never blocks waiting
// for a holder; it fails fast with ErrLocked.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}
