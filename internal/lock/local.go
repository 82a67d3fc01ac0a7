package lock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	token   uint64
	expires time.Time
}

// LocalLocker is an in-process Locker used when Redis is unavailable.  It
// only serializes work within a single instance.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	next  uint64
	clock func() time.Time
}

// NewLocalLocker returns an empty in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}
	l.next++
	token := l.next
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
