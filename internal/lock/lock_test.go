package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "example.com", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "example.com", time.Minute)
	require.ErrorIs(t, err, ErrLocked)

	_, err = l.Acquire(ctx, "other.com", time.Minute)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, "example.com", time.Minute)
	require.NoError(t, err)
}

func TestLocalLocker_ExpiredLockIsTakenOver(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, err := l.Acquire(ctx, "example.com", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = l.Acquire(ctx, "example.com", time.Minute)
	require.NoError(t, err)

	// the stale holder must not free the new holder's lock
	require.NoError(t, staleRelease(ctx))
	_, err = l.Acquire(ctx, "example.com", time.Minute)
	require.ErrorIs(t, err, ErrLocked)
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	_, err := NewRedisLocker(rdb, "lock").Acquire(context.Background(), "example.com", time.Second)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLocked)
}
