package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAcquireExcludesConcurrentHolder(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "dedup-store:test", time.Minute)
	second := NewRedisLock(client, "dedup-store:test", time.Minute)

	acquired, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, acquired, "a second lock on the same key must not be granted while the first holds it")
}

func TestRedisLockReleaseOnlyReleasesOwnLock(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "dedup-store:test", time.Minute)
	second := NewRedisLock(client, "dedup-store:test", time.Minute)

	acquired, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// second never held the lock; its Release must be a no-op rather than
	// stealing the key out from under first.
	require.NoError(t, second.Release(ctx))

	acquired, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, acquired, "first's lock must survive an unrelated Release call")

	require.NoError(t, first.Release(ctx))

	acquired, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired, "the key must be free once its actual owner releases it")
}

func TestNewLockPrefersRedisWhenClientProvided(t *testing.T) {
	client := newTestRedis(t)
	lock := NewLock(client, nil, "dedup-store:test", time.Minute)

	_, ok := lock.(*RedisLock)
	require.True(t, ok, "NewLock must return a RedisLock when a Redis client is supplied")
}
