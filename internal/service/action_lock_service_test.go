package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockService(t *testing.T) (*ActionLockService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewActionLockService(client, testLogger(), 5*time.Second)
	t.Cleanup(svc.Stop)
	return svc, mr
}

func TestActionLock_RunsAndReleases(t *testing.T) {
	svc, mr := newLockService(t)
	ctx := context.Background()

	ran := false
	err := svc.Do(ctx, "doctor:1:call_next", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(RedisActionLockPrefix+"doctor:1:call_next"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(RedisActionLockPrefix+"doctor:1:call_next"))
}

func TestActionLock_RejectsConcurrentSameKey(t *testing.T) {
	svc, _ := newLockService(t)
	ctx := context.Background()

	err := svc.Do(ctx, "doctor:1", func(ctx context.Context) error {
		inner := svc.Do(ctx, "doctor:1", func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrActionInProgress)

		other := svc.Do(ctx, "doctor:2", func(ctx context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)
}

func TestActionLock_RespectsForeignRedisLock(t *testing.T) {
	svc, mr := newLockService(t)
	require.NoError(t, mr.Set(RedisActionLockPrefix+"doctor:1", "another-replica"))

	err := svc.Do(context.Background(), "doctor:1", func(ctx context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrActionInProgress)

	got, _ := mr.Get(RedisActionLockPrefix + "doctor:1")
	assert.Equal(t, "another-replica", got)
}

func TestActionLock_PropagatesError(t *testing.T) {
	svc, mr := newLockService(t)
	boom := errors.New("boom")

	err := svc.Do(context.Background(), "k", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(RedisActionLockPrefix+"k"))
}

func TestActionLock_LocalOnly(t *testing.T) {
	svc := NewActionLockService(nil, testLogger(), 0)
	defer svc.Stop()

	err := svc.Do(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestActionLock_CleanupStaleMutexes(t *testing.T) {
	svc, _ := newLockService(t)
	_ = svc.Do(context.Background(), "old", func(ctx context.Context) error { return nil })

	assert.Equal(t, 0, svc.cleanupStaleMutexes(time.Now()))
	assert.Equal(t, 1, svc.cleanupStaleMutexes(time.Now().Add(mutexStaleThreshold+time.Minute)))
}
