package lock

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisLocker(client, 5*time.Second, logger), mr
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	locker, mr := newTestRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"42"))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"42"))
}

func TestRedisLocker_SecondHolderWaitsForRelease(t *testing.T) {
	locker, _ := newTestRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), 42)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), 42)
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestRedisLocker_GivesUpWhenHeld(t *testing.T) {
	locker, _ := newTestRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), 9)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 9)
	assert.Error(t, err)
}

func TestRedisLocker_Ping(t *testing.T) {
	locker, mr := newTestRedisLocker(t)
	require.NoError(t, locker.Ping(context.Background()))

	mr.Close()
	assert.Error(t, locker.Ping(context.Background()))
}
