package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "paytoday:order_lock:"
	lockTries      = 40
	lockRetryDelay = 50 * time.Millisecond
)

// RedisLocker holds a redsync mutex per order so that several gateway
// instances never reconcile the same order at once.
type RedisLocker struct {
	client *redis.Client
	rs     *redsync.Redsync
	expiry time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, expiry time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		logger: logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, orderID int64) (func(), error) {
	mutex := l.rs.NewMutex(
		fmt.Sprintf("%s%d", keyPrefix, orderID),
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockRetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}

	return func() {
		// The caller's context may already be done; release regardless.
		ok, err := mutex.UnlockContext(context.Background())
		if err != nil || !ok {
			l.logger.Warn("failed to release order lock",
				"order_id", orderID,
				"error", err,
			)
		}
	}, nil
}

// Ping checks the connection the locks are taken on.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
