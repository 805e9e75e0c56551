package serial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ─── Redis Lock ─────────────────────────────────────────────────────────────
// SET NX PX takes the lock; release deletes it only while the token still
// matches, so an expired holder never frees a successor's lock.

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockConfig configures the Redis lock backend.
type RedisLockConfig struct {
	Prefix string        // key prefix (default "takax:lock:")
	TTL    time.Duration // lock expiry (default 10s)
	Retry  time.Duration // poll interval while contended (default 25ms)
}

// RedisLocker serialises commands across processes sharing one Redis.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisLockConfig
	log    *logrus.Entry
}

// NewRedisLocker wraps a Redis client.
func NewRedisLocker(client redis.UniversalClient, cfg RedisLockConfig, log *logrus.Entry) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "takax:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	return &RedisLocker{client: client, cfg: cfg, log: log}
}

// Lock blocks until the key is held or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.cfg.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, name, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release with a fresh context: the command's may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{name}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.log.WithError(err).WithField("key", key).Warn("redis unlock failed")
		}
	}, nil
}
