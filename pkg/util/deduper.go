package util

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Deduper hands out short-lived exclusive keys backed by Redis SETNX.
// A nil client or an unreachable Redis never blocks the caller.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce tries to take key. ok is false only when another holder is
// confirmed; release is always safe to call.
func (d *Deduper) AcquireOnce(ctx context.Context, key string) (release func(), ok bool) {
	noop := func() {}
	if d == nil || d.rdb == nil {
		return noop, true
	}

	token := uuid.NewString()
	acquired, err := d.rdb.SetNX(ctx, key, token, d.ttl).Result()
	if err != nil {
		// Redis 挂了？当 redis 不可用时，不阻止处理
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
		return noop, true
	}
	if !acquired {
		d.logger.Info("Dedup key already held", zap.String("dedup_key", key))
		return noop, false
	}

	return func() {
		// The request context may already be cancelled here.
		if err := releaseScript.Run(context.Background(), d.rdb, []string{key}, token).Err(); err != nil {
			d.logger.Warn("Failed to release dedup key",
				zap.String("dedup_key", key),
				zap.Error(err),
			)
		}
	}, true
}
