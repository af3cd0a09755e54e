package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The first hit of a window sets its expiry, the key disappears when the window ends.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return { current, redis.call('PTTL', KEYS[1]) }
`)

type RedisFixedWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	frame  time.Duration
	logger *zap.SugaredLogger
}

func NewRedisFixedWindowLimiter(cfg config.RateLimiterConfig, name string, rdb *redis.Client, logger *zap.SugaredLogger) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{
		rdb:    rdb,
		prefix: "ratelimit:" + name + ":",
		limit:  cfg.RequestsPerTimeFrame,
		frame:  cfg.TimeFrame,
		logger: logger,
	}
}

func (rl *RedisFixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + key}, rl.frame.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis rate limit for %s: %w", key, err)
	}

	count, ttl, err := parseWindowResult(vals)
	if err != nil {
		return false, 0, err
	}

	if count > int64(rl.limit) {
		retryAfter := time.Duration(ttl) * time.Millisecond
		if retryAfter < 0 {
			retryAfter = rl.frame
		}
		rl.logger.Debugf("Rate limit exceeded for %s, retry after %s", key, retryAfter)
		return false, retryAfter, nil
	}

	return true, 0, nil
}

func (rl *RedisFixedWindowLimiter) Limit() int {
	return rl.limit
}

func parseWindowResult(vals any) (count int64, ttlMillis int64, err error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script result: %#v", vals)
	}

	count, ok = arr[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count: %#v", arr[0])
	}

	ttlMillis, ok = arr[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit ttl: %#v", arr[1])
	}

	return count, ttlMillis, nil
}
