package ratelimiter

import (
	"context"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	// Allow counts one request for key and reports whether it fits the current window.
	// When it does not, retryAfter is the time left until the window resets.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Limit() int
}

// NewRateLimiter shares the window across instances through Redis when rdb is set,
// otherwise the window is kept in process memory.
func NewRateLimiter(cfg config.RateLimiterConfig, name string, rdb *redis.Client, logger *zap.SugaredLogger) Limiter {
	// For unit test
	if logger == nil {
		logger = util.NewLogger("")
	}

	if rdb != nil {
		logger.Debugf("Rate limiter %s uses redis", name)
		return NewRedisFixedWindowLimiter(cfg, name, rdb, logger)
	}

	logger.Debugf("Rate limiter %s uses process memory", name)
	return NewFixedWindowLimiter(cfg, logger)
}
