package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"go.uber.org/zap"
)

type window struct {
	start time.Time
	count int
}

type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*window
	limit   int
	frame   time.Duration
	logger  *zap.SugaredLogger
	now     func() time.Time
	// Expired windows of other clients are swept at most once per frame.
	lastSweep time.Time
}

func NewFixedWindowLimiter(cfg config.RateLimiterConfig, logger *zap.SugaredLogger) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   cfg.RequestsPerTimeFrame,
		frame:   cfg.TimeFrame,
		logger:  logger,
		now:     time.Now,
	}
}

func (rl *FixedWindowRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.frame {
		rl.evictExpired(now)
		rl.lastSweep = now
	}

	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.frame {
		w = &window{start: now}
		rl.clients[key] = w
	}

	if w.count >= rl.limit {
		retryAfter := w.start.Add(rl.frame).Sub(now)
		rl.logger.Debugf("Rate limit exceeded for %s, retry after %s", key, retryAfter)
		return false, retryAfter, nil
	}

	w.count++
	return true, 0, nil
}

func (rl *FixedWindowRateLimiter) Limit() int {
	return rl.limit
}

// Caller must hold the lock.
func (rl *FixedWindowRateLimiter) evictExpired(now time.Time) {
	for key, w := range rl.clients {
		if now.Sub(w.start) >= rl.frame {
			delete(rl.clients, key)
		}
	}
}
