package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	ratelimiter "github.com/SeakMengs/OceanSeal/internal/rate_limiter"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/gin-gonic/gin"
)

func (m Middleware) RateLimiterMiddleware(ctx *gin.Context) {
	if !m.app.Config.RateLimiter.Enabled {
		ctx.Next()
		return
	}

	m.limit(ctx, m.rateLimiter)
}

// IssueRateLimiterMiddleware applies the stricter per client ceiling of the issue route.
func (m Middleware) IssueRateLimiterMiddleware(ctx *gin.Context) {
	if !m.app.Config.IssueRateLimiter.Enabled {
		ctx.Next()
		return
	}

	m.limit(ctx, m.issueRateLimiter)
}

func (m Middleware) limit(ctx *gin.Context, limiter ratelimiter.Limiter) {
	if limiter == nil {
		ctx.Next()
		return
	}

	allowed, retryAfter, err := limiter.Allow(ctx.Request.Context(), ctx.ClientIP())
	if err != nil {
		// The limiter store being down must not take the API down with it
		m.app.Logger.Warnf("Rate limiter unavailable, letting request through: %v", err)
		ctx.Next()
		return
	}

	ctx.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))

	if !allowed {
		ctx.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		util.ResponseFailed(ctx, http.StatusTooManyRequests, "Rate limit exceeded", util.GenerateErrorMessages(errors.New("too many requests, please retry later"), "rateLimit"), nil)
		return
	}

	ctx.Next()
}
