package middleware

import (
	appcontext "github.com/SeakMengs/OceanSeal/internal/app_context"
	ratelimiter "github.com/SeakMengs/OceanSeal/internal/rate_limiter"
)

type Middleware struct {
	rateLimiter      ratelimiter.Limiter
	issueRateLimiter ratelimiter.Limiter
	app              *appcontext.Application
}

func NewMiddleware(app *appcontext.Application,
	rateLimiter ratelimiter.Limiter,
	issueRateLimiter ratelimiter.Limiter,
) *Middleware {
	return &Middleware{app: app, rateLimiter: rateLimiter, issueRateLimiter: issueRateLimiter}
}
