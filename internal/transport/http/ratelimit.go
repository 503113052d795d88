package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/metrics"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
)

// RateLimitMiddleware throttles unauthenticated endpoints per client address.
// A nil limiter disables the check.
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		var userID int64
		if p, ok := principalFrom(c); ok {
			userID = p.UserID
		}
		ok, err := limiter.Allow(c.Request.Context(), ratelimit.ClientKey(userID, c.ClientIP()))
		if err != nil {
			respondError(c, logger, core.Storage("rate limit", err))
			return
		}
		if !ok {
			metrics.RateLimited.Inc()
			respondError(c, logger, core.RateLimited("too many requests, retry in %s", limiter.Window()))
			return
		}
		c.Next()
	}
}
