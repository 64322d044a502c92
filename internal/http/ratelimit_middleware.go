package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/veritas-stock/stockd/internal/ratelimit"
)

// RateLimitMiddleware enforces the rules of class keyed by client IP.
func RateLimitMiddleware(limiter *ratelimit.Limiter, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP(), class)
		applyRateLimitHeaders(c, decision)
		if errors.Is(err, ratelimit.ErrRateLimited) {
			retrySeconds := retryAfterSeconds(decision)
			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": retrySeconds,
			})
			return
		}
		c.Next()
	}
}

func applyRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit <= 0 {
		return
	}
	remaining := decision.Remaining
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
}

func retryAfterSeconds(decision ratelimit.Decision) int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
