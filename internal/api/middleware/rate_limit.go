package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"poll-service/internal/models"
	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts a request against key and reports whether it fits
// within limit per window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RateLimitIP limits public routes per client ip as gin resolves it, so
// X-Forwarded-For only counts when it comes from a trusted proxy. A failing
// limiter lets the request through.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s", c.ClientIP())

		allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			slog.Warn("Rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(requests))
		c.Header("RateLimit-Policy", fmt.Sprintf("%d;w=%d", requests, int(window.Seconds())))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    response.ErrCodeRateLimited,
				Message: response.Msg(response.ErrCodeRateLimited),
			})
			return
		}

		c.Next()
	}
}
