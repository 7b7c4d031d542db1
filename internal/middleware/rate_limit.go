package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "betaportal:ratelimit"

// RateLimiter is a fixed-window request counter stored in Redis. A nil
// *RateLimiter allows everything.
type RateLimiter struct {
	client   redis.Cmdable
	requests int
	window   time.Duration
	logger   *observability.Logger
}

// NewRateLimiter returns nil when limiting is disabled or no client is available
func NewRateLimiter(client redis.Cmdable, cfg config.RateLimitConfig, logger *observability.Logger) *RateLimiter {
	if client == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil
	}
	return &RateLimiter{client: client, requests: cfg.Requests, window: cfg.Window, logger: logger}
}

// Allow counts one request against key. retryAfter is set when the window is exhausted.
func (l *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	if l == nil {
		return true, 0, nil
	}

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return true, 0, err
	}

	count := incr.Val()
	remaining := ttl.Val()
	// first hit in the window, or a key that lost its expiry
	if count == 1 || remaining < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, 0, err
		}
		remaining = l.window
	}

	if count > int64(l.requests) {
		return false, remaining, nil
	}
	return true, 0, nil
}

// Limit is the per-window request budget
func (l *RateLimiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.requests
}

// RateLimit applies limiter to a route group. Requests are keyed by external
// ID when authenticated and by client IP otherwise. Redis failures let the
// request through.
func RateLimit(limiter *RateLimiter, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if id := GetExternalID(c); id != "" {
			subject = "user:" + id
		}
		key := fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, name, subject)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			limiter.logger.Warn(c.Request.Context(), "Rate limiter unavailable, allowing request", map[string]interface{}{
				"limiter": name,
				"error":   err.Error(),
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			AbortWithError(c, contextutils.NewAppError(contextutils.ErrorCodeRateLimit, contextutils.SeverityWarn,
				"Too many requests. Please slow down.", ""))
			return
		}
		c.Next()
	}
}
