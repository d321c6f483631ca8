package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter backed by Redis, shared across
// replicas of the service.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window}
}

// MiddlewareByKey limits requests grouped by keyFunc (typically client IP).
func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisKey := fmt.Sprintf("%s:%s", r.Prefix, keyFunc(c))
		ctx := c.Context()

		count, err := r.Redis.Incr(ctx, redisKey).Result()
		if err != nil {
			// rate limiting is protective, not load-bearing; let the request through
			return c.Next()
		}
		if count == 1 {
			r.Redis.Expire(ctx, redisKey, r.Window)
		}
		if count > int64(r.Limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

// ByIP is the usual keying function for unauthenticated endpoints.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}
