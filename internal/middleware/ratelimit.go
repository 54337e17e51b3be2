package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SyncRateLimit limits sync requests per user (or per IP when the body names
// no user) using a Redis counter with a one minute window.
func SyncRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		subject := subjectKey(c)
		if subject == "" {
			subject = "ip:" + c.IP()
		}
		key := "rl:sync:" + subject
		ctx := c.UserContext()

		// INCR and TTL run together; a window left without an expiry by an
		// earlier failed EXPIRE is repaired on the next request.
		pipe := cache.TxPipeline()
		incr := pipe.Incr(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return c.Next() // fail-open on cache errors
		}
		if ttl.Val() < 0 {
			if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
				return c.Next()
			}
		}
		if incr.Val() > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many sync requests, try again later")
		}
		return c.Next()
	}
}
