package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
)

// RateLimit allows limit requests per client IP in each fixed window. The
// counter lives in Redis so every instance shares it. If Redis is down the
// request goes through.
func RateLimit(rdb *redis.Client, name string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}
		ctx := c.UserContext()
		key := "ratelimit:" + name + ":" + c.IP()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[RateLimit] %s: %v", key, err)
			return c.Next()
		}
		if n == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("[RateLimit] expire %s: %v", key, err)
			}
		}

		ttl, err := rdb.TTL(ctx, key).Result()
		if err == nil && ttl < 0 {
			// counter lost its expiry, start a fresh window
			rdb.Expire(ctx, key, window)
			ttl = window
		}
		remaining := limit - int(n)
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(n) > limit {
			retry := int(ttl.Round(time.Second) / time.Second)
			if retry < 1 {
				retry = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return apperr.TooMany(apperr.CodeRateLimited, "too many requests, try again later").
				With("retry_after", retry)
		}
		return c.Next()
	}
}
