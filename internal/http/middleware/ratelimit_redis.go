package middleware

import (
	"context"
	"strconv"
	"time"

	"landmarket/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter sets the shared Redis client used by RedisRateLimit.
// A nil client makes every limiter fall back to the in-process one.
func InitRedisRateLimiter(client *redis.Client) {
	redisClient = client
}

// RedisRateLimit implements a fixed-window limiter shared by every instance
// using Redis INCR/EXPIRE.
// key format: rl:<name>:<window_seconds>:<identifier>
// Without Redis, or when Redis errors, the in-process limiter decides.
func RedisRateLimit(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	fallback := newKeyedLimiter(maxRequests, window)
	return func(c *gin.Context) {
		ident := rateIdentity(c)
		client := redisClient
		if client == nil {
			if !fallback.allow(ident) {
				rejectRateLimited(c, name, window)
				return
			}
			RLRequests.WithLabelValues(name).Inc()
			c.Next()
			return
		}

		key := "rl:" + name + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		val, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter redis error", "error", err)
			c.Header("X-RateLimit-Error", "redis-error")
			if !fallback.allow(ident) {
				rejectRateLimited(c, name, window)
				return
			}
			c.Next()
			return
		}

		if val == 1 {
			client.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))
		if val > int64(maxRequests) {
			rejectRateLimited(c, name, window)
			return
		}

		RLRequests.WithLabelValues(name).Inc()
		c.Next()
	}
}
