package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"estate/internal/models"
	"estate/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens when the limiter store is unreachable.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// limiterBypassed is true for local and test runs, where APP_ENV is unset,
// "development" or "test".
func limiterBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for id against resource in a fixed window
// and reports whether the hit is within limit.
func CheckRateLimit(ctx context.Context, rdb redis.Cmdable, resource, id string, limit int, window time.Duration) (bool, error) {
	if limiterBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := "rl:" + resource + ":" + id
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if hits == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return hits <= int64(limit), nil
}

// RateLimit limits a route to limit hits per window for each caller. The
// caller is the authenticated user when there is one, else the client IP.
// An unreachable store lets requests through.
func RateLimit(rdb redis.Cmdable, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit store failure policy.
func RateLimitWithPolicy(rdb redis.Cmdable, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		caller := "ip:" + c.IP()
		if uid, ok := CurrentUserID(c); ok {
			caller = "user:" + uid.String()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, caller, limit, window)
		switch {
		case err != nil:
			observability.RateLimitDecisions.WithLabelValues(resource, "store_error").Inc()
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				slog.String("route", resource), slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.ErrLimiterUnavailable)
		case !allowed:
			observability.RateLimitDecisions.WithLabelValues(resource, "rejected").Inc()
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.ErrRateLimited)
		}
		observability.RateLimitDecisions.WithLabelValues(resource, "allowed").Inc()
		return c.Next()
	}
}
