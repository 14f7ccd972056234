package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
)

// fixedWindowScript counts requests per client per window in Redis.
// The first INCR in a window sets the TTL so the counter expires on
// its own.  Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_ms = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end
	local ttl = redis.call('PTTL', key)
	if ttl < 0 then
		redis.call('PEXPIRE', key, window_ms)
		ttl = window_ms
	end
	return {count, ttl}
`)

// RateLimit returns a fixed-window request limiter keyed by client IP
// and route, so a chatty browse client cannot starve booking calls.
// When the limiter is disabled, Redis is unavailable, or the script
// errors, requests pass through: availability wins over throttling.
// Rejected requests get 429 with a Retry-After header.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s:%s:%s:%s", cfg.Prefix, c.RealIP(), c.Request().Method, c.Path())

			res, err := fixedWindowScript.Run(c.Request().Context(), rdb,
				[]string{key}, cfg.Window.Milliseconds()).Int64Slice()
			if err != nil || len(res) != 2 {
				return next(c)
			}
			count, ttlMS := res[0], res[1]

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				retryAfter := time.Duration(ttlMS) * time.Millisecond
				c.Response().Header().Set("Retry-After",
					strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
