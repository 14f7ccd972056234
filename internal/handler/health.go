package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health returns a handler used by load balancers and monitoring to
// verify that the service and its backends are reachable. The lock
// backend (Redis) is part of the check: without it no booking can be
// made safely, so the instance reports unhealthy.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := echo.Map{"status": "ok"}
		code := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["db"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, status)
	}
}
