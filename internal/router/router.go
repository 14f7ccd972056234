package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
)

// Handlers collects the handler set the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Movies  *handler.MovieHandler
	Shows   *handler.ShowHandler
	Booking *handler.BookingHandler
}

// Register wires every route of the API onto the Echo instance.
//
// Public routes: health check, auth, movie and show browsing, seat
// availability. Protected routes (valid access token required): movie
// and show management, booking operations. Rate limiting applies to
// everything except the health check.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rlCfg config.RateLimitConfig, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health(db, rdb))

	limited := e.Group("", middleware.RateLimit(rlCfg, rdb))

	// auth
	auth := limited.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// public browse
	limited.GET("/v1/movies", h.Movies.List)
	limited.GET("/v1/movies/:id", h.Movies.Get)
	limited.GET("/v1/movies/:id/shows", h.Shows.ListByMovie)
	limited.GET("/v1/shows/:id", h.Shows.Get)
	limited.GET("/v1/shows/:id/seats", h.Shows.AvailableSeats)
	limited.GET("/v1/shows/:id/seats/all", h.Shows.AllSeats)

	// protected
	protected := limited.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	protected.GET("/me", h.Auth.Me)

	protected.POST("/movies", h.Movies.Create)
	protected.DELETE("/movies/:id", h.Movies.Delete)
	protected.POST("/shows", h.Shows.Create)

	protected.POST("/bookings", h.Booking.Create)
	protected.POST("/bookings/reserve", h.Booking.Reserve)
	protected.GET("/bookings", h.Booking.List)
	protected.GET("/bookings/:id", h.Booking.Get)
	protected.POST("/bookings/:id/cancel", h.Booking.Cancel)
}
