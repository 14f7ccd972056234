package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-ticket-booking/internal/cache"
	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/database"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/router"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	lockCfg := config.LoadLockConfig()
	retryCfg := config.LoadRetryConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the seat locks; the server refuses to start without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed, lock backend unavailable")
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	shows := repository.NewShowRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db, seats)

	locker := lock.NewLocker(rdb, lockCfg)
	seatCache := cache.NewSeatCache(rdb)
	publisher := queue.NewPublisher()

	bookingSvc := service.NewBookingService(
		users, shows, seats, bookings,
		locker, service.NewRetryPolicy(retryCfg),
		seatCache, publisher,
	)

	// background consumer writes booking events to logs/booking.log
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users),
		Movies:  handler.NewMovieHandler(movies),
		Shows:   handler.NewShowHandler(shows, movies, seats, seatCache),
		Booking: handler.NewBookingHandler(bookingSvc),
	}, cfg, rlCfg, db, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
