package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/cache"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// ShowHandler serves show scheduling and seat browsing. Creating a
// show also generates its full seat grid in the same transaction, so
// a show is never visible without its seats.
type ShowHandler struct {
	Shows  *repository.ShowRepo
	Movies *repository.MovieRepo
	Seats  *repository.SeatRepo
	Cache  *cache.SeatCache // optional
}

func NewShowHandler(shows *repository.ShowRepo, movies *repository.MovieRepo, seats *repository.SeatRepo, seatCache *cache.SeatCache) *ShowHandler {
	if shows == nil || movies == nil || seats == nil {
		panic("nil repository passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Movies: movies, Seats: seats, Cache: seatCache}
}

type createShowReq struct {
	MovieID      uint64 `json:"movie_id"`
	ShowTime     string `json:"show_time"` // RFC 3339
	ScreenNumber string `json:"screen_number"`
	TotalSeats   uint32 `json:"total_seats"`
}

type showResp struct {
	ID           uint64    `json:"id"`
	MovieID      uint64    `json:"movie_id"`
	ShowTime     time.Time `json:"show_time"`
	ScreenNumber string    `json:"screen_number"`
	TotalSeats   uint32    `json:"total_seats"`
	TicketPrice  float64   `json:"ticket_price"`
}

func toShowResp(s *model.Show) showResp {
	return showResp{
		ID:           s.ID,
		MovieID:      s.MovieID,
		ShowTime:     s.ShowTime,
		ScreenNumber: s.ScreenNumber,
		TotalSeats:   s.TotalSeats,
		TicketPrice:  s.TicketPrice,
	}
}

// Create handles POST /v1/shows. The show row and its generated seat
// grid are committed atomically.
func (h *ShowHandler) Create(c echo.Context) error {
	var req createShowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ScreenNumber = strings.TrimSpace(req.ScreenNumber)
	if req.MovieID == 0 || req.ScreenNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id and screen_number required"})
	}
	if req.TotalSeats == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be positive"})
	}
	showTime, err := time.Parse(time.RFC3339, req.ShowTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_time must be RFC 3339"})
	}
	if showTime.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_time must be in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}

	tx, err := h.Shows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	show := &model.Show{
		MovieID:      req.MovieID,
		ShowTime:     showTime.UTC(),
		ScreenNumber: req.ScreenNumber,
		TotalSeats:   req.TotalSeats,
	}
	if err := h.Shows.CreateTx(ctx, tx, show); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}

	numbers := service.GenerateSeatNumbers(req.TotalSeats)
	seats := make([]model.Seat, 0, len(numbers))
	for _, n := range numbers {
		seats = append(seats, model.Seat{ShowID: show.ID, SeatNumber: n})
	}
	if err := h.Seats.CreateBulkTx(ctx, tx, seats); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	committed = true

	return c.JSON(http.StatusCreated, toShowResp(show))
}

// Get handles GET /v1/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	show, err := h.Shows.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	return c.JSON(http.StatusOK, toShowResp(show))
}

// ListByMovie handles GET /v1/movies/:id/shows. Only upcoming shows
// are returned.
func (h *ShowHandler) ListByMovie(c echo.Context) error {
	movieID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	shows, err := h.Shows.ListUpcomingByMovie(ctx, movieID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	out := make([]showResp, 0, len(shows))
	for i := range shows {
		out = append(out, toShowResp(&shows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": out})
}

// AllSeats handles GET /v1/shows/:id/seats/all: the full seat grid of
// a show including booked and reserved seats, for rendering seat maps.
func (h *ShowHandler) AllSeats(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Shows.GetByID(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}

	seats, err := h.Seats.ListByShow(ctx, showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": toSeatParts(seats)})
}

// AvailableSeats handles GET /v1/shows/:id/seats. The seat list is
// served from the Redis cache when present and repopulated from the
// database on a miss. Bookings invalidate the entry, so stale reads
// are bounded by the cache TTL only when invalidation itself failed.
func (h *ShowHandler) AvailableSeats(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.Cache != nil {
		if seats, ok := h.Cache.GetAvailableSeats(ctx, showID); ok {
			return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": toSeatParts(seats), "cached": true})
		}
	}

	if _, err := h.Shows.GetByID(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}

	seats, err := h.Seats.ListByShowAndStatus(ctx, showID, model.SeatAvailable)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	if h.Cache != nil {
		_ = h.Cache.SetAvailableSeats(ctx, showID, seats)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": toSeatParts(seats), "cached": false})
}
