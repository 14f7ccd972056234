package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// Bookings is the slice of the booking service the HTTP layer needs.
type Bookings interface {
	CreateBooking(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error)
	ReserveSeats(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// BookingHandler serves the booking endpoints. All routes require an
// authenticated user.
type BookingHandler struct {
	Svc Bookings
}

func NewBookingHandler(svc Bookings) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

type createBookingReq struct {
	ShowID  uint64   `json:"show_id"`
	SeatIDs []uint64 `json:"seat_ids"`
}

// Create handles POST /v1/bookings: books the seats and confirms the
// booking in one step.
func (h *BookingHandler) Create(c echo.Context) error {
	return h.allocate(c, h.Svc.CreateBooking)
}

// Reserve handles POST /v1/bookings/reserve: like Create but leaves
// the seats in RESERVED state.
func (h *BookingHandler) Reserve(c echo.Context) error {
	return h.allocate(c, h.Svc.ReserveSeats)
}

func (h *BookingHandler) allocate(c echo.Context, op func(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error)) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "INVALID_ARGUMENT"})
	}
	if req.ShowID == 0 || len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id and seat_ids required", "code": "INVALID_ARGUMENT"})
	}

	// Budget covers the full lock wait plus retries.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	b, err := op(ctx, userID, req.ShowID, req.SeatIDs)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	// ownership check before mutating
	existing, err := h.Svc.GetBooking(ctx, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	if existing.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "booking belongs to another user"})
	}

	b, err := h.Svc.CancelBooking(ctx, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Svc.GetBooking(ctx, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	if b.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "booking belongs to another user"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// List handles GET /v1/bookings: all bookings of the caller.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Svc.ListUserBookings(ctx, userID)
	if err != nil {
		return writeBookingError(c, err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResp(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// writeBookingError maps service errors onto HTTP responses. Conflict
// class errors (seat taken, lost concurrency race, lock wait timeout)
// all surface as 409 with a machine-readable code so clients can
// decide whether to retry.
func writeBookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error(), "code": "RESOURCE_NOT_FOUND"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "INVALID_STATE"})
	case errors.Is(err, service.ErrSeatConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "SEAT_ALREADY_BOOKED"})
	case errors.Is(err, service.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "CONCURRENT_MODIFICATION"})
	case errors.Is(err, lock.ErrLockAcquisitionFailed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "LOCK_ACQUISITION_FAILED"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
