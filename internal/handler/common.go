package handler // handler defines http handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// ----- shared response DTOs -----

type seatPart struct {
	ID         uint64 `json:"id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

type bookingResp struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"user_id"`
	ShowID      uint64     `json:"show_id"`
	TotalAmount float64    `json:"total_amount"`
	Status      string     `json:"status"`
	BookingTime time.Time  `json:"booking_time"`
	Seats       []seatPart `json:"seats"`
}

func toSeatParts(seats []model.Seat) []seatPart {
	out := make([]seatPart, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatPart{ID: s.ID, SeatNumber: s.SeatNumber, Status: string(s.Status)})
	}
	return out
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:          b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		BookingTime: b.BookingTime,
		Seats:       toSeatParts(b.Seats),
	}
}
