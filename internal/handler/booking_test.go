package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// fakeBookings scripts the service responses per test.
type fakeBookings struct {
	createFn func(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error)
	cancelFn func(ctx context.Context, bookingID uint64) (*model.Booking, error)
	getFn    func(ctx context.Context, bookingID uint64) (*model.Booking, error)
	listFn   func(ctx context.Context, userID uint64) ([]model.Booking, error)
}

func (f *fakeBookings) CreateBooking(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	return f.createFn(ctx, userID, showID, seatIDs)
}

func (f *fakeBookings) ReserveSeats(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	return f.createFn(ctx, userID, showID, seatIDs)
}

func (f *fakeBookings) CancelBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return f.cancelFn(ctx, bookingID)
}

func (f *fakeBookings) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return f.getFn(ctx, bookingID)
}

func (f *fakeBookings) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return f.listFn(ctx, userID)
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:          11,
		UserID:      7,
		ShowID:      3,
		TotalAmount: 1000,
		Status:      model.BookingConfirmed,
		BookingTime: time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC),
		Seats: []model.Seat{
			{ID: 1, ShowID: 3, SeatNumber: "A1", Status: model.SeatBooked, Version: 2},
			{ID: 2, ShowID: 3, SeatNumber: "A2", Status: model.SeatBooked, Version: 2},
		},
	}
}

func doCreate(t *testing.T, svc Bookings, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))

	h := NewBookingHandler(svc)
	require.NoError(t, h.Create(c))
	return rec
}

func TestCreateBookingHandlerSuccess(t *testing.T) {
	svc := &fakeBookings{
		createFn: func(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
			assert.Equal(t, uint64(7), userID)
			assert.Equal(t, uint64(3), showID)
			assert.Equal(t, []uint64{1, 2}, seatIDs)
			return sampleBooking(), nil
		},
	}

	rec := doCreate(t, svc, `{"show_id":3,"seat_ids":[1,2]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got bookingResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(11), got.ID)
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Equal(t, 1000.0, got.TotalAmount)
	require.Len(t, got.Seats, 2)
	assert.Equal(t, "A1", got.Seats[0].SeatNumber)
}

func TestCreateBookingHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
	}{
		{"not found", fmt.Errorf("show 3: %w", service.ErrNotFound), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"invalid state", fmt.Errorf("%w: show has started", service.ErrInvalidState), http.StatusBadRequest, "INVALID_STATE"},
		{"seat conflict", fmt.Errorf("seat A1: %w", service.ErrSeatConflict), http.StatusConflict, "SEAT_ALREADY_BOOKED"},
		{"concurrency conflict", fmt.Errorf("%w after 3 attempts", service.ErrConcurrencyConflict), http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"lock timeout", lock.ErrLockAcquisitionFailed, http.StatusConflict, "LOCK_ACQUISITION_FAILED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeBookings{
				createFn: func(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
					return nil, tc.err
				},
			}
			rec := doCreate(t, svc, `{"show_id":3,"seat_ids":[1,2]}`)
			assert.Equal(t, tc.wantCode, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantTag, body["code"])
		})
	}
}

func TestCreateBookingHandlerRejectsBadRequest(t *testing.T) {
	svc := &fakeBookings{
		createFn: func(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	rec := doCreate(t, svc, `{"show_id":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelBookingHandler(t *testing.T) {
	cancelled := sampleBooking()
	cancelled.Status = model.BookingCancelled
	svc := &fakeBookings{
		getFn: func(ctx context.Context, bookingID uint64) (*model.Booking, error) {
			return sampleBooking(), nil
		},
		cancelFn: func(ctx context.Context, bookingID uint64) (*model.Booking, error) {
			assert.Equal(t, uint64(11), bookingID)
			return cancelled, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/11/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("11")
	c.Set("user_id", uint64(7))

	h := NewBookingHandler(svc)
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got bookingResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "CANCELLED", got.Status)
}

func TestCancelBookingHandlerForbidsOtherUsers(t *testing.T) {
	svc := &fakeBookings{
		getFn: func(ctx context.Context, bookingID uint64) (*model.Booking, error) {
			return sampleBooking(), nil
		},
		cancelFn: func(ctx context.Context, bookingID uint64) (*model.Booking, error) {
			t.Fatal("cancel must not be called")
			return nil, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/11/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("11")
	c.Set("user_id", uint64(99)) // not the owner

	h := NewBookingHandler(svc)
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
