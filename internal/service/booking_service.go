package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// UserStore resolves users referenced by bookings.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// ShowStore resolves shows referenced by bookings.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// SeatStore reads seat state. Reads happen under distributed locks so
// the rows returned are the rows the subsequent write will be checked
// against.
type SeatStore interface {
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
}

// BookingStore persists bookings together with their seat state
// transitions in a single transaction, using version-checked writes.
type BookingStore interface {
	CreateWithSeats(ctx context.Context, b *model.Booking) error
	CancelWithSeats(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// SeatLocker serializes access to a set of seats across instances.
type SeatLocker interface {
	WithSeatLocks(ctx context.Context, seatIDs []uint64, fn func() error) error
}

// Invalidator drops cached seat availability after a committed change.
type Invalidator interface {
	InvalidateAvailableSeats(ctx context.Context, showID uint64) error
}

// EventPublisher emits booking lifecycle events for downstream
// consumers (notifications, analytics). Publishing is best effort and
// never fails the booking.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b *model.Booking) error
	PublishBookingCancelled(ctx context.Context, b *model.Booking) error
}

// BookingService implements the booking workflows: confirmed bookings,
// short-lived reservations and cancellation. Every seat mutation runs
// under distributed seat locks, and the database write is additionally
// guarded by per-row version checks retried under the configured
// policy.
type BookingService struct {
	users    UserStore
	shows    ShowStore
	seats    SeatStore
	bookings BookingStore
	locker   SeatLocker
	retry    RetryPolicy

	cache  Invalidator    // optional
	events EventPublisher // optional

	now func() time.Time
}

// NewBookingService wires the service. cache and events may be nil;
// the corresponding side effects are then skipped.
func NewBookingService(users UserStore, shows ShowStore, seats SeatStore, bookings BookingStore, locker SeatLocker, retry RetryPolicy, cache Invalidator, events EventPublisher) *BookingService {
	return &BookingService{
		users:    users,
		shows:    shows,
		seats:    seats,
		bookings: bookings,
		locker:   locker,
		retry:    retry,
		cache:    cache,
		events:   events,
		now:      time.Now,
	}
}

// CreateBooking books the given seats for the user and confirms the
// booking. All seats are taken or none are.
func (s *BookingService) CreateBooking(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	return s.allocate(ctx, userID, showID, seatIDs, model.SeatBooked)
}

// ReserveSeats places the seats in RESERVED state while the booking
// itself is confirmed immediately, mirroring CreateBooking in every
// other respect.
func (s *BookingService) ReserveSeats(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	return s.allocate(ctx, userID, showID, seatIDs, model.SeatReserved)
}

// allocate is the shared path behind CreateBooking and ReserveSeats.
// Order of operations: resolve user and show, take the seat locks in
// sorted order, then inside the locks validate fresh seat state and
// commit, retrying the validate-and-commit step on version conflicts.
func (s *BookingService) allocate(ctx context.Context, userID, showID uint64, seatIDs []uint64, target model.SeatStatus) (*model.Booking, error) {
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidState)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, fmt.Errorf("show %d: %w", showID, ErrNotFound)
		}
		return nil, err
	}
	if show.ShowTime.Before(s.now()) {
		return nil, fmt.Errorf("%w: show %d has already started", ErrInvalidState, showID)
	}

	var booking *model.Booking
	err = s.locker.WithSeatLocks(ctx, seatIDs, func() error {
		return s.retry.Do(ctx, func(ctx context.Context) error {
			seats, err := s.validateSeats(ctx, showID, seatIDs)
			if err != nil {
				return err
			}
			for i := range seats {
				seats[i].Status = target
			}
			b := &model.Booking{
				UserID:      userID,
				ShowID:      showID,
				Seats:       seats,
				TotalAmount: float64(len(seats)) * show.TicketPrice,
				Status:      model.BookingConfirmed,
				BookingTime: s.now().UTC(),
			}
			if err := s.bookings.CreateWithSeats(ctx, b); err != nil {
				return err
			}
			booking = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, booking, true)
	return booking, nil
}

// dedupe removes repeated seat ids while keeping the first occurrence
// order. Requesting the same seat twice is treated as requesting it
// once.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// validateSeats re-reads the requested seats and checks they exist,
// belong to the show and are all still available.
func (s *BookingService) validateSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	seats, err := s.seats.GetByIDs(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(seatIDs) {
		return nil, fmt.Errorf("%w: one or more seats do not exist", ErrNotFound)
	}
	for _, seat := range seats {
		if seat.ShowID != showID {
			return nil, fmt.Errorf("%w: all seats must belong to the same show", ErrInvalidState)
		}
		if !seat.IsAvailable() {
			return nil, fmt.Errorf("seat %s: %w", seat.SeatNumber, ErrSeatConflict)
		}
	}
	return seats, nil
}

// CancelBooking cancels a confirmed booking and returns its seats to
// AVAILABLE. Cancelling an already cancelled booking is an error.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	// First read only discovers which seats to lock; all decisions are
	// made on the fresh read taken under the locks.
	stale, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
		}
		return nil, err
	}

	var booking *model.Booking
	err = s.locker.WithSeatLocks(ctx, stale.SeatIDs(), func() error {
		return s.retry.Do(ctx, func(ctx context.Context) error {
			b, err := s.bookings.GetByID(ctx, bookingID)
			if err != nil {
				if errors.Is(err, repository.ErrBookingNotFound) {
					return fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
				}
				return err
			}
			if b.Status != model.BookingConfirmed {
				return fmt.Errorf("%w: booking %d is already %s", ErrInvalidState, bookingID, b.Status)
			}
			if err := s.bookings.CancelWithSeats(ctx, b); err != nil {
				return err
			}
			booking = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, booking, false)
	return booking, nil
}

// GetBooking returns a booking with its seats.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// ListUserBookings returns all bookings of a user, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// afterCommit runs the post-commit side effects: cache invalidation
// and event publishing. Both are best effort; the booking outcome is
// already durable.
func (s *BookingService) afterCommit(ctx context.Context, b *model.Booking, confirmed bool) {
	if s.cache != nil {
		if err := s.cache.InvalidateAvailableSeats(ctx, b.ShowID); err != nil {
			log.Printf("cache invalidation failed for show %d: %v", b.ShowID, err)
		}
	}
	if s.events != nil {
		var err error
		if confirmed {
			err = s.events.PublishBookingConfirmed(ctx, b)
		} else {
			err = s.events.PublishBookingCancelled(ctx, b)
		}
		if err != nil {
			log.Printf("event publish failed for booking %d: %v", b.ID, err)
		}
	}
}
