package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo persists bookings together with their seat mutations.
// Every mutating method is one transaction: the booking row, the
// booking_seats join rows and the version-checked seat updates either
// all commit or none do.  A stale seat or booking version rolls the
// whole unit back and surfaces as ErrVersionConflict so the booking
// service can re-validate and retry.
type BookingRepo struct {
	db    *sql.DB
	seats *SeatRepo
}

// NewBookingRepo constructs a BookingRepo.  The SeatRepo is used for
// the conditional seat writes that ride inside booking transactions.
func NewBookingRepo(db *sql.DB, seats *SeatRepo) *BookingRepo {
	if seats == nil {
		panic("nil seat repository passed to NewBookingRepo")
	}
	return &BookingRepo{db: db, seats: seats}
}

// CreateWithSeats persists a new booking and applies the prepared
// seat statuses atomically.  Each seat in b.Seats must carry the
// status the service decided on (BOOKED or RESERVED) and the version
// it was read at; the matching row is updated only while that version
// still holds.  On success the generated booking ID is populated, the
// booking version starts at 1 and each seat's local version counter
// is advanced to mirror the store.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings (user_id, show_id, total_amount, status, booking_time, version)
	           VALUES (?, ?, ?, ?, ?, 1)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowID, b.TotalAmount, b.Status, b.BookingTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Version = 1

	if err := r.insertBookingSeatsTx(ctx, tx, b); err != nil {
		return err
	}
	for i := range b.Seats {
		s := &b.Seats[i]
		if err := r.seats.UpdateStatusCheckedTx(ctx, tx, s.ID, s.Status, s.Version); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	for i := range b.Seats {
		b.Seats[i].Version++
	}
	return nil
}

// CancelWithSeats marks a booking CANCELLED and returns its seats to
// AVAILABLE in one transaction.  Both the booking write and every
// seat write are version checked against the versions carried on b;
// any stale version rolls the unit back with ErrVersionConflict.
func (r *BookingRepo) CancelWithSeats(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE bookings
	           SET status = ?, version = version + 1
	           WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, b.ID, b.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	for i := range b.Seats {
		s := &b.Seats[i]
		if err := r.seats.UpdateStatusCheckedTx(ctx, tx, s.ID, model.SeatAvailable, s.Version); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.Status = model.BookingCancelled
	b.Version++
	for i := range b.Seats {
		b.Seats[i].Status = model.SeatAvailable
		b.Seats[i].Version++
	}
	return nil
}

func (r *BookingRepo) insertBookingSeatsTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*2)
	for i, s := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, b.ID, s.ID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

const bookingColumns = `id, user_id, show_id, total_amount, status, booking_time, version`

// GetByID retrieves a booking together with its seats.  It returns
// ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.ShowID, &b.TotalAmount, &b.Status, &b.BookingTime, &b.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if b.Seats, err = r.seatsOf(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser returns all bookings of a user, newest first, each with
// its seats attached.  When no bookings exist it returns an empty
// slice and nil error.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY booking_time DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.ShowID, &b.TotalAmount, &b.Status, &b.BookingTime, &b.Version,
		); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if result[i].Seats, err = r.seatsOf(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// seatsOf loads the seats attached to a booking in id order, which is
// the order they were locked and allocated in.
func (r *BookingRepo) seatsOf(ctx context.Context, bookingID uint64) ([]model.Seat, error) {
	const q = `SELECT s.id, s.show_id, s.seat_number, s.status, s.version
	           FROM seats s
	           JOIN booking_seats bs ON bs.seat_id = s.id
	           WHERE bs.booking_id = ?
	           ORDER BY s.id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}
