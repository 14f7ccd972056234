// Package repository contains data access logic for Show domain operations. This file defines
// repository methods for shows. A Show represents a scheduled screening of a movie
// on a screen. The movie's ticket price is joined onto every loaded Show so the
// booking engine can price seats from a single read.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel definitions
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories, such as creating a
// show together with its generated seats.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

const showColumns = `s.id, s.movie_id, s.show_time, s.screen_number, s.total_seats, m.ticket_price, s.created_at, s.updated_at`

// CreateTx inserts a new show using the provided transaction instead
// of the repository's DB handle.  The caller must commit or roll back
// the transaction; the seat grid for the show is generated in the
// same transaction so a show never exists without its seats.  On
// success the generated ID is populated on the given Show.
func (r *ShowRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error {
	const q = `INSERT INTO shows (movie_id, show_time, screen_number, total_seats) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.ShowTime, s.ScreenNumber, s.TotalSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a show by its ID with the movie's ticket price
// joined on.  It returns ErrShowNotFound if there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT ` + showColumns + `
	           FROM shows s
	           JOIN movies m ON m.id = s.movie_id
	           WHERE s.id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.ShowTime, &s.ScreenNumber, &s.TotalSeats,
		&s.TicketPrice, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByMovie returns all shows scheduled for a movie ordered by
// start time ascending.  When no shows exist it returns an empty
// slice and nil error.
func (r *ShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Show, error) {
	const q = `SELECT ` + showColumns + `
	           FROM shows s
	           JOIN movies m ON m.id = s.movie_id
	           WHERE s.movie_id = ?
	           ORDER BY s.show_time ASC`
	return r.queryShows(ctx, q, movieID)
}

// ListUpcomingByMovie returns the shows for a movie whose start time
// is at or after the supplied instant, ordered by start time.
func (r *ShowRepo) ListUpcomingByMovie(ctx context.Context, movieID uint64, from time.Time) ([]model.Show, error) {
	const q = `SELECT ` + showColumns + `
	           FROM shows s
	           JOIN movies m ON m.id = s.movie_id
	           WHERE s.movie_id = ? AND s.show_time >= ?
	           ORDER BY s.show_time ASC`
	return r.queryShows(ctx, q, movieID, from)
}

func (r *ShowRepo) queryShows(ctx context.Context, q string, args ...interface{}) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(
			&s.ID, &s.MovieID, &s.ShowTime, &s.ScreenNumber, &s.TotalSeats,
			&s.TicketPrice, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
