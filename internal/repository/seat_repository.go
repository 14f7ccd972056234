package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions
	"strings"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides methods to work with seats in the database.
// Seats are created once per show and never deleted; after creation
// only status and version change, and only through version-checked
// writes issued by the booking repository while the distributed seat
// locks are held.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, show_id, seat_number, status, version`

// CreateBulkTx inserts the seat grid of a show in a single statement
// within the caller's transaction.  All seats start AVAILABLE at
// version 1.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (show_id, seat_number, status, version) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.ShowID, s.SeatNumber, model.SeatAvailable, 1)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByIDs loads the seats with the given ids ordered by id.  The
// caller compares the returned count against the requested count to
// detect ids that do not exist.  Duplicate ids in the input are
// collapsed by the IN clause.
func (r *SeatRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders + `) ORDER BY id`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// ListByShow retrieves every seat of a show ordered by seat number.
func (r *SeatRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE show_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// ListByShowAndStatus retrieves the seats of a show in a given status
// ordered by seat number.  The AVAILABLE variant feeds the cached
// available-seats view.
func (r *SeatRepo) ListByShowAndStatus(ctx context.Context, showID uint64, status model.SeatStatus) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE show_id = ? AND status = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// UpdateStatusCheckedTx performs the store's conditional write for a
// single seat inside the caller's transaction: the status is applied
// and the version incremented only when the row still carries the
// expected version.  Zero affected rows means the seat changed since
// it was read and the write is rejected with ErrVersionConflict.
func (r *SeatRepo) UpdateStatusCheckedTx(ctx context.Context, tx *sql.Tx, seatID uint64, status model.SeatStatus, expectedVersion uint64) error {
	const q = `UPDATE seats
	           SET status = ?, version = version + 1
	           WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, status, seatID, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ShowID, &s.SeatNumber, &s.Status, &s.Version); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
