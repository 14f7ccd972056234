package model

// SeatStatus enumerates the allocation state of a seat.  An
// AVAILABLE seat can be booked or reserved; a seat in any other
// state is attached to exactly one non-cancelled booking.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to allocate
	SeatBooked    SeatStatus = "BOOKED"    // committed to a confirmed booking
	SeatReserved  SeatStatus = "RESERVED"  // held pending confirmation
)

// Seat describes an allocatable seat belonging to a single show.
// Seats are generated once when their show is created and are never
// deleted; only Status and Version mutate afterwards, and only while
// the seat's distributed lock is held.
//
// Fields:
//  ID         – primary key identifier.
//  ShowID     – show to which this seat belongs.
//  SeatNumber – human-readable label (e.g. "A1"), unique per show.
//  Status     – allocation state (AVAILABLE, BOOKED, RESERVED).
//  Version    – optimistic lock counter, incremented on every
//               successful write; a write presenting a stale version
//               is rejected by the store.
type Seat struct {
	ID         uint64     // seats.id
	ShowID     uint64     // seats.show_id
	SeatNumber string     // seats.seat_number
	Status     SeatStatus // seats.status
	Version    uint64     // seats.version
}

// IsAvailable reports whether the seat can still be allocated.
func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}
