package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
// EXPIRED is modeled for a future confirm/expire flow; no current
// code path produces it.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Booking records a user's claim over a set of seats for one show.
// The seat set is exactly the set that was atomically locked and
// allocated; the seat set of a CONFIRMED booking is disjoint from
// that of every other CONFIRMED booking for the same show.
// TotalAmount is derived (seat count × show ticket price) at commit
// time and never recomputed later.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the booking.
//  ShowID      – show being booked.
//  Seats       – seats allocated under this booking, in lock order.
//  TotalAmount – total price computed at commit time.
//  Status      – lifecycle state (CONFIRMED, CANCELLED, EXPIRED).
//  BookingTime – when the booking was committed (UTC).
//  Version     – optimistic lock counter, incremented on every write.
type Booking struct {
	ID          uint64        // bookings.id
	UserID      uint64        // bookings.user_id
	ShowID      uint64        // bookings.show_id
	Seats       []Seat        // booking_seats join rows
	TotalAmount float64       // bookings.total_amount
	Status      BookingStatus // bookings.status
	BookingTime time.Time     // bookings.booking_time
	Version     uint64        // bookings.version
}

// SeatIDs returns the ids of the seats attached to the booking.
// Cancellation uses these to lock the same seat set that booking
// locked.
func (b *Booking) SeatIDs() []uint64 {
	ids := make([]uint64, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.ID)
	}
	return ids
}
