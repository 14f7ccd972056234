// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// BookingConfirmedEvent is published when a booking commits. It carries
// enough information for downstream consumers to log, notify, or feed
// analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatNumbers []string `json:"seats"`
	TotalAmount float64  `json:"total_amount"`
	BookedAt    string   `json:"booked_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and
// its seats return to the available pool.
type BookingCancelledEvent struct {
	BookingID   uint64   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatNumbers []string `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}
