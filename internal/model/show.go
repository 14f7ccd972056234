package model

import "time"

// Show represents a scheduled screening of a movie on a particular
// screen.  Seats for a show are generated once at creation time and
// never destroyed; their availability is tracked on the seats table.
// TicketPrice is resolved from the parent movie when the show is
// loaded so booking can price seats without a second lookup.
//
// Fields:
//  ID           – primary key identifier.
//  MovieID      – movie being screened.
//  ShowTime     – when the screening begins (UTC).
//  ScreenNumber – screen or auditorium label.
//  TotalSeats   – number of seats generated for this show.
//  TicketPrice  – per-seat price, read from the movie row.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Show struct {
	ID           uint64    // shows.id
	MovieID      uint64    // shows.movie_id
	ShowTime     time.Time // shows.show_time
	ScreenNumber string    // shows.screen_number
	TotalSeats   uint32    // shows.total_seats
	TicketPrice  float64   // movies.ticket_price (joined on load)
	CreatedAt    time.Time // shows.created_at
	UpdatedAt    time.Time // shows.updated_at
}
