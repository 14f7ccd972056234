package model

import "time"

// Movie is a catalog entry that shows are scheduled against.  The
// ticket price lives here and is copied onto loaded Show values so
// booking computes totals from a single read.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – movie title.
//  Description – optional synopsis.
//  Duration    – running time in minutes.
//  Genre       – genre label.
//  Language    – audio language.
//  ReleaseDate – theatrical release date.
//  TicketPrice – per-seat price for all shows of this movie.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Movie struct {
	ID          uint64    // movies.id
	Title       string    // movies.title
	Description string    // movies.description
	Duration    uint32    // movies.duration_minutes
	Genre       string    // movies.genre
	Language    string    // movies.language
	ReleaseDate time.Time // movies.release_date
	TicketPrice float64   // movies.ticket_price
	CreatedAt   time.Time // movies.created_at
	UpdatedAt   time.Time // movies.updated_at
}
