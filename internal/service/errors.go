package service

import "errors"

// Sentinel errors returned by the booking service. Handlers map these
// onto HTTP status codes and machine-readable error codes; callers
// should test them with errors.Is because service methods wrap them
// with contextual detail.
var (
	// ErrNotFound is returned when a referenced user, show, seat or
	// booking does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidState is returned when the request is well formed but
	// the entity cannot accept it, e.g. booking a show in the past or
	// cancelling a booking twice.
	ErrInvalidState = errors.New("invalid state")

	// ErrSeatConflict is returned when one of the requested seats is
	// already booked or reserved by someone else.
	ErrSeatConflict = errors.New("seat already booked or reserved")

	// ErrConcurrencyConflict is returned when the retry budget for
	// version conflicts is exhausted without a successful write.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)
