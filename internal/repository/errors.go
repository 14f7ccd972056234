// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service to distinguish between different failure scenarios.
// ErrVersionConflict in particular is the store's rejection signal for
// conditional writes: every seat and booking row carries a version
// counter, and a write presenting a stale version affects zero rows
// and surfaces as this error so the caller can re-validate and retry.
package repository

import "errors"

// ErrVersionConflict is returned when a version-checked write matched
// no row because the record changed since it was last read. The
// enclosing transaction is rolled back before this is returned, so a
// conflicting write never leaves partial mutation behind.
var ErrVersionConflict = errors.New("version conflict")
