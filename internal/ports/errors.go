package ports

import "errors"

// Standard application-level errors. Components detect these at entry to
// their public operations and report them synchronously; there is no retry
// (a run is deterministic, retrying changes nothing) and no silent recovery.
var (
	// Configuration errors reject the run before the loop starts.
	ErrConfiguration    = errors.New("invalid or missing configuration")
	ErrStrategyRequired = errors.New("no strategy supplied")

	// ErrInvalidData means the series failed validation. Simulation is
	// all-or-nothing per run; bad bars are never skipped mid-loop.
	ErrInvalidData = errors.New("price series failed validation")

	// ErrPositionConflict is an engine invariant violation. Always a
	// defect, never suppressed.
	ErrPositionConflict = errors.New("position already open")

	// Storage errors.
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrNotFound     = errors.New("record not found")

	// Exchange data source errors.
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrRateLimited         = errors.New("API rate limit exceeded")
	ErrInvalidRequest      = errors.New("invalid request parameters or format")
)
