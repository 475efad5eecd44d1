package types

import "errors"

// Sentinel errors for the heatslab library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components wrap them with context using fmt.Errorf("%s: %w", msg, err).

// Configuration errors - detected before any computation begins.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTooManyWorkers is returned when the worker count exceeds the grid rows.
	ErrTooManyWorkers = errors.New("worker count exceeds grid rows")

	// ErrInvalidRank is returned when a rank is outside [0, W).
	ErrInvalidRank = errors.New("invalid worker rank")

	// ErrEndpointRequired is returned when no transport endpoint is supplied.
	ErrEndpointRequired = errors.New("transport endpoint is required")

	// ErrAlreadyStarted is returned when Run is called twice on the same solver.
	ErrAlreadyStarted = errors.New("solver already started")
)

// Communication errors - fatal to the whole run.
var (
	// ErrExchangeFailed is returned when a halo transfer fails.
	ErrExchangeFailed = errors.New("halo exchange failed")

	// ErrExchangeTimeout is returned when a transfer does not complete in time.
	ErrExchangeTimeout = errors.New("halo exchange timed out")

	// ErrHaloMismatch is returned when a received row has the wrong step or length.
	ErrHaloMismatch = errors.New("halo row mismatch")

	// ErrGatherFailed is returned when the final collection fails.
	ErrGatherFailed = errors.New("gather failed")

	// ErrRunAborted is returned by waits interrupted by another worker's abort.
	ErrRunAborted = errors.New("run aborted")

	// ErrTransportClosed is returned when a transfer is issued on a closed endpoint.
	ErrTransportClosed = errors.New("transport closed")
)
