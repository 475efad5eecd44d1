package heatslab

import "github.com/heatslab/heatslab/types"

// Sentinel errors returned by the solver and its transports.
//
// They are the same values as in the types package, so errors.Is works against
// either name.
var (
	ErrInvalidConfig    = types.ErrInvalidConfig
	ErrTooManyWorkers   = types.ErrTooManyWorkers
	ErrInvalidRank      = types.ErrInvalidRank
	ErrEndpointRequired = types.ErrEndpointRequired
	ErrAlreadyStarted   = types.ErrAlreadyStarted

	ErrExchangeFailed  = types.ErrExchangeFailed
	ErrExchangeTimeout = types.ErrExchangeTimeout
	ErrHaloMismatch    = types.ErrHaloMismatch
	ErrGatherFailed    = types.ErrGatherFailed
	ErrRunAborted      = types.ErrRunAborted
	ErrTransportClosed = types.ErrTransportClosed
)
