package types

import "context"

// HaloMessage is one boundary row in flight between adjacent workers.
type HaloMessage struct {
	// From is the sending rank.
	From int `msgpack:"from"`

	// Step is the timestep the row belongs to.
	Step int `msgpack:"step"`

	// Values is a copy of the sender's owned boundary row (GridSize values).
	Values []float64 `msgpack:"values"`
}

// Block is one worker's owned rows, contributed to the final gather.
type Block struct {
	// Range identifies the rows the block covers.
	Range RowRange `msgpack:"range"`

	// Values holds Range.Count * GridSize values, row-major, ghost rows excluded.
	Values []float64 `msgpack:"values"`
}

// Request is a previously issued non-blocking transfer.
//
// Data passed to or received by the transfer is only valid after Wait returns nil.
type Request interface {
	// Wait blocks until the transfer completes, the context ends, or the run aborts.
	//
	// Parameters:
	//   - ctx: Context bounding the wait (a deadline is treated as a fatal timeout)
	//
	// Returns:
	//   - error: nil on completion; wraps ErrExchangeTimeout, ErrRunAborted or a transport error
	Wait(ctx context.Context) error
}

// Endpoint is one worker's view of the communication layer.
//
// The solver consumes exactly these primitives: non-blocking send and receive of a
// fixed-size row to/from a named peer, a blocking wait on an issued transfer, and a
// rank-ordered gather onto one distinguished worker.
//
// Implementations must be safe for concurrent use by one worker's goroutines.
type Endpoint interface {
	// Rank returns this worker's 0-indexed rank.
	Rank() int

	// Size returns the total worker count W.
	Size() int

	// ISend issues a send of row to peer for the given step and returns immediately.
	// The row is copied before ISend returns, so the caller may reuse it.
	ISend(ctx context.Context, peer, step int, row []float64) Request

	// IRecv issues a receive of peer's row for the given step into buf and returns
	// immediately. buf must not be read until the returned Request's Wait succeeds.
	IRecv(ctx context.Context, peer, step int, buf []float64) Request

	// Gather collects every rank's block onto root. Root receives all blocks in rank
	// order; other ranks receive nil after their block was delivered.
	Gather(ctx context.Context, root int, block Block) ([]Block, error)

	// Abort signals a fatal error to every worker of the run.
	Abort(err error)

	// Done is closed once the run has been aborted by any worker.
	Done() <-chan struct{}

	// Err returns the abort cause after Done is closed, nil before.
	Err() error

	// Close releases the endpoint's resources.
	Close() error
}
