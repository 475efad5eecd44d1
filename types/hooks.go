package types

import "context"

// Hooks defines callbacks for solver lifecycle events.
//
// All hooks are optional. They run synchronously on the worker's goroutine, so they
// must complete quickly: a slow hook stalls that worker and, through the halo
// exchange, every other worker of the run.
//
// Example:
//
//	hooks := &heatslab.Hooks{
//	    OnTimestep: func(ctx context.Context, rank, step int) error {
//	        fmt.Printf("rank %d finished step %d\n", rank, step)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnTimestep is called after a completed timestep, every ProgressEvery steps.
	OnTimestep func(ctx context.Context, rank, step int) error

	// OnCollected is called on the collecting worker with the reassembled grid.
	OnCollected func(ctx context.Context, grid *Grid) error

	// OnError is called when the run fails, before the error is returned.
	OnError func(ctx context.Context, err error) error
}
