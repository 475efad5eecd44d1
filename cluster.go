package heatslab

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/heatslab/heatslab/transport"
)

// RunLocal runs a whole simulation in this process with one goroutine per worker,
// connected by the in-process transport.
//
// With workers == 1 this is the serial reference computation: no exchange takes
// place and the single worker owns every row.
//
// The options apply to every worker. OnCollected fires once, on rank 0.
//
// Parameters:
//   - ctx: Context for cancellation of the run
//   - cfg: Run configuration (missing values are defaulted in place)
//   - workers: Worker count W (1 <= W <= GridSize)
//   - opts: Options shared by all workers
//
// Returns:
//   - *Result: Rank 0's result, carrying the reassembled grid
//   - error: The first root-cause failure of any worker
//
// Example:
//
//	cfg := heatslab.DefaultConfig()
//	res, err := heatslab.RunLocal(ctx, &cfg, 4)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Grid.At(50, 50))
func RunLocal(ctx context.Context, cfg *Config, workers int, opts ...Option) (*Result, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	tr, err := transport.NewLocal(workers)
	if err != nil {
		return nil, err
	}

	solvers := make([]*Solver, workers)
	for rank := range workers {
		ep, err := tr.Endpoint(rank)
		if err != nil {
			return nil, err
		}
		defer ep.Close()

		s, err := NewSolver(cfg, ep, opts...)
		if err != nil {
			return nil, err
		}
		solvers[rank] = s
	}

	results := make([]*Result, workers)
	errs := make([]error, workers)

	// No shared context: a failing worker stops its peers through the transport abort.
	var g errgroup.Group
	for rank, s := range solvers {
		g.Go(func() error {
			results[rank], errs[rank] = s.Run(ctx)
			return errs[rank]
		})
	}

	if err := g.Wait(); err != nil {
		return nil, rootCause(errs)
	}

	return results[0], nil
}

// rootCause prefers the error of the worker that triggered the abort over the
// ErrRunAborted seen by its peers.
func rootCause(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrRunAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}

	return first
}
