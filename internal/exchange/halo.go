// Package exchange implements the per-timestep halo exchange between adjacent workers.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/types"
)

// Halo fills p's ghost rows for step with the neighbors' nearest owned rows.
//
// Rank R sends its first owned row to R-1 and receives R-1's last owned row into
// ghost row 0; it sends its last owned row to R+1 and receives R+1's first owned row
// into ghost row Count+1. A side without a neighbor (rank 0's top, rank W-1's
// bottom) is skipped and its ghost row is never written.
//
// All sends and receives are issued before any is awaited. Waiting on a send before
// the matching receive is posted would let every worker block on its own send and
// deadlock the ring of neighbors.
//
// Any failed transfer is returned wrapped; the run cannot continue with a missing row.
func Halo(ctx context.Context, ep types.Endpoint, p *grid.Partition, step int) error {
	rank, size := ep.Rank(), ep.Size()
	reqs := make([]types.Request, 0, 4)

	if rank > 0 {
		reqs = append(reqs,
			ep.ISend(ctx, rank-1, step, p.FirstOwned()),
			ep.IRecv(ctx, rank-1, step, p.GhostTop()),
		)
	}
	if rank < size-1 {
		reqs = append(reqs,
			ep.ISend(ctx, rank+1, step, p.LastOwned()),
			ep.IRecv(ctx, rank+1, step, p.GhostBottom()),
		)
	}

	var errs []error
	for _, r := range reqs {
		if err := r.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if errors.Is(err, types.ErrExchangeTimeout) || errors.Is(err, types.ErrRunAborted) {
			return fmt.Errorf("step %d: %w", step, err)
		}

		return fmt.Errorf("%w: step %d: %w", types.ErrExchangeFailed, step, err)
	}

	return nil
}
