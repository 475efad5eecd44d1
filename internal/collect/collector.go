// Package collect reassembles the global grid from every worker's owned rows.
package collect

import (
	"context"
	"errors"
	"fmt"

	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/types"
)

// Root is the rank that receives the reassembled grid.
const Root = 0

// Collect contributes p's owned rows (ghost rows excluded) and, on the root worker,
// returns the full N×N grid built from every worker's contribution.
//
// Each block is placed at its own RowRange.Start, so the result does not depend on
// the order blocks arrive in. Non-root workers return a nil grid once their rows
// were delivered.
//
// Parameters:
//   - ctx: Context bounding the gather
//   - ep: This worker's endpoint
//   - p: This worker's slab after the final timestep
//
// Returns:
//   - *types.Grid: Reassembled grid on the root, nil elsewhere
//   - error: ErrGatherFailed (wrapped) if the gather fails or blocks do not tile the grid
func Collect(ctx context.Context, ep types.Endpoint, p *grid.Partition) (*types.Grid, error) {
	block := types.Block{Range: p.Range(), Values: p.Owned()}

	blocks, err := ep.Gather(ctx, Root, block)
	if err != nil {
		if errors.Is(err, types.ErrGatherFailed) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", types.ErrGatherFailed, err)
	}
	if ep.Rank() != Root {
		return nil, nil
	}

	return Assemble(p.Width(), blocks)
}

// Assemble copies blocks into a new size×size grid.
//
// The blocks must cover every row exactly once and each must hold Count*size values.
func Assemble(size int, blocks []types.Block) (*types.Grid, error) {
	g := types.NewGrid(size)
	covered := make([]bool, size)

	for _, b := range blocks {
		r := b.Range
		if r.Start < 0 || r.Count <= 0 || r.End() > size {
			return nil, fmt.Errorf("%w: block %v outside grid of %d rows", types.ErrGatherFailed, r, size)
		}
		if len(b.Values) != r.Count*size {
			return nil, fmt.Errorf("%w: block %v has %d values, want %d",
				types.ErrGatherFailed, r, len(b.Values), r.Count*size)
		}
		for row := r.Start; row < r.End(); row++ {
			if covered[row] {
				return nil, fmt.Errorf("%w: row %d contributed twice", types.ErrGatherFailed, row)
			}
			covered[row] = true
		}

		copy(g.Cells[r.Start*size:r.End()*size], b.Values)
	}

	for row, ok := range covered {
		if !ok {
			return nil, fmt.Errorf("%w: row %d missing", types.ErrGatherFailed, row)
		}
	}

	return g, nil
}
