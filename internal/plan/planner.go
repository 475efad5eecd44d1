// Package plan computes the row-wise domain decomposition of the global grid.
package plan

import (
	"fmt"

	"github.com/heatslab/heatslab/types"
)

// Rows returns the rows owned by rank when an N-row grid is split across workers.
//
// Every rank owns N/workers rows except the last, which also takes the N mod workers
// remainder rows. start = rank * (N/workers). The last partition can therefore be
// noticeably larger than the others when workers is close to N.
//
// Parameters:
//   - gridSize: Global grid dimension N
//   - workers: Worker count W
//   - rank: 0-indexed rank R
//
// Returns:
//   - types.RowRange: The rank's row range
//   - error: ErrInvalidConfig, ErrTooManyWorkers or ErrInvalidRank on misconfiguration
func Rows(gridSize, workers, rank int) (types.RowRange, error) {
	if err := Check(gridSize, workers); err != nil {
		return types.RowRange{}, err
	}
	if rank < 0 || rank >= workers {
		return types.RowRange{}, fmt.Errorf("%w: rank %d with %d workers", types.ErrInvalidRank, rank, workers)
	}

	base := gridSize / workers
	count := base
	if rank == workers-1 {
		count += gridSize % workers
	}

	return types.RowRange{Rank: rank, Start: rank * base, Count: count}, nil
}

// All returns every rank's row range in rank order.
func All(gridSize, workers int) ([]types.RowRange, error) {
	if err := Check(gridSize, workers); err != nil {
		return nil, err
	}

	ranges := make([]types.RowRange, workers)
	for rank := range workers {
		r, err := Rows(gridSize, workers, rank)
		if err != nil {
			return nil, err
		}
		ranges[rank] = r
	}

	return ranges, nil
}

// Check validates that gridSize rows can be split across workers with no empty range.
func Check(gridSize, workers int) error {
	if gridSize <= 0 {
		return fmt.Errorf("%w: grid size must be positive, got %d", types.ErrInvalidConfig, gridSize)
	}
	if workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", types.ErrInvalidConfig, workers)
	}
	if workers > gridSize {
		return fmt.Errorf("%w: %d workers for %d rows", types.ErrTooManyWorkers, workers, gridSize)
	}

	return nil
}

// Imbalance returns the ratio of the largest partition to the base partition size.
//
// A value of 1 means perfectly even rows; callers use it to warn when the last
// worker carries a disproportionate share.
func Imbalance(gridSize, workers int) float64 {
	if workers <= 0 || workers > gridSize {
		return 0
	}
	base := gridSize / workers

	return float64(base+gridSize%workers) / float64(base)
}
