package collect

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/internal/plan"
	"github.com/heatslab/heatslab/transport"
	"github.com/heatslab/heatslab/types"
)

func value(row, col int) float64 { return float64(row*100 + col) }

func TestCollect(t *testing.T) {
	tests := []struct {
		n, workers int
	}{
		{4, 1},
		{4, 2},
		{7, 3},
		{10, 4},
		{5, 5},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			ranges, err := plan.All(tt.n, tt.workers)
			require.NoError(t, err)
			tr, err := transport.NewLocal(tt.workers)
			require.NoError(t, err)

			grids := make([]*types.Grid, tt.workers)
			g, ctx := errgroup.WithContext(t.Context())
			for rank, r := range ranges {
				p, err := grid.New(r, tt.n)
				require.NoError(t, err)
				p.Fill(value)
				// ghost rows must not leak into the result
				for i := range p.GhostTop() {
					p.GhostTop()[i] = -1
					p.GhostBottom()[i] = -1
				}
				ep, err := tr.Endpoint(rank)
				require.NoError(t, err)

				g.Go(func() error {
					out, err := Collect(ctx, ep, p)
					grids[rank] = out
					return err
				})
			}
			require.NoError(t, g.Wait())

			full := grids[Root]
			require.NotNil(t, full)
			for rank := 1; rank < tt.workers; rank++ {
				require.Nil(t, grids[rank])
			}
			for i := range tt.n {
				for j := range tt.n {
					require.Equal(t, value(i, j), full.At(i, j))
				}
			}
		})
	}
}

func TestAssemble_OrderIndependent(t *testing.T) {
	blocks := []types.Block{
		{Range: types.RowRange{Rank: 1, Start: 1, Count: 1}, Values: []float64{5, 6}},
		{Range: types.RowRange{Rank: 0, Start: 0, Count: 1}, Values: []float64{1, 2}},
	}

	g, err := Assemble(2, blocks)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 5, 6}, g.Cells)
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name   string
		blocks []types.Block
	}{
		{
			name:   "missing row",
			blocks: []types.Block{{Range: types.RowRange{Start: 0, Count: 1}, Values: []float64{1, 2}}},
		},
		{
			name: "overlap",
			blocks: []types.Block{
				{Range: types.RowRange{Start: 0, Count: 2}, Values: make([]float64, 4)},
				{Range: types.RowRange{Rank: 1, Start: 1, Count: 1}, Values: make([]float64, 2)},
			},
		},
		{
			name:   "short values",
			blocks: []types.Block{{Range: types.RowRange{Start: 0, Count: 2}, Values: make([]float64, 3)}},
		},
		{
			name:   "past last row",
			blocks: []types.Block{{Range: types.RowRange{Start: 1, Count: 2}, Values: make([]float64, 4)}},
		},
		{
			name:   "negative start",
			blocks: []types.Block{{Range: types.RowRange{Start: -1, Count: 2}, Values: make([]float64, 4)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(2, tt.blocks)
			require.ErrorIs(t, err, types.ErrGatherFailed)
		})
	}
}
