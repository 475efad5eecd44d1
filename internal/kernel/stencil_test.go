package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/types"
)

func defaultParams(n int) types.Params {
	return types.Params{
		GridSize:      n,
		Alpha:         0.01,
		DT:            0.1,
		DX:            1.0,
		HotSquareSide: 48,
		HotValue:      100,
		ColdValue:     0,
	}
}

func wholeGrid(t *testing.T, params types.Params, initial types.InitialCondition) *grid.Partition {
	t.Helper()

	p, err := grid.New(types.RowRange{Start: 0, Count: params.GridSize}, params.GridSize)
	require.NoError(t, err)
	p.Fill(initial)

	return p
}

func TestStep_HotSquareOneStep(t *testing.T) {
	params := defaultParams(100)
	p := wholeGrid(t, params, params.HotSquare())

	Step(p, params, 1)
	p.Swap()

	// local row = global row + 1
	at := func(r, c int) float64 { return p.Row(r + 1)[c] }

	t.Run("uniform interior stays exact", func(t *testing.T) {
		for r := 27; r < 73; r++ {
			for c := 27; c < 73; c++ {
				require.Equal(t, 100.0, at(r, c), "cell (%d,%d)", r, c)
			}
		}
	})

	t.Run("hot boundary cells lose heat", func(t *testing.T) {
		for c := 26; c < 74; c++ {
			require.Less(t, at(26, c), 100.0)
			require.Less(t, at(73, c), 100.0)
			require.Less(t, at(c, 26), 100.0)
			require.Less(t, at(c, 73), 100.0)
		}
		// edge (not corner) cell: one cold neighbor
		require.InDelta(t, 100.0-params.Coefficient()*100.0, at(26, 50), 1e-12)
		// corner cell: two cold neighbors
		require.InDelta(t, 100.0-2*params.Coefficient()*100.0, at(26, 26), 1e-12)
	})

	t.Run("cold neighbor gains heat", func(t *testing.T) {
		require.InDelta(t, params.Coefficient()*100.0, at(25, 50), 1e-12)
	})
}

func TestStep_GlobalEdgesHeld(t *testing.T) {
	params := defaultParams(6)
	p := wholeGrid(t, params, func(row, col int) float64 { return float64(row*6 + col) })
	edges := func() []float64 {
		var out []float64
		for j := range 6 {
			out = append(out, p.Row(1)[j], p.Row(6)[j], p.Row(j + 1)[0], p.Row(j + 1)[5])
		}
		return out
	}
	initial := edges()

	for range 50 {
		Step(p, params, 1)
		p.Swap()
	}
	require.Equal(t, initial, edges())
}

func TestStep_DoesNotMutateCurrent(t *testing.T) {
	params := defaultParams(8)
	p := wholeGrid(t, params, params.HotSquare())
	before := append([]float64(nil), p.Current()...)

	Step(p, params, 1)
	require.Equal(t, before, p.Current())
}

func TestStep_ParallelMatchesSerial(t *testing.T) {
	params := defaultParams(40)
	params.HotSquareSide = 12
	serial := wholeGrid(t, params, params.HotSquare())
	parallel := wholeGrid(t, params, params.HotSquare())

	for range 25 {
		Step(serial, params, 1)
		serial.Swap()
		Step(parallel, params, 7)
		parallel.Swap()
	}
	require.Equal(t, serial.Owned(), parallel.Owned())
}

func TestStep_UsesGhostRows(t *testing.T) {
	params := defaultParams(6)
	// rows 2..3 of a 6-row grid, both ghost rows belong to neighbors
	p, err := grid.New(types.RowRange{Rank: 1, Start: 2, Count: 2}, 6)
	require.NoError(t, err)
	p.Fill(func(int, int) float64 { return 0 })
	for j := range 6 {
		p.GhostTop()[j] = 10
	}

	Step(p, params, 1)
	p.Swap()

	require.InDelta(t, params.Coefficient()*10, p.Row(1)[3], 1e-12)
	require.Equal(t, 0.0, p.Row(2)[3])
	require.Equal(t, 0.0, p.Row(1)[0], "column 0 is a global edge")
}
