package grid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heatslab/heatslab/types"
)

func TestNew(t *testing.T) {
	t.Run("allocates padded buffers", func(t *testing.T) {
		p, err := New(types.RowRange{Rank: 1, Start: 25, Count: 25}, 100)
		require.NoError(t, err)
		require.Len(t, p.Current(), 27*100)
		require.Len(t, p.Next(), 27*100)
		require.Equal(t, 25, p.Rows())
		require.Equal(t, 100, p.Width())
	})

	t.Run("rejects empty partition", func(t *testing.T) {
		_, err := New(types.RowRange{Count: 0}, 10)
		require.ErrorIs(t, err, types.ErrInvalidConfig)

		_, err = New(types.RowRange{Count: 3}, 0)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})
}

func TestPartition_GlobalRow(t *testing.T) {
	p, err := New(types.RowRange{Rank: 2, Start: 10, Count: 5}, 8)
	require.NoError(t, err)

	require.Equal(t, 9, p.GlobalRow(0))
	require.Equal(t, 10, p.GlobalRow(1))
	require.Equal(t, 14, p.GlobalRow(5))
	require.Equal(t, 15, p.GlobalRow(6))
}

func TestPartition_Fill(t *testing.T) {
	params := types.Params{GridSize: 100, HotSquareSide: 48, HotValue: 100, ColdValue: 0}
	p, err := New(types.RowRange{Rank: 1, Start: 25, Count: 25}, 100)
	require.NoError(t, err)

	p.Fill(params.HotSquare())

	// local row 1 is global row 25: [26,74) is hot, 25 is cold.
	require.Equal(t, 0.0, p.Row(1)[50])
	require.Equal(t, 100.0, p.Row(2)[26])
	require.Equal(t, 100.0, p.Row(2)[73])
	require.Equal(t, 0.0, p.Row(2)[25])
	require.Equal(t, 0.0, p.Row(2)[74])

	for _, v := range p.GhostTop() {
		require.Zero(t, v)
	}
	for _, v := range p.GhostBottom() {
		require.Zero(t, v)
	}
}

func TestPartition_Swap(t *testing.T) {
	p, err := New(types.RowRange{Start: 0, Count: 2}, 3)
	require.NoError(t, err)

	cur, next := p.Current(), p.Next()
	require.NotSame(t, &cur[0], &next[0])

	next[3] = 7
	p.Swap()
	require.Equal(t, 7.0, p.Current()[3])
	require.Same(t, &cur[0], &p.Next()[0])

	p.Swap()
	require.Same(t, &cur[0], &p.Current()[0])
}

func TestPartition_Owned(t *testing.T) {
	p, err := New(types.RowRange{Start: 4, Count: 2}, 3)
	require.NoError(t, err)
	p.Fill(func(row, col int) float64 { return float64(row*10 + col) })

	owned := p.Owned()
	require.Equal(t, []float64{40, 41, 42, 50, 51, 52}, owned)

	owned[0] = -1
	require.Equal(t, 40.0, p.FirstOwned()[0], "Owned must return a copy")
	require.Equal(t, []float64{50, 51, 52}, p.LastOwned())
}
