package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heatslab/heatslab/types"
)

func localPair(t *testing.T) (*LocalEndpoint, *LocalEndpoint) {
	t.Helper()

	tr, err := NewLocal(2)
	require.NoError(t, err)
	a, err := tr.Endpoint(0)
	require.NoError(t, err)
	b, err := tr.Endpoint(1)
	require.NoError(t, err)

	return a, b
}

func TestNewLocal(t *testing.T) {
	t.Run("rejects empty run", func(t *testing.T) {
		_, err := NewLocal(0)
		require.ErrorIs(t, err, types.ErrInvalidConfig)
	})

	t.Run("rejects unknown rank", func(t *testing.T) {
		tr, err := NewLocal(3)
		require.NoError(t, err)
		require.Equal(t, 3, tr.Size())

		_, err = tr.Endpoint(3)
		require.ErrorIs(t, err, types.ErrInvalidRank)
	})
}

func TestLocal_Exchange(t *testing.T) {
	ctx := t.Context()
	a, b := localPair(t)

	rowA := []float64{1, 2, 3}
	rowB := []float64{4, 5, 6}
	ghostA := make([]float64, 3)
	ghostB := make([]float64, 3)

	// Issue every transfer before waiting on any.
	reqs := []types.Request{
		a.ISend(ctx, 1, 0, rowA),
		a.IRecv(ctx, 1, 0, ghostA),
		b.ISend(ctx, 0, 0, rowB),
		b.IRecv(ctx, 0, 0, ghostB),
	}
	rowA[0] = 99 // ISend copied the row

	for _, r := range reqs {
		require.NoError(t, r.Wait(ctx))
	}
	require.Equal(t, []float64{4, 5, 6}, ghostA)
	require.Equal(t, []float64{1, 2, 3}, ghostB)
}

func TestLocal_StepOrdering(t *testing.T) {
	ctx := t.Context()
	a, b := localPair(t)

	require.NoError(t, a.ISend(ctx, 1, 0, []float64{0}).Wait(ctx))
	require.NoError(t, a.ISend(ctx, 1, 1, []float64{1}).Wait(ctx))

	buf := make([]float64, 1)
	require.NoError(t, b.IRecv(ctx, 0, 0, buf).Wait(ctx))
	require.Equal(t, 0.0, buf[0])
	require.NoError(t, b.IRecv(ctx, 0, 1, buf).Wait(ctx))
	require.Equal(t, 1.0, buf[0])
}

func TestLocal_Mismatch(t *testing.T) {
	ctx := t.Context()

	t.Run("wrong step", func(t *testing.T) {
		a, b := localPair(t)
		require.NoError(t, a.ISend(ctx, 1, 5, []float64{1}).Wait(ctx))

		err := b.IRecv(ctx, 0, 4, make([]float64, 1)).Wait(ctx)
		require.ErrorIs(t, err, types.ErrHaloMismatch)
	})

	t.Run("wrong length", func(t *testing.T) {
		a, b := localPair(t)
		require.NoError(t, a.ISend(ctx, 1, 0, []float64{1, 2}).Wait(ctx))

		err := b.IRecv(ctx, 0, 0, make([]float64, 3)).Wait(ctx)
		require.ErrorIs(t, err, types.ErrHaloMismatch)
	})
}

func TestLocal_InvalidPeer(t *testing.T) {
	ctx := t.Context()
	a, _ := localPair(t)

	require.ErrorIs(t, a.ISend(ctx, 0, 0, nil).Wait(ctx), types.ErrExchangeFailed)
	require.ErrorIs(t, a.IRecv(ctx, 7, 0, nil).Wait(ctx), types.ErrExchangeFailed)

	require.NoError(t, a.Close())
	require.ErrorIs(t, a.ISend(ctx, 1, 0, nil).Wait(ctx), types.ErrTransportClosed)
}

func TestLocal_Timeout(t *testing.T) {
	_, b := localPair(t)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := b.IRecv(ctx, 0, 0, make([]float64, 1)).Wait(ctx)
	require.ErrorIs(t, err, types.ErrExchangeTimeout)
}

func TestLocal_Abort(t *testing.T) {
	ctx := t.Context()
	a, b := localPair(t)

	req := b.IRecv(ctx, 0, 0, make([]float64, 1))
	a.Abort(errors.New("boom"))

	err := req.Wait(ctx)
	require.ErrorIs(t, err, types.ErrRunAborted)
	require.ErrorContains(t, err, "boom")

	select {
	case <-b.Done():
	default:
		t.Fatal("abort not visible on peer endpoint")
	}
	require.ErrorContains(t, b.Err(), "rank 0")

	// later aborts keep the first cause
	b.Abort(errors.New("second"))
	require.ErrorContains(t, b.Err(), "boom")
}

func TestLocal_Gather(t *testing.T) {
	ctx := t.Context()
	tr, err := NewLocal(3)
	require.NoError(t, err)

	results := make(chan []types.Block, 3)
	errs := make(chan error, 3)
	for rank := range 3 {
		ep, err := tr.Endpoint(rank)
		require.NoError(t, err)
		go func() {
			block := types.Block{
				Range:  types.RowRange{Rank: rank, Start: rank, Count: 1},
				Values: []float64{float64(rank)},
			}
			blocks, err := ep.Gather(ctx, 0, block)
			errs <- err
			if rank == 0 {
				results <- blocks
			}
		}()
	}

	for range 3 {
		require.NoError(t, <-errs)
	}
	blocks := <-results
	require.Len(t, blocks, 3)
	for rank, b := range blocks {
		require.Equal(t, rank, b.Range.Rank)
		require.Equal(t, []float64{float64(rank)}, b.Values)
	}
}
