package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	slabtest "github.com/heatslab/heatslab/testing"
	"github.com/heatslab/heatslab/types"
)

// dialAll connects size NATS endpoints, one client connection each, concurrently
// (the startup barrier only returns once every rank has checked in).
func dialAll(t *testing.T, ns *server.Server, prefix string, size int) []*NATS {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	eps := make([]*NATS, size)
	errs := make(chan error, size)
	for rank := range size {
		nc := slabtest.Connect(t, ns)
		go func() {
			ep, err := DialNATS(ctx, nc, NATSConfig{Prefix: prefix, Rank: rank, Size: size})
			eps[rank] = ep
			errs <- err
		}()
	}
	for range size {
		require.NoError(t, <-errs)
	}
	for _, ep := range eps {
		t.Cleanup(func() { _ = ep.Close() })
	}

	return eps
}

func TestDialNATS_Validation(t *testing.T) {
	_, nc := slabtest.StartEmbeddedNATS(t)
	ctx := t.Context()

	_, err := DialNATS(ctx, nil, NATSConfig{Size: 1})
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = DialNATS(ctx, nc, NATSConfig{Size: 0})
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = DialNATS(ctx, nc, NATSConfig{Size: 2, Rank: 2})
	require.ErrorIs(t, err, types.ErrInvalidRank)
}

func TestDialNATS_SingleWorker(t *testing.T) {
	_, nc := slabtest.StartEmbeddedNATS(t)

	ep, err := DialNATS(t.Context(), nc, NATSConfig{Prefix: "solo", Rank: 0, Size: 1})
	require.NoError(t, err)
	defer ep.Close()

	blocks, err := ep.Gather(t.Context(), 0, types.Block{Range: types.RowRange{Count: 1}, Values: []float64{1}})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
}

func TestDialNATS_BarrierTimeout(t *testing.T) {
	_, nc := slabtest.StartEmbeddedNATS(t)

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	// rank 1 never shows up
	_, err := DialNATS(ctx, nc, NATSConfig{Prefix: "lonely", Rank: 0, Size: 2})
	require.ErrorIs(t, err, types.ErrExchangeTimeout)
}

func TestNATS_Exchange(t *testing.T) {
	ns, _ := slabtest.StartEmbeddedNATS(t)
	eps := dialAll(t, ns, "xchg", 3)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	// middle rank talks to both neighbors
	top := make([]float64, 2)
	bottom := make([]float64, 2)
	fromMiddle0 := make([]float64, 2)
	fromMiddle2 := make([]float64, 2)

	reqs := []types.Request{
		eps[1].ISend(ctx, 0, 0, []float64{10, 11}),
		eps[1].ISend(ctx, 2, 0, []float64{12, 13}),
		eps[1].IRecv(ctx, 0, 0, top),
		eps[1].IRecv(ctx, 2, 0, bottom),
		eps[0].ISend(ctx, 1, 0, []float64{1, 2}),
		eps[0].IRecv(ctx, 1, 0, fromMiddle0),
		eps[2].ISend(ctx, 1, 0, []float64{3, 4}),
		eps[2].IRecv(ctx, 1, 0, fromMiddle2),
	}
	for _, r := range reqs {
		require.NoError(t, r.Wait(ctx))
	}

	require.Equal(t, []float64{1, 2}, top)
	require.Equal(t, []float64{3, 4}, bottom)
	require.Equal(t, []float64{10, 11}, fromMiddle0)
	require.Equal(t, []float64{12, 13}, fromMiddle2)
}

func TestNATS_Gather(t *testing.T) {
	ns, _ := slabtest.StartEmbeddedNATS(t)
	eps := dialAll(t, ns, "gather", 3)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	for _, rank := range []int{1, 2} {
		go func() {
			blocks, err := eps[rank].Gather(ctx, 0, types.Block{
				Range:  types.RowRange{Rank: rank, Start: rank * 2, Count: 2},
				Values: []float64{float64(rank), float64(rank)},
			})
			if err == nil && blocks != nil {
				err = errors.New("non-root received blocks")
			}
			errs <- err
		}()
	}

	blocks, err := eps[0].Gather(ctx, 0, types.Block{
		Range:  types.RowRange{Rank: 0, Start: 0, Count: 2},
		Values: []float64{0, 0},
	})
	require.NoError(t, err)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	require.Len(t, blocks, 3)
	for rank, b := range blocks {
		require.Equal(t, rank, b.Range.Rank)
		require.Equal(t, rank*2, b.Range.Start)
	}

	_, err = eps[1].Gather(ctx, 2, types.Block{})
	require.ErrorIs(t, err, types.ErrGatherFailed)
}

func TestNATS_AbortBroadcast(t *testing.T) {
	ns, _ := slabtest.StartEmbeddedNATS(t)
	eps := dialAll(t, ns, "abort", 2)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	req := eps[0].IRecv(ctx, 1, 0, make([]float64, 1))
	eps[1].Abort(errors.New("disk on fire"))

	err := req.Wait(ctx)
	require.ErrorIs(t, err, types.ErrRunAborted)
	require.ErrorContains(t, err, "disk on fire")

	select {
	case <-eps[0].Done():
	case <-ctx.Done():
		t.Fatal("abort not received")
	}
}

func TestNATS_RepeatedCheckIn(t *testing.T) {
	e := &NATS{
		cfg:      NATSConfig{Prefix: "retry", Rank: 0, Size: 2},
		ready:    make(map[int]*nats.Msg),
		allReady: make(chan struct{}),
	}

	data, err := encode(readyNotice{Rank: 1, Size: 2})
	require.NoError(t, err)

	// A rank whose first check-in timed out retries before the root releases it.
	require.NotPanics(t, func() {
		e.onReady(&nats.Msg{Data: data})
		e.onReady(&nats.Msg{Data: data})
	})

	select {
	case <-e.allReady:
	default:
		t.Fatal("barrier not complete after every peer checked in")
	}
	require.Len(t, e.ready, 1)
}

func TestNATS_ConnectionLost(t *testing.T) {
	ns, _ := slabtest.StartEmbeddedNATS(t)
	eps := dialAll(t, ns, "lost", 2)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	eps[1].nc.Close()

	t.Run("send", func(t *testing.T) {
		err := eps[1].ISend(ctx, 0, 0, []float64{1, 2}).Wait(ctx)
		require.ErrorIs(t, err, types.ErrExchangeFailed)
		require.ErrorIs(t, err, nats.ErrConnectionClosed)
		require.ErrorContains(t, err, "connection lost")
	})

	t.Run("gather", func(t *testing.T) {
		_, err := eps[1].Gather(ctx, 0, types.Block{Range: types.RowRange{Rank: 1, Start: 1, Count: 1}, Values: []float64{1, 2}})
		require.ErrorIs(t, err, types.ErrGatherFailed)
		require.ErrorContains(t, err, "connection lost")
	})
}
