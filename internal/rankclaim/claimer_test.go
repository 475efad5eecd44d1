package rankclaim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/heatslab/heatslab/internal/kvutil"
	slabtest "github.com/heatslab/heatslab/testing"
)

func newBucket(t *testing.T, name string, ttl time.Duration) jetstream.KeyValue {
	t.Helper()

	_, nc := slabtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	kv, err := kvutil.EnsureBucket(t.Context(), js, kvutil.RankClaimConfig(name, ttl), 3)
	require.NoError(t, err)

	return kv
}

func TestClaimer_WithoutClaim(t *testing.T) {
	c := NewClaimer(nil, "run", 2, time.Second, nil)

	require.Equal(t, -1, c.Rank())
	require.ErrorIs(t, c.StartRenewal(context.Background()), ErrNotClaimed)
	require.ErrorIs(t, c.Release(context.Background()), ErrNotClaimed)
}

func TestClaimer_Sequential(t *testing.T) {
	kv := newBucket(t, "test-rank-seq", 5*time.Second)
	ctx := t.Context()

	a := NewClaimer(kv, "run", 2, 5*time.Second, slabtest.NewTestLogger(t))
	b := NewClaimer(kv, "run", 2, 5*time.Second, slabtest.NewTestLogger(t))
	c := NewClaimer(kv, "run", 2, 5*time.Second, slabtest.NewTestLogger(t))

	rank, err := a.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, rank)

	rank, err = b.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rank)

	_, err = c.Claim(ctx)
	require.ErrorIs(t, err, ErrNoFreeRank)

	t.Run("claim is idempotent", func(t *testing.T) {
		rank, err := a.Claim(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, rank)
	})

	t.Run("released rank is reusable", func(t *testing.T) {
		require.NoError(t, a.Release(ctx))
		require.Equal(t, -1, a.Rank())

		rank, err := c.Claim(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, rank)
	})
}

func TestClaimer_Concurrent(t *testing.T) {
	const size = 5
	kv := newBucket(t, "test-rank-concurrent", 5*time.Second)

	ranks := make([]int, size)
	var wg sync.WaitGroup
	for i := range size {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rank, err := NewClaimer(kv, "run", size, 5*time.Second, nil).Claim(t.Context())
			if err != nil {
				ranks[i] = -1
				return
			}
			ranks[i] = rank
		}()
	}
	wg.Wait()

	require.ElementsMatch(t, []int{0, 1, 2, 3, 4}, ranks)
}

func TestClaimer_RenewalKeepsLease(t *testing.T) {
	ttl := time.Second
	kv := newBucket(t, "test-rank-renew", ttl)
	ctx := t.Context()

	c := NewClaimer(kv, "run", 1, ttl, nil)
	_, err := c.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, c.StartRenewal(ctx))

	time.Sleep(2 * ttl)

	_, err = kv.Get(ctx, Key("run", 0))
	require.NoError(t, err)

	require.NoError(t, c.Release(ctx))
	_, err = kv.Get(ctx, Key("run", 0))
	require.ErrorIs(t, err, jetstream.ErrKeyNotFound)
}
