package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	slabtest "github.com/heatslab/heatslab/testing"
)

func TestProgressConfig(t *testing.T) {
	cfg := ProgressConfig("heatslab-progress", 2*time.Second)

	require.Equal(t, "heatslab-progress", cfg.Bucket)
	require.Equal(t, 6*time.Second, cfg.TTL)
	require.Equal(t, uint8(1), cfg.History)
	require.Equal(t, jetstream.MemoryStorage, cfg.Storage)
}

func TestRankClaimConfig(t *testing.T) {
	cfg := RankClaimConfig("heatslab-ranks", 30*time.Second)

	require.Equal(t, "heatslab-ranks", cfg.Bucket)
	require.Equal(t, 30*time.Second, cfg.TTL)
	require.Equal(t, uint8(1), cfg.History)
}

func TestEnsureBucket(t *testing.T) {
	_, nc := slabtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	t.Run("creates then reopens", func(t *testing.T) {
		ctx := t.Context()
		cfg := ProgressConfig("test-ensure", time.Second)

		kv1, err := EnsureBucket(ctx, js, cfg, 3)
		require.NoError(t, err)
		_, err = kv1.Put(ctx, "k", []byte("v"))
		require.NoError(t, err)

		kv2, err := EnsureBucket(ctx, js, cfg, 0)
		require.NoError(t, err)
		entry, err := kv2.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("v"), entry.Value())
	})

	t.Run("concurrent workers", func(t *testing.T) {
		ctx := t.Context()
		cfg := ProgressConfig("test-ensure-concurrent", time.Second)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = EnsureBucket(ctx, js, cfg, 5)
			}()
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "worker %d", i)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := EnsureBucket(ctx, js, ProgressConfig("test-ensure-cancelled", time.Second), 3)
		require.Error(t, err)
	})
}
