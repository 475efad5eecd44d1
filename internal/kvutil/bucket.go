// Package kvutil provides helpers for the JetStream KeyValue buckets heatslab uses.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ProgressConfig returns the bucket configuration for progress reports published
// every interval.
//
// Entries expire after three missed publications, so a crashed worker's key
// disappears on its own. Only the latest value per key is kept, in memory.
func ProgressConfig(bucket string, interval time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "heatslab per-worker timestep progress",
		History:     1,
		TTL:         3 * interval,
		Storage:     jetstream.MemoryStorage,
	}
}

// RankClaimConfig returns the bucket configuration for rank leases that live ttl
// unless renewed.
func RankClaimConfig(bucket string, ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "heatslab rank leases",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.MemoryStorage,
	}
}

// EnsureBucket creates or opens a KV bucket, retrying on transient errors.
//
// Every worker of a run calls this on startup, so concurrent creation of the same
// bucket is expected: ErrBucketExists falls back to opening it.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of attempts (3 if not positive)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket instance
//   - error: The last error once all attempts failed
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, kvutil.ProgressConfig("heatslab-progress", 2*time.Second), 3)
func EnsureBucket(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error

	for attempt := range maxRetries {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, config.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}

		// 10ms, 20ms, 40ms...
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
		config.Bucket, maxRetries, lastErr)
}
