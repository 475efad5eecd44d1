// Package rankclaim lets processes of a NATS run pick their ranks without
// coordination: each claims the lowest free rank in a JetStream KV bucket.
package rankclaim

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/heatslab/heatslab/internal/logging"
	"github.com/heatslab/heatslab/types"
)

// Common errors returned by the claimer.
var (
	ErrNoFreeRank = errors.New("no free rank left in run")
	ErrNotClaimed = errors.New("rank not claimed")
)

// Claimer claims one rank of a run and keeps the lease alive.
//
// Claims use KV Create, which fails with ErrKeyExists when another process
// already holds the rank, so two processes never end up with the same rank.
// Leases expire with the bucket TTL unless renewed.
type Claimer struct {
	kv     jetstream.KeyValue
	prefix string
	size   int
	ttl    time.Duration
	logger types.Logger

	mu     sync.Mutex
	rank   int
	key    string
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewClaimer creates a claimer for ranks 0..size-1 of the run named by prefix.
//
// Parameters:
//   - kv: Bucket holding rank leases; its TTL should match ttl
//   - prefix: Run name; keys are "<prefix>.rank-<n>"
//   - size: Number of ranks in the run
//   - ttl: Lease lifetime, renewed every ttl/3
//   - logger: Logger (nop if nil)
//
// Returns:
//   - *Claimer: New claimer instance
//
// Example:
//
//	claimer := rankclaim.NewClaimer(kv, "heatslab", 4, 30*time.Second, logger)
//	rank, err := claimer.Claim(ctx)
func NewClaimer(kv jetstream.KeyValue, prefix string, size int, ttl time.Duration, logger types.Logger) *Claimer {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Claimer{
		kv:     kv,
		prefix: prefix,
		size:   size,
		ttl:    ttl,
		logger: logger,
		rank:   -1,
	}
}

// Key returns the lease key of rank in the run named by prefix.
func Key(prefix string, rank int) string {
	return prefix + ".rank-" + strconv.Itoa(rank)
}

// Claim takes the lowest rank nobody holds.
//
// Returns:
//   - int: Claimed rank
//   - error: ErrNoFreeRank when every rank is held, or the KV/context error
func (c *Claimer) Claim(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rank >= 0 {
		return c.rank, nil
	}

	for rank := range c.size {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		key := Key(c.prefix, rank)
		_, err := c.kv.Create(ctx, key, []byte(time.Now().Format(time.RFC3339)))
		if err == nil {
			c.rank = rank
			c.key = key
			c.logger.Info("rank claimed", "rank", rank, "key", key)

			return rank, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return -1, fmt.Errorf("failed to claim rank %d: %w", rank, err)
		}

		c.logger.Debug("rank already held", "rank", rank)
	}

	return -1, fmt.Errorf("%w: all %d ranks are held", ErrNoFreeRank, c.size)
}

// StartRenewal refreshes the lease every ttl/3 until Release or ctx is done.
//
// Returns:
//   - error: ErrNotClaimed if Claim has not succeeded
func (c *Claimer) StartRenewal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rank < 0 {
		return ErrNotClaimed
	}
	if c.stopCh != nil {
		return nil
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.renewLoop(ctx, c.key, c.stopCh, c.doneCh)

	return nil
}

func (c *Claimer) renewLoop(ctx context.Context, key string, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	interval := max(c.ttl/3, 10*time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := c.kv.Put(ctx, key, []byte(time.Now().Format(time.RFC3339))); err != nil {
				c.logger.Warn("failed to renew rank lease", "key", key, "error", err)
			}
		}
	}
}

// Release stops renewal and deletes the lease so the rank can be claimed again.
//
// Returns:
//   - error: ErrNotClaimed if nothing is held, or the KV delete error
func (c *Claimer) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rank < 0 {
		return ErrNotClaimed
	}

	if c.stopCh != nil {
		close(c.stopCh)
		select {
		case <-c.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.stopCh, c.doneCh = nil, nil
	}

	if err := c.kv.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("failed to release rank %d: %w", c.rank, err)
	}

	c.logger.Debug("rank released", "rank", c.rank)
	c.rank, c.key = -1, ""

	return nil
}

// Rank returns the claimed rank, or -1.
func (c *Claimer) Rank() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rank
}
