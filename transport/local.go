package transport

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/heatslab/heatslab/types"
)

// Local connects workers that run as goroutines of the same process.
//
// Rows are copied into per-sender channels of the receiving endpoint; no memory is
// shared between workers' partitions. One abort latch is shared by all endpoints.
type Local struct {
	endpoints []*LocalEndpoint
	abort     *abortSignal
}

// NewLocal creates an in-process transport for size workers.
//
// Parameters:
//   - size: Worker count W (must be positive)
//
// Returns:
//   - *Local: Transport whose endpoints are obtained with Endpoint(rank)
//   - error: ErrInvalidConfig if size is not positive
//
// Example:
//
//	tr, _ := transport.NewLocal(4)
//	ep, _ := tr.Endpoint(0)
func NewLocal(size int) (*Local, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", types.ErrInvalidConfig, size)
	}

	l := &Local{endpoints: make([]*LocalEndpoint, size), abort: newAbortSignal()}
	for rank := range size {
		l.endpoints[rank] = &LocalEndpoint{
			owner:  l,
			rank:   rank,
			inbox:  newMailbox(defaultMailboxDepth),
			blocks: make(chan types.Block, size),
		}
	}

	return l, nil
}

// Size returns the worker count.
func (l *Local) Size() int { return len(l.endpoints) }

// Endpoint returns the endpoint of rank.
func (l *Local) Endpoint(rank int) (*LocalEndpoint, error) {
	if rank < 0 || rank >= len(l.endpoints) {
		return nil, fmt.Errorf("%w: rank %d with %d workers", types.ErrInvalidRank, rank, len(l.endpoints))
	}

	return l.endpoints[rank], nil
}

// LocalEndpoint is one worker's handle on a Local transport.
type LocalEndpoint struct {
	owner  *Local
	rank   int
	inbox  *mailbox
	blocks chan types.Block
	closed atomic.Bool
}

var _ types.Endpoint = (*LocalEndpoint)(nil)

// Rank implements types.Endpoint.
func (e *LocalEndpoint) Rank() int { return e.rank }

// Size implements types.Endpoint.
func (e *LocalEndpoint) Size() int { return len(e.owner.endpoints) }

func (e *LocalEndpoint) peer(rank int) (*LocalEndpoint, error) {
	if e.closed.Load() {
		return nil, types.ErrTransportClosed
	}
	if rank < 0 || rank >= len(e.owner.endpoints) || rank == e.rank {
		return nil, fmt.Errorf("%w: rank %d cannot address peer %d", types.ErrExchangeFailed, e.rank, rank)
	}

	return e.owner.endpoints[rank], nil
}

// ISend implements types.Endpoint.
func (e *LocalEndpoint) ISend(ctx context.Context, peer, step int, row []float64) types.Request {
	dst, err := e.peer(peer)
	if err != nil {
		return failed(e.owner.abort, err)
	}
	msg := types.HaloMessage{From: e.rank, Step: step, Values: slices.Clone(row)}

	return issue(e.owner.abort, func() error {
		return dst.inbox.deliver(ctx, e.owner.abort, msg)
	})
}

// IRecv implements types.Endpoint.
func (e *LocalEndpoint) IRecv(ctx context.Context, peer, step int, buf []float64) types.Request {
	if _, err := e.peer(peer); err != nil {
		return failed(e.owner.abort, err)
	}

	return issue(e.owner.abort, func() error {
		return e.inbox.receive(ctx, e.owner.abort, peer, step, buf)
	})
}

// Gather implements types.Endpoint.
func (e *LocalEndpoint) Gather(ctx context.Context, root int, block types.Block) ([]types.Block, error) {
	if root < 0 || root >= e.Size() {
		return nil, fmt.Errorf("%w: invalid root %d", types.ErrGatherFailed, root)
	}
	if e.closed.Load() {
		return nil, types.ErrTransportClosed
	}

	dst := e.owner.endpoints[root]
	select {
	case dst.blocks <- block:
	case <-e.owner.abort.done:
		return nil, e.owner.abort.wrap()
	case <-ctx.Done():
		return nil, ctxError(ctx)
	}

	if e.rank != root {
		return nil, nil
	}

	return collectBlocks(ctx, e.owner.abort, e.blocks, e.Size())
}

// Abort implements types.Endpoint.
func (e *LocalEndpoint) Abort(err error) {
	e.owner.abort.trigger(fmt.Errorf("rank %d: %w", e.rank, err))
}

// Done implements types.Endpoint.
func (e *LocalEndpoint) Done() <-chan struct{} { return e.owner.abort.done }

// Err implements types.Endpoint.
func (e *LocalEndpoint) Err() error { return e.owner.abort.err() }

// Close implements types.Endpoint.
func (e *LocalEndpoint) Close() error {
	e.closed.Store(true)
	return nil
}

// collectBlocks reads size blocks from ch and returns them in rank order.
func collectBlocks(ctx context.Context, abort *abortSignal, ch <-chan types.Block, size int) ([]types.Block, error) {
	blocks := make([]types.Block, size)
	seen := make([]bool, size)
	for range size {
		var b types.Block
		select {
		case b = <-ch:
		case <-abort.done:
			return nil, abort.wrap()
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", types.ErrGatherFailed, ctxError(ctx))
		}

		r := b.Range.Rank
		if r < 0 || r >= size || seen[r] {
			return nil, fmt.Errorf("%w: unexpected block from rank %d", types.ErrGatherFailed, r)
		}
		seen[r] = true
		blocks[r] = b
	}

	return blocks, nil
}
