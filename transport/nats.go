package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/heatslab/heatslab/internal/natsutil"
	"github.com/heatslab/heatslab/types"
)

const (
	// readyPollInterval bounds one attempt of the startup barrier request.
	readyPollInterval = 500 * time.Millisecond

	// rootRank serves the ready barrier and receives gathered blocks.
	rootRank = 0
)

// NATSConfig configures one worker's NATS endpoint.
type NATSConfig struct {
	// Prefix is the subject prefix shared by every worker of a run (e.g. "heatslab").
	// Runs sharing a NATS server must use distinct prefixes.
	Prefix string

	// Rank is this worker's 0-indexed rank.
	Rank int

	// Size is the total worker count W.
	Size int

	// MailboxDepth bounds buffered rows per neighbor (default 4).
	MailboxDepth int
}

// NATS is a types.Endpoint that carries halo rows over NATS core subjects.
//
// Subjects:
//   - <prefix>.halo.<rank>: inbound halo rows of one rank
//   - <prefix>.gather: request/reply delivery of owned blocks to the root
//   - <prefix>.abort: run-wide abort broadcast
//   - <prefix>.ready: startup barrier
//
// The connection is owned by the caller; Close only removes subscriptions.
type NATS struct {
	nc     *nats.Conn
	cfg    NATSConfig
	inbox  *mailbox
	abort  *abortSignal
	blocks chan types.Block
	subs   []*nats.Subscription
	closed atomic.Bool

	readyMu   sync.Mutex
	ready     map[int]*nats.Msg
	released  bool
	allReady  chan struct{}
	readyOnce sync.Once
}

var _ types.Endpoint = (*NATS)(nil)

// DialNATS subscribes this worker's subjects and blocks until every worker of the run
// has done the same.
//
// Core NATS drops messages published before a matching subscription exists, so no
// rank may send a halo row until all ranks are subscribed. Every rank subscribes and
// flushes first; non-root ranks then check in on the ready subject and the root
// releases them all once W-1 check-ins arrived.
//
// Parameters:
//   - ctx: Bounds the whole barrier (use a deadline; a missing peer blocks until it ends)
//   - nc: Connected NATS client
//   - cfg: Endpoint configuration
//
// Returns:
//   - *NATS: Ready endpoint
//   - error: Configuration, subscription or barrier failure
//
// Example:
//
//	ep, err := transport.DialNATS(ctx, nc, transport.NATSConfig{Prefix: "heatslab", Rank: rank, Size: size})
//	if err != nil {
//	    return err
//	}
//	defer ep.Close()
func DialNATS(ctx context.Context, nc *nats.Conn, cfg NATSConfig) (*NATS, error) {
	if nc == nil {
		return nil, fmt.Errorf("%w: NATS connection is required", types.ErrInvalidConfig)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "heatslab"
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", types.ErrInvalidConfig, cfg.Size)
	}
	if cfg.Rank < 0 || cfg.Rank >= cfg.Size {
		return nil, fmt.Errorf("%w: rank %d with %d workers", types.ErrInvalidRank, cfg.Rank, cfg.Size)
	}

	e := &NATS{
		nc:       nc,
		cfg:      cfg,
		inbox:    newMailbox(cfg.MailboxDepth),
		abort:    newAbortSignal(),
		blocks:   make(chan types.Block, cfg.Size),
		ready:    make(map[int]*nats.Msg),
		allReady: make(chan struct{}),
	}

	if err := e.subscribe(); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.barrier(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

func (e *NATS) subject(parts ...string) string {
	s := e.cfg.Prefix
	for _, p := range parts {
		s += "." + p
	}

	return s
}

func (e *NATS) haloSubject(rank int) string {
	return e.subject("halo", strconv.Itoa(rank))
}

func (e *NATS) subscribe() error {
	handlers := map[string]nats.MsgHandler{
		e.haloSubject(e.cfg.Rank): e.onHalo,
		e.subject("abort"):        e.onAbort,
	}
	if e.cfg.Rank == rootRank {
		handlers[e.subject("gather")] = e.onBlock
		handlers[e.subject("ready")] = e.onReady
	}

	for subj, h := range handlers {
		sub, err := e.nc.Subscribe(subj, h)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subj, err)
		}
		e.subs = append(e.subs, sub)
	}

	if err := e.nc.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	return nil
}

func (e *NATS) onHalo(msg *nats.Msg) {
	hm, err := decodeHalo(msg.Data)
	if err != nil {
		e.Abort(err)
		return
	}
	// Runs on the subscription's goroutine; blocking only delays later rows of
	// this same subject.
	_ = e.inbox.deliver(context.Background(), e.abort, hm)
}

func (e *NATS) onAbort(msg *nats.Msg) {
	n, err := decodeAbort(msg.Data)
	if err != nil {
		e.abort.trigger(fmt.Errorf("undecodable abort notice: %w", err))
		return
	}
	e.abort.trigger(fmt.Errorf("rank %d: %s", n.From, n.Reason))
}

func (e *NATS) onBlock(msg *nats.Msg) {
	b, err := decodeBlock(msg.Data)
	if err != nil {
		e.Abort(err)
		return
	}
	select {
	case e.blocks <- b:
		_ = msg.Respond(nil)
	case <-e.abort.done:
	}
}

func (e *NATS) onReady(msg *nats.Msg) {
	n, err := decodeReady(msg.Data)
	if err != nil || n.Size != e.cfg.Size || n.Rank < 0 || n.Rank >= e.cfg.Size {
		return
	}

	e.readyMu.Lock()
	defer e.readyMu.Unlock()

	if e.released {
		_ = msg.Respond(nil)
		return
	}
	// A retried check-in replaces the earlier message of the same rank.
	e.ready[n.Rank] = msg
	if len(e.ready) == e.cfg.Size-1 {
		e.readyOnce.Do(func() { close(e.allReady) })
	}
}

func (e *NATS) barrier(ctx context.Context) error {
	if e.cfg.Size == 1 {
		return nil
	}

	if e.cfg.Rank == rootRank {
		select {
		case <-e.allReady:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d workers: %w", e.cfg.Size-1, ctxError(ctx))
		}

		e.readyMu.Lock()
		defer e.readyMu.Unlock()
		e.released = true
		for _, m := range e.ready {
			if err := m.Respond(nil); err != nil {
				return fmt.Errorf("failed to release workers: %w", err)
			}
		}

		return e.nc.Flush()
	}

	data, err := encode(readyNotice{Rank: e.cfg.Rank, Size: e.cfg.Size})
	if err != nil {
		return err
	}
	for {
		attempt, cancel := context.WithTimeout(ctx, readyPollInterval)
		_, err := e.nc.RequestWithContext(attempt, e.subject("ready"), data)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for root rank %d: %w", rootRank, ctxError(ctx))
		}
		if !natsutil.IsNotYetListening(err) {
			return fmt.Errorf("ready check-in failed: %w", err)
		}
		if errors.Is(err, nats.ErrNoResponders) {
			select {
			case <-time.After(readyPollInterval / 5):
			case <-ctx.Done():
				return fmt.Errorf("waiting for root rank %d: %w", rootRank, ctxError(ctx))
			}
		}
	}
}

func (e *NATS) checkPeer(peer int) error {
	if e.closed.Load() {
		return types.ErrTransportClosed
	}
	if peer < 0 || peer >= e.cfg.Size || peer == e.cfg.Rank {
		return fmt.Errorf("%w: rank %d cannot address peer %d", types.ErrExchangeFailed, e.cfg.Rank, peer)
	}

	return nil
}

// Rank implements types.Endpoint.
func (e *NATS) Rank() int { return e.cfg.Rank }

// Size implements types.Endpoint.
func (e *NATS) Size() int { return e.cfg.Size }

// ISend implements types.Endpoint.
func (e *NATS) ISend(_ context.Context, peer, step int, row []float64) types.Request {
	if err := e.checkPeer(peer); err != nil {
		return failed(e.abort, err)
	}
	msg := types.HaloMessage{From: e.cfg.Rank, Step: step, Values: slices.Clone(row)}

	return issue(e.abort, func() error {
		data, err := encode(msg)
		if err != nil {
			return err
		}
		if err := e.nc.Publish(e.haloSubject(peer), data); err != nil {
			return linkError(types.ErrExchangeFailed, "publish", peer, err)
		}

		return nil
	})
}

// IRecv implements types.Endpoint.
func (e *NATS) IRecv(ctx context.Context, peer, step int, buf []float64) types.Request {
	if err := e.checkPeer(peer); err != nil {
		return failed(e.abort, err)
	}

	return issue(e.abort, func() error {
		return e.inbox.receive(ctx, e.abort, peer, step, buf)
	})
}

// Gather implements types.Endpoint.
//
// Non-root ranks deliver their block with a request and return once the root
// acknowledged it. The context should carry a deadline.
func (e *NATS) Gather(ctx context.Context, root int, block types.Block) ([]types.Block, error) {
	if root != rootRank {
		return nil, fmt.Errorf("%w: endpoint collects on rank %d, not %d", types.ErrGatherFailed, rootRank, root)
	}
	if e.closed.Load() {
		return nil, types.ErrTransportClosed
	}

	if e.cfg.Rank == root {
		e.blocks <- block
		return collectBlocks(ctx, e.abort, e.blocks, e.cfg.Size)
	}

	data, err := encode(block)
	if err != nil {
		return nil, err
	}
	if _, err := e.nc.RequestWithContext(ctx, e.subject("gather"), data); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrGatherFailed, ctxError(ctx))
		}

		return nil, linkError(types.ErrGatherFailed, "deliver block", root, err)
	}

	return nil, nil
}

// linkError wraps a failed transfer, naming a lost connection separately from other failures.
func linkError(kind error, action string, peer int, err error) error {
	if natsutil.IsConnectivityError(err) {
		return fmt.Errorf("%w: connection lost during %s to rank %d: %w", kind, action, peer, err)
	}

	return fmt.Errorf("%w: %s to rank %d: %w", kind, action, peer, err)
}

// Abort implements types.Endpoint. The first abort of a run is broadcast to all
// workers; later calls are ignored.
func (e *NATS) Abort(err error) {
	if !e.abort.trigger(fmt.Errorf("rank %d: %w", e.cfg.Rank, err)) {
		return
	}

	data, encErr := encode(abortNotice{From: e.cfg.Rank, Reason: err.Error()})
	if encErr != nil {
		return
	}
	_ = e.nc.Publish(e.subject("abort"), data)
	_ = e.nc.Flush()
}

// Done implements types.Endpoint.
func (e *NATS) Done() <-chan struct{} { return e.abort.done }

// Err implements types.Endpoint.
func (e *NATS) Err() error { return e.abort.err() }

// Close implements types.Endpoint. It removes the endpoint's subscriptions but leaves
// the NATS connection open.
func (e *NATS) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, sub := range e.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
