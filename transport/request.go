package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/heatslab/heatslab/types"
)

// abortSignal is the run-wide fatal error latch shared by every endpoint of a run.
type abortSignal struct {
	once  sync.Once
	done  chan struct{}
	mu    sync.Mutex
	cause error
}

func newAbortSignal() *abortSignal {
	return &abortSignal{done: make(chan struct{})}
}

// trigger records cause and closes done. Only the first call has any effect; it
// reports whether this call fired the signal.
func (a *abortSignal) trigger(cause error) bool {
	fired := false
	a.once.Do(func() {
		a.mu.Lock()
		a.cause = cause
		a.mu.Unlock()
		close(a.done)
		fired = true
	})

	return fired
}

func (a *abortSignal) err() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cause
}

func (a *abortSignal) wrap() error {
	return fmt.Errorf("%w: %w", types.ErrRunAborted, a.err())
}

// request is an in-flight transfer backed by one goroutine.
type request struct {
	done  chan struct{}
	err   error
	abort *abortSignal
}

var _ types.Request = (*request)(nil)

// issue starts fn in the background and returns immediately.
func issue(abort *abortSignal, fn func() error) *request {
	r := &request{done: make(chan struct{}), abort: abort}
	go func() {
		defer close(r.done)
		r.err = fn()
	}()

	return r
}

// failed returns a request that completes immediately with err.
func failed(abort *abortSignal, err error) *request {
	r := &request{done: make(chan struct{}), abort: abort, err: err}
	close(r.done)

	return r
}

// Wait implements types.Request.
func (r *request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-r.abort.done:
		return r.abort.wrap()
	case <-ctx.Done():
		return ctxError(ctx)
	}
}

// ctxError classifies a finished context: a deadline is a fatal transfer timeout.
func ctxError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", types.ErrExchangeTimeout, err)
	}

	return err
}
