// Package hooks provides default implementations of types.Hooks.
package hooks

import (
	"context"

	"github.com/heatslab/heatslab/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the solver.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, int, int) error     = (*NopHooks)(nil).OnTimestep
	_ func(context.Context, *types.Grid) error = (*NopHooks)(nil).OnCollected
	_ func(context.Context, error) error       = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}

	return types.Hooks{
		OnTimestep:  h.OnTimestep,
		OnCollected: h.OnCollected,
		OnError:     h.OnError,
	}
}

// Fill returns h with every nil callback replaced by its no-op counterpart.
func Fill(h types.Hooks) types.Hooks {
	nop := NewNop()
	if h.OnTimestep == nil {
		h.OnTimestep = nop.OnTimestep
	}
	if h.OnCollected == nil {
		h.OnCollected = nop.OnCollected
	}
	if h.OnError == nil {
		h.OnError = nop.OnError
	}

	return h
}

// OnTimestep is a no-op implementation.
func (h *NopHooks) OnTimestep(_ context.Context, _, _ int) error {
	return nil
}

// OnCollected is a no-op implementation.
func (h *NopHooks) OnCollected(_ context.Context, _ *types.Grid) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
