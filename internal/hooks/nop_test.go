package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heatslab/heatslab/types"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnTimestep)
	require.NotNil(t, hooks.OnCollected)
	require.NotNil(t, hooks.OnError)

	ctx := t.Context()
	require.NoError(t, hooks.OnTimestep(ctx, 0, 1000))
	require.NoError(t, hooks.OnCollected(ctx, types.NewGrid(2)))
	require.NoError(t, hooks.OnError(ctx, context.Canceled))
}

func TestFill(t *testing.T) {
	var seen []int
	h := Fill(types.Hooks{
		OnTimestep: func(_ context.Context, _, step int) error {
			seen = append(seen, step)
			return nil
		},
	})

	require.NotNil(t, h.OnCollected)
	require.NotNil(t, h.OnError)

	require.NoError(t, h.OnTimestep(t.Context(), 0, 7))
	require.Equal(t, []int{7}, seen)
	require.NoError(t, h.OnCollected(t.Context(), nil))
}
