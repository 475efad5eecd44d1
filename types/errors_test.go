package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("rank 2: step 7: %w", ErrExchangeTimeout)
		require.ErrorIs(t, wrapped, ErrExchangeTimeout)
		require.NotErrorIs(t, wrapped, ErrExchangeFailed)

		joined := errors.Join(ErrRunAborted, errors.New("additional context"))
		require.ErrorIs(t, joined, ErrRunAborted)
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			// Configuration errors
			ErrInvalidConfig,
			ErrTooManyWorkers,
			ErrInvalidRank,
			ErrEndpointRequired,
			ErrAlreadyStarted,
			// Communication errors
			ErrExchangeFailed,
			ErrExchangeTimeout,
			ErrHaloMismatch,
			ErrGatherFailed,
			ErrRunAborted,
			ErrTransportClosed,
		}

		for i, err1 := range allErrors {
			for j, err2 := range allErrors {
				if i == j {
					require.True(t, errors.Is(err1, err2), "error should equal itself: %v", err1)
				} else {
					require.False(t, errors.Is(err1, err2), "errors should be distinct: %v vs %v", err1, err2)
				}
			}
		}
	})
}
