package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelPartial_CollectsResultsInOrder(t *testing.T) {
	results := ParallelPartial(context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 2, nil },
		func(context.Context) (int, error) { return 3, nil },
	)

	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i+1, r.Value)
	}
}

func TestParallelPartial_FailuresDoNotCancelPeers(t *testing.T) {
	failure := errors.New("upstream 503")

	results := ParallelPartial(context.Background(),
		func(context.Context) (string, error) { return "", failure },
		func(ctx context.Context) (string, error) {
			// A slow success must complete even though a peer failed.
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(20 * time.Millisecond):
				return "survived", nil
			}
		},
	)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, failure)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "survived", results[1].Value)
}

func TestParallelPartial_NoFunctions(t *testing.T) {
	assert.Empty(t, ParallelPartial[int](context.Background()))
}

func TestParallelPartialLimit_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	fns := make([]func(context.Context) (int, error), 8)
	for i := range fns {
		fns[i] = func(context.Context) (int, error) {
			now := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				seen := peak.Load()
				if now <= seen || peak.CompareAndSwap(seen, now) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)
			return int(now), nil
		}
	}

	results := ParallelPartialLimit(context.Background(), 2, fns...)

	require.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestParallelPartialLimit_PreservesOrder(t *testing.T) {
	fns := make([]func(context.Context) (int, error), 5)
	for i := range fns {
		fns[i] = func(context.Context) (int, error) { return i * 10, nil }
	}

	results := ParallelPartialLimit(context.Background(), 2, fns...)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, i*10, r.Value)
	}
}

func TestParallelPartialLimit_NonPositiveLimitRunsUnbounded(t *testing.T) {
	done := make(chan struct{})

	go func() {
		ParallelPartialLimit(context.Background(), 0,
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context) (int, error) { return 2, nil },
		)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a non-positive limit must not deadlock")
	}
}
