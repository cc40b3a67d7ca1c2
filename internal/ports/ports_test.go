package ports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker reports the configured outcome. A nil check func means
// always healthy.
type stubChecker struct {
	name  string
	check func(ctx context.Context) error
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(ctx context.Context) error {
	if s.check == nil {
		return nil
	}

	return s.check(ctx)
}

func failing(name, msg string) stubChecker {
	return stubChecker{name: name, check: func(context.Context) error {
		return errors.New(msg)
	}}
}

func TestHealthRegistry_Register(t *testing.T) {
	t.Parallel()

	t.Run("accepts distinct names", func(t *testing.T) {
		t.Parallel()

		registry := NewHealthRegistry()

		require.NoError(t, registry.Register(stubChecker{name: "quote-store"}))
		require.NoError(t, registry.Register(stubChecker{name: "provider-quotable"}))

		result := registry.CheckAll(context.Background())
		assert.Len(t, result.Checks, 2)
	})

	t.Run("refuses a duplicate name", func(t *testing.T) {
		t.Parallel()

		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(stubChecker{name: "quote-store"}))

		err := registry.Register(failing("quote-store", "other instance"))

		require.ErrorIs(t, err, ErrDuplicateChecker)
		assert.Contains(t, err.Error(), "quote-store")
		assert.Len(t, registry.CheckAll(context.Background()).Checks, 1)
	})
}

func TestHealthRegistry_CheckAll(t *testing.T) {
	t.Parallel()

	t.Run("empty registry is healthy", func(t *testing.T) {
		t.Parallel()

		result := NewHealthRegistry().CheckAll(context.Background())

		require.NotNil(t, result)
		assert.Equal(t, HealthStatusHealthy, result.Status)
		assert.Empty(t, result.Checks)
		assert.False(t, result.Timestamp.IsZero())
	})

	t.Run("all healthy components aggregate to healthy", func(t *testing.T) {
		t.Parallel()

		registry := NewHealthRegistry()
		for _, name := range []string{"quote-store", "provider-quotable", "provider-zenquotes"} {
			require.NoError(t, registry.Register(stubChecker{name: name}))
		}

		result := registry.CheckAll(context.Background())

		assert.Equal(t, HealthStatusHealthy, result.Status)
		require.Len(t, result.Checks, 3)
		for name, check := range result.Checks {
			assert.Equal(t, HealthStatusHealthy, check.Status, name)
			assert.Empty(t, check.Message, name)
		}
	})

	t.Run("one failing component flips the aggregate", func(t *testing.T) {
		t.Parallel()

		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(stubChecker{name: "quote-store"}))
		require.NoError(t, registry.Register(failing("provider-favqs", "connection timeout")))
		require.NoError(t, registry.Register(stubChecker{name: "provider-zenquotes"}))

		result := registry.CheckAll(context.Background())

		assert.Equal(t, HealthStatusUnhealthy, result.Status)
		assert.Equal(t, HealthStatusHealthy, result.Checks["quote-store"].Status)
		assert.Equal(t, HealthStatusUnhealthy, result.Checks["provider-favqs"].Status)
		assert.Equal(t, "connection timeout", result.Checks["provider-favqs"].Message)
		assert.Empty(t, result.Checks["quote-store"].Message)
	})

	t.Run("canceled context reaches the checkers", func(t *testing.T) {
		t.Parallel()

		registry := NewHealthRegistry()
		require.NoError(t, registry.Register(stubChecker{
			name: "slow-provider",
			check: func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(100 * time.Millisecond):
					return nil
				}
			},
		}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := registry.CheckAll(ctx)

		assert.Equal(t, HealthStatusUnhealthy, result.Status)
		assert.Contains(t, result.Checks["slow-provider"].Message, "context canceled")
	})

	t.Run("checks run concurrently", func(t *testing.T) {
		t.Parallel()

		// Each checker blocks until all three have started, which only
		// resolves when they run on separate goroutines.
		registry := NewHealthRegistry()

		var started sync.WaitGroup
		started.Add(3)
		barrier := func(ctx context.Context) error {
			started.Done()
			started.Wait()
			return nil
		}

		for _, name := range []string{"quote-store", "provider-quotable", "provider-zenquotes"} {
			require.NoError(t, registry.Register(stubChecker{name: name, check: barrier}))
		}

		done := make(chan *HealthResult, 1)
		go func() {
			done <- registry.CheckAll(context.Background())
		}()

		select {
		case result := <-done:
			assert.Equal(t, HealthStatusHealthy, result.Status)
			assert.Len(t, result.Checks, 3)
		case <-time.After(2 * time.Second):
			t.Fatal("checks did not run concurrently")
		}
	})
}
