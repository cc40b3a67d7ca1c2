package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrDuplicateChecker reports a second registration under a name the
// registry already holds.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is implemented by components that can report their
// health. The quote store adapters and the provider orchestrator all
// implement it, so readiness reflects both persistence and upstream
// sourcing. A store backed by Postgres, say:
//
//	func (s *PostgresStore) Name() string { return "quote-store" }
//
//	func (s *PostgresStore) Check(ctx context.Context) error {
//	    return s.db.PingContext(ctx)
//	}
type HealthChecker interface {
	// Name uniquely identifies the component in health responses.
	Name() string

	// Check reports nil when healthy. Implementations honor ctx.
	Check(ctx context.Context) error
}

// HealthRegistry aggregates the health of every registered component.
type HealthRegistry interface {
	// Register adds a checker. Names must be unique.
	Register(checker HealthChecker) error

	// CheckAll runs every check concurrently under ctx and folds the
	// outcomes into one result.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the health of a component or of the whole service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult aggregates one round of checks. Status is unhealthy as
// soon as any single check is.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of a single component's check.
type CheckResult struct {
	Status HealthStatus `json:"status"`

	// Message carries the failure detail, empty when healthy.
	Message string `json:"message,omitempty"`

	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry is the standard HealthRegistry. Registration
// and checking are safe for concurrent use.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{}
}

// Register adds a checker, refusing duplicate names.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	taken := slices.ContainsFunc(r.checkers, func(c HealthChecker) bool {
		return c.Name() == name
	})
	if taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll runs every registered check on its own goroutine and
// aggregates the outcomes. A registry with no checkers is healthy.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := slices.Clone(r.checkers)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	type outcome struct {
		name  string
		check *CheckResult
	}

	outcomes := make(chan outcome, len(checkers))

	var wg sync.WaitGroup
	for _, checker := range checkers {
		wg.Go(func() {
			outcomes <- outcome{name: checker.Name(), check: runCheck(ctx, checker)}
		})
	}

	wg.Wait()
	close(outcomes)

	for o := range outcomes {
		result.Checks[o.name] = o.check
		if o.check.Status == HealthStatusUnhealthy {
			result.Status = HealthStatusUnhealthy
		}
	}

	return result
}

// runCheck times one checker and folds its error into the result.
func runCheck(ctx context.Context, c HealthChecker) *CheckResult {
	start := time.Now()
	err := c.Check(ctx)

	res := &CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}
