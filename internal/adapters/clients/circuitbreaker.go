package clients

import (
	"sync"
	"time"
)

// State is the breaker's position in its lifecycle.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen blocks every request until the cooldown elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe requests through to
	// test whether the upstream recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig sets the breaker thresholds.
type CircuitBreakerConfig struct {
	// MaxFailures is the consecutive-failure run that trips the breaker.
	MaxFailures int

	// Timeout is the cooldown spent open before probing resumes.
	Timeout time.Duration

	// HalfOpenLimit bounds concurrent probes while half-open and is the
	// consecutive-success run that closes the breaker again.
	HalfOpenLimit int
}

// CircuitBreaker keeps a failing upstream from being hammered. It
// moves closed to open after MaxFailures consecutive failures, open to
// half-open once Timeout has passed, half-open back to closed after
// HalfOpenLimit consecutive successes, and half-open straight back to
// open on any failure.
type CircuitBreaker struct {
	mu            sync.RWMutex
	state         State
	failureRun    int       // consecutive failures while closed
	successRun    int       // consecutive successes while half-open
	probes        int       // probe requests in flight while half-open
	lastFailureAt time.Time // anchors the open-state cooldown
	cfg           CircuitBreakerConfig

	// stateHook fires on every transition, for logging or metrics.
	stateHook func(from, to State)

	// clock is swapped out in tests.
	clock func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg,
		clock: time.Now,
	}
}

// OnStateChange registers the transition callback.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.stateHook = fn
}

// Allow reports whether a request may proceed. An open breaker whose
// cooldown has elapsed flips to half-open here and admits the caller
// as the first probe; while half-open, admission stops at the probe
// limit.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.clock().Sub(cb.lastFailureAt) >= cb.cfg.Timeout {
			cb.shiftTo(StateHalfOpen)
			cb.probes = 1
			return true
		}
		return false

	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenLimit {
			return false
		}
		cb.probes++
		return true

	default:
		return false
	}
}

// RecordSuccess books a successful request. While half-open, enough
// successes in a row close the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureRun = 0

	case StateHalfOpen:
		cb.probes--
		cb.successRun++
		if cb.successRun >= cb.cfg.HalfOpenLimit {
			cb.shiftTo(StateClosed)
		}
	}
}

// RecordFailure books a failed request. While closed, a long enough
// run trips the breaker; while half-open, one failure retrips it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureAt = cb.clock()

	switch cb.state {
	case StateClosed:
		cb.failureRun++
		if cb.failureRun >= cb.cfg.MaxFailures {
			cb.shiftTo(StateOpen)
		}

	case StateHalfOpen:
		cb.probes--
		cb.shiftTo(StateOpen)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// shiftTo moves the breaker to next, clearing the run counters. Caller
// holds the lock; the hook runs on its own goroutine so it cannot
// block under it.
func (cb *CircuitBreaker) shiftTo(next State) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next

	cb.failureRun = 0
	cb.successRun = 0

	if cb.stateHook != nil {
		go cb.stateHook(prev, next)
	}
}
