package domain

import "time"

// ProviderStatus classifies a quote source by its recent fetch history.
type ProviderStatus string

const (
	// ProviderHealthy means the source is serving normally.
	ProviderHealthy ProviderStatus = "healthy"

	// ProviderDegraded means the source succeeds often enough to stay in
	// rotation but at a reduced weight.
	ProviderDegraded ProviderStatus = "degraded"

	// ProviderDown means the source is excluded from weighted selection
	// until it records a success again.
	ProviderDown ProviderStatus = "down"
)

// Status derivation thresholds. A source goes down after three failures
// in a row regardless of history, or once it has enough attempts to
// judge and under one in five succeed. Below four in five it is degraded.
const (
	consecutiveFailureLimit = 3
	minAttemptsForRate      = 5
	downSuccessRate         = 0.20
	degradedSuccessRate     = 0.80
)

// ProviderHealth holds the cumulative fetch history for one source.
// Entries are created lazily on the first attempt and live for the
// process lifetime; only a recorded success resets the consecutive run.
type ProviderHealth struct {
	// Source is the provider name this entry tracks.
	Source string

	// SuccessCount is the cumulative number of successful fetches.
	SuccessCount int64

	// FailureCount is the cumulative number of failed fetches.
	FailureCount int64

	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int64

	// Status is the classification derived from the counters.
	Status ProviderStatus

	// LastChecked is when the most recent attempt was recorded.
	LastChecked time.Time
}

// Attempts returns the total number of recorded fetch attempts.
func (h ProviderHealth) Attempts() int64 {
	return h.SuccessCount + h.FailureCount
}

// SuccessRate returns the fraction of attempts that succeeded.
// A source with no attempts reports 1.0 so new sources start healthy.
func (h ProviderHealth) SuccessRate() float64 {
	attempts := h.Attempts()
	if attempts == 0 {
		return 1.0
	}

	return float64(h.SuccessCount) / float64(attempts)
}

// DeriveStatus computes the status for the given counters.
// Pure function so the derivation is trivially testable.
func DeriveStatus(successes, failures, consecutive int64) ProviderStatus {
	attempts := successes + failures

	rate := 1.0
	if attempts > 0 {
		rate = float64(successes) / float64(attempts)
	}

	if consecutive >= consecutiveFailureLimit {
		return ProviderDown
	}

	if attempts >= minAttemptsForRate && rate < downSuccessRate {
		return ProviderDown
	}

	if rate < degradedSuccessRate {
		return ProviderDegraded
	}

	return ProviderHealthy
}

// SelectionMultiplier returns the factor applied to a source's
// configured weight during orchestrated selection.
func (s ProviderStatus) SelectionMultiplier() float64 {
	switch s {
	case ProviderHealthy:
		return 1.0
	case ProviderDegraded:
		return 0.5
	case ProviderDown:
		return 0.0
	default:
		return 0.0
	}
}

// String implements fmt.Stringer.
func (s ProviderStatus) String() string {
	return string(s)
}
