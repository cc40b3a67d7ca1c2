package app

import (
	"sort"
	"sync"
	"time"

	"github.com/quotedeck/quote-service/internal/domain"
)

// healthKey is the key-value entry provider health survives restarts under.
const healthKey = "provider_health"

// HealthTracker accumulates per-provider fetch outcomes and derives a
// status from them. It is a pure in-memory accumulator; persistence is
// the caller's concern via Snapshot and Restore.
type HealthTracker struct {
	mu      sync.Mutex
	entries map[string]domain.ProviderHealth
	now     func() time.Time
}

// NewHealthTracker creates an empty tracker. A nil clock means time.Now.
func NewHealthTracker(now func() time.Time) *HealthTracker {
	if now == nil {
		now = time.Now
	}
	return &HealthTracker{
		entries: make(map[string]domain.ProviderHealth),
		now:     now,
	}
}

// RecordResult folds one fetch outcome into the named source's counters
// and re-derives its status.
func (t *HealthTracker) RecordResult(source string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entries[source]
	entry.Source = source
	if success {
		entry.SuccessCount++
		entry.ConsecutiveFailures = 0
	} else {
		entry.FailureCount++
		entry.ConsecutiveFailures++
	}
	entry.Status = domain.DeriveStatus(entry.SuccessCount, entry.FailureCount, entry.ConsecutiveFailures)
	entry.LastChecked = t.now()
	t.entries[source] = entry
}

// Status returns the derived status for a source. A source that was
// never recorded is healthy: new providers start with full trust.
func (t *HealthTracker) Status(source string) domain.ProviderStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[source]
	if !ok {
		return domain.ProviderHealthy
	}
	return entry.Status
}

// Snapshot returns a copy of every tracked entry, sorted by source so
// reports and persisted state are stable across calls.
func (t *HealthTracker) Snapshot() []domain.ProviderHealth {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.ProviderHealth, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Restore seeds the tracker from previously persisted entries. Statuses
// are re-derived from the counters rather than trusted, so a change to
// the derivation rules applies to restored state too. Entries already
// recorded in this process win over restored ones.
func (t *HealthTracker) Restore(entries []domain.ProviderHealth) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range entries {
		if entry.Source == "" {
			continue
		}
		if _, exists := t.entries[entry.Source]; exists {
			continue
		}
		entry.Status = domain.DeriveStatus(entry.SuccessCount, entry.FailureCount, entry.ConsecutiveFailures)
		t.entries[entry.Source] = entry
	}
}
