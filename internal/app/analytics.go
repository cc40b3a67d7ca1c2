package app

import (
	"encoding/json"
	"sync"

	"github.com/quotedeck/quote-service/internal/domain"
)

// analyticsKey is the key-value entry usage counters survive restarts under.
const analyticsKey = "analytics"

// AnalyticsReport is a point-in-time summary of usage counters. Maps
// are copies; callers may mutate them freely.
type AnalyticsReport struct {
	TotalQuotes int              `json:"total_quotes"`
	TotalViews  int64            `json:"total_views"`
	Views       map[string]int64 `json:"views"`
	Categories  map[string]int64 `json:"categories"`
	Likes       int64            `json:"likes"`
	Saves       int64            `json:"saves"`
	CacheHits   int64            `json:"cache_hits"`
	CacheMisses int64            `json:"cache_misses"`
}

// Analytics accumulates view/like/save counters in memory. It carries
// no transport or storage of its own; the service persists it through
// snapshot and restore alongside the other state.
type Analytics struct {
	mu         sync.Mutex
	totalViews int64
	views      map[string]int64
	categories map[string]int64
	likes      int64
	saves      int64
}

// analyticsState is the persisted wire form of Analytics.
type analyticsState struct {
	TotalViews int64            `json:"total_views"`
	Views      map[string]int64 `json:"views"`
	Categories map[string]int64 `json:"categories"`
	Likes      int64            `json:"likes"`
	Saves      int64            `json:"saves"`
}

// NewAnalytics creates an empty accumulator.
func NewAnalytics() *Analytics {
	return &Analytics{
		views:      make(map[string]int64),
		categories: make(map[string]int64),
	}
}

// RecordView counts one delivery of the given quote. Category exposure
// is tracked on views only; likes and saves are running totals.
func (a *Analytics) RecordView(quote domain.Quote) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalViews++
	if quote.ID != "" {
		a.views[quote.ID]++
	}
	if quote.Category != "" {
		a.categories[quote.Category]++
	}
}

// RecordLike counts one like event.
func (a *Analytics) RecordLike() {
	a.mu.Lock()
	a.likes++
	a.mu.Unlock()
}

// RecordSave counts one save event.
func (a *Analytics) RecordSave() {
	a.mu.Lock()
	a.saves++
	a.mu.Unlock()
}

// report assembles a summary, merging in the pool size and cache
// counters the accumulator does not own itself.
func (a *Analytics) report(totalQuotes int, cache CacheStats) AnalyticsReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	views := make(map[string]int64, len(a.views))
	for id, n := range a.views {
		views[id] = n
	}
	categories := make(map[string]int64, len(a.categories))
	for category, n := range a.categories {
		categories[category] = n
	}

	return AnalyticsReport{
		TotalQuotes: totalQuotes,
		TotalViews:  a.totalViews,
		Views:       views,
		Categories:  categories,
		Likes:       a.likes,
		Saves:       a.saves,
		CacheHits:   cache.Hits,
		CacheMisses: cache.Misses,
	}
}

// snapshot serializes the counters for persistence.
func (a *Analytics) snapshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := analyticsState{
		TotalViews: a.totalViews,
		Views:      a.views,
		Categories: a.categories,
		Likes:      a.likes,
		Saves:      a.saves,
	}
	return json.Marshal(state)
}

// restore replaces the counters with previously persisted state. A
// corrupt document is rejected and the accumulator left untouched.
func (a *Analytics) restore(raw []byte) error {
	var state analyticsState
	if err := json.Unmarshal(raw, &state); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalViews = state.TotalViews
	a.likes = state.Likes
	a.saves = state.Saves
	a.views = state.Views
	if a.views == nil {
		a.views = make(map[string]int64)
	}
	a.categories = state.Categories
	if a.categories == nil {
		a.categories = make(map[string]int64)
	}
	return nil
}
