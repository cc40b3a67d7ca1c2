package domain

import "time"

// CacheEntry is the cached quote pool plus its capture metadata.
// One entry exists per logical cache key; a refresh replaces it
// wholesale, entries are never merged.
type CacheEntry struct {
	// Quotes in fetch order. The order carries no meaning but is
	// preserved so deterministic daily selection is stable.
	Quotes []Quote

	// FetchedAt is when the pool was captured.
	FetchedAt time.Time

	// Source names the provider that supplied the pool.
	Source string
}

// Expired reports whether the entry is older than maxAge at the given
// instant.
func (e CacheEntry) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.FetchedAt) > maxAge
}

// Empty reports whether the entry holds no quotes.
func (e CacheEntry) Empty() bool {
	return len(e.Quotes) == 0
}
