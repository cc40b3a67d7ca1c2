package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/ports"
	"github.com/quotedeck/quote-service/internal/platform/telemetry"
)

// cacheKey is the single logical key the quote pool is persisted under.
// The pool is one document; writes replace it wholesale.
const cacheKey = "quotes"

// CacheStoreConfig contains dependencies and tuning for a CacheStore.
type CacheStoreConfig struct {
	// Store is the backing key-value store. Required.
	Store ports.KeyValue

	// Logger receives warnings about failed reads and writes.
	Logger *slog.Logger

	// Metrics records hit/miss/write_failed events. Optional.
	Metrics *telemetry.QuoteMetrics

	// MaxAge is the age after which an entry counts as stale.
	// Zero or negative falls back to 24 hours.
	MaxAge time.Duration

	// DisableCache makes every entry stale, forcing refresh on each
	// read path that checks staleness. Reads and writes still happen
	// so a re-enable picks up where the store left off.
	DisableCache bool

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// CacheStore wraps the key-value port with the quote pool's caching
// policy: reads collapse every failure mode to a miss, writes are
// last-writer-wins and never surface errors. Callers decide what to do
// about staleness; the store only reports it.
type CacheStore struct {
	store    ports.KeyValue
	logger   *slog.Logger
	metrics  *telemetry.QuoteMetrics
	maxAge   time.Duration
	disabled bool
	now      func() time.Time

	mu     sync.Mutex
	hits   int64
	misses int64
}

// CacheStats holds the hit/miss counters accumulated since construction.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// NewCacheStore creates a CacheStore. Panics if cfg.Store is nil.
func NewCacheStore(cfg CacheStoreConfig) *CacheStore {
	if cfg.Store == nil {
		panic("app: Store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CacheStore{
		store:    cfg.Store,
		logger:   cfg.Logger.With(slog.String("component", "quote-cache")),
		metrics:  cfg.Metrics,
		maxAge:   cfg.MaxAge,
		disabled: cfg.DisableCache,
		now:      cfg.Now,
	}
}

// Read returns the cached entry and whether one was usable. An absent
// key, a corrupt document, and a storage error all collapse to a miss;
// storage trouble is logged, never returned. A hit may still be stale.
func (c *CacheStore) Read(ctx context.Context) (domain.CacheEntry, bool) {
	raw, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		if !domain.IsNotFound(err) {
			c.logger.WarnContext(ctx, "cache read failed",
				slog.Any("error", err))
		}
		c.miss(ctx)
		return domain.CacheEntry{}, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, treating as miss",
			slog.Any("error", err))
		c.miss(ctx)
		return domain.CacheEntry{}, false
	}
	if entry.Empty() {
		c.miss(ctx)
		return domain.CacheEntry{}, false
	}

	c.hit(ctx)
	return entry, true
}

// Write replaces the cached pool with the given batch, stamped with the
// current clock. Failures are logged and swallowed; the cache is an
// optimization and a failed write must never fail the refresh that
// produced the batch.
func (c *CacheStore) Write(ctx context.Context, quotes []domain.Quote, source string) {
	entry := domain.CacheEntry{
		Quotes:    quotes,
		FetchedAt: c.now(),
		Source:    source,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry marshal failed",
			slog.Any("error", err))
		c.metrics.RecordCacheEvent(ctx, "write_failed")
		return
	}
	if err := c.store.Set(ctx, cacheKey, raw); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.Int("quotes", len(quotes)),
			slog.Any("error", err))
		c.metrics.RecordCacheEvent(ctx, "write_failed")
		return
	}
	c.logger.DebugContext(ctx, "cache written",
		slog.Int("quotes", len(quotes)),
		slog.String("source", source))
}

// Invalidate removes the cached pool. Best-effort; an error leaves the
// old entry in place, which staleness handling already tolerates.
func (c *CacheStore) Invalidate(ctx context.Context) {
	if err := c.store.Delete(ctx, cacheKey); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("error", err))
	}
}

// Stale reports whether the entry should trigger a refresh. Every entry
// is stale while caching is disabled.
func (c *CacheStore) Stale(entry domain.CacheEntry) bool {
	if c.disabled {
		return true
	}
	return entry.Expired(c.now(), c.maxAge)
}

// Stats returns the hit/miss counters accumulated so far.
func (c *CacheStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

func (c *CacheStore) hit(ctx context.Context) {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	c.metrics.RecordCacheEvent(ctx, "hit")
}

func (c *CacheStore) miss(ctx context.Context) {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.metrics.RecordCacheEvent(ctx, "miss")
}
