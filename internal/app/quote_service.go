// Package app contains the application services that orchestrate quote
// sourcing: provider selection, caching, deterministic daily selection,
// and the degradation ladder from live providers down to the built-in
// fallback pool.
//
// The layer depends on port interfaces, never on concrete adapters.
// Its read paths are total: a caller always gets a quote, however
// degraded the sources are. Errors leave this layer only for invalid
// input.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/fallback"
	"github.com/quotedeck/quote-service/internal/platform/telemetry"
	"github.com/quotedeck/quote-service/internal/ports"
)

const (
	defaultRefreshTimeout = 20 * time.Second
	defaultBulkMax        = 50

	// bulkBatchEstimate approximates how many quotes one provider draw
	// yields, to size the bulk fan-out.
	bulkBatchEstimate = 25

	// maxBulkDraws caps the fan-out of a single bulk request.
	maxBulkDraws = 4

	// bulkDrawLimit bounds how many draws run at once.
	bulkDrawLimit = 2
)

// lastResortQuote is served only when both the cache and the fallback
// pool are empty, which takes a deliberately emptied fallback override.
var lastResortQuote = domain.Quote{
	ID:       "builtin-1",
	Text:     "The best way out is always through.",
	Author:   "Robert Frost",
	Category: "perseverance",
	Source:   fallback.Source,
}

// QuoteServiceConfig contains dependencies and tuning for a QuoteService.
type QuoteServiceConfig struct {
	// Store persists the quote cache, provider health, and analytics
	// counters. Required.
	Store ports.KeyValue

	// Providers are the upstream sources in configuration order. An
	// empty set is allowed; every quote then comes from the fallback
	// pool.
	Providers []ports.QuoteProvider

	// Weights maps provider names to relative selection weights.
	Weights map[string]float64

	Logger  *slog.Logger
	Metrics *telemetry.QuoteMetrics

	// CacheMaxAge is the age after which the cached pool is stale.
	CacheMaxAge time.Duration

	// DisableCache makes every cached pool stale, forcing a refresh
	// attempt on each fetch path.
	DisableCache bool

	// AttemptTimeout bounds one provider fetch attempt.
	AttemptTimeout time.Duration

	// RefreshTimeout bounds a whole refresh cycle across candidates.
	RefreshTimeout time.Duration

	// BulkMax caps the count of a single bulk request.
	BulkMax int

	// Categories is an allow-list applied to fetched batches before
	// caching. Empty means no filtering. Uncategorized quotes always
	// pass.
	Categories []string

	// Fallback overrides the built-in fallback pool. Nil keeps it.
	Fallback []domain.Quote

	// Now and Rand override the clock and the selection draw. Nil
	// means time.Now and math/rand.
	Now  func() time.Time
	Rand func() float64
}

// QuoteService is the facade over quote sourcing. One instance serves
// all requests; all methods are safe for concurrent use.
type QuoteService struct {
	store      ports.KeyValue
	cache      *CacheStore
	orch       *Orchestrator
	health     *HealthTracker
	analytics  *Analytics
	exec       *Executor
	fallback   []domain.Quote
	categories map[string]struct{}
	refreshTTL time.Duration
	bulkMax    int
	logger     *slog.Logger
	metrics    *telemetry.QuoteMetrics
	now        func() time.Time

	group singleflight.Group
}

// NewQuoteService creates the facade and its internal collaborators.
// Panics if cfg.Store is nil; persistence is the one hard dependency.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil {
		panic("app: Store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = defaultRefreshTimeout
	}
	if cfg.BulkMax <= 0 {
		cfg.BulkMax = defaultBulkMax
	}

	pool := cfg.Fallback
	if pool == nil {
		pool = fallback.New().Quotes()
	}

	categories := make(map[string]struct{}, len(cfg.Categories))
	for _, c := range cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			categories[c] = struct{}{}
		}
	}

	health := NewHealthTracker(cfg.Now)

	return &QuoteService{
		store: cfg.Store,
		cache: NewCacheStore(CacheStoreConfig{
			Store:        cfg.Store,
			Logger:       cfg.Logger,
			Metrics:      cfg.Metrics,
			MaxAge:       cfg.CacheMaxAge,
			DisableCache: cfg.DisableCache,
			Now:          cfg.Now,
		}),
		orch: NewOrchestrator(OrchestratorConfig{
			Providers:      cfg.Providers,
			Weights:        cfg.Weights,
			Health:         health,
			AttemptTimeout: cfg.AttemptTimeout,
			Logger:         cfg.Logger,
			Metrics:        cfg.Metrics,
			Rand:           cfg.Rand,
		}),
		health:     health,
		analytics:  NewAnalytics(),
		exec:       NewExecutor(cfg.Logger),
		fallback:   pool,
		categories: categories,
		refreshTTL: cfg.RefreshTimeout,
		bulkMax:    cfg.BulkMax,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}
}

// DailyQuote returns today's quote without touching the network. It
// selects deterministically from the fresh cached pool, or from the
// fallback pool when the cache is absent or stale.
func (s *QuoteService) DailyQuote(ctx context.Context) domain.Quote {
	day := domain.DayKeyFor(s.now())

	entry, ok := s.cache.Read(ctx)
	if ok && !s.cache.Stale(entry) {
		return s.selectForDay(ctx, FetchResult{Quotes: entry.Quotes, Source: entry.Source}, day)
	}

	return s.selectForDay(ctx, FetchResult{Quotes: s.fallback, Source: fallback.Source}, day)
}

// FetchDailyQuote returns today's quote, refreshing the pool from the
// providers when the cache is stale, absent, or force is set. It never
// fails: a dead provider fleet degrades to the previous pool, then to
// the fallback pool.
func (s *QuoteService) FetchDailyQuote(ctx context.Context, force bool) domain.Quote {
	return s.QuoteForDay(ctx, domain.DayKeyFor(s.now()), force)
}

// QuoteForDay returns the quote for an arbitrary day with the same
// refresh and degradation behavior as FetchDailyQuote. A zero day
// means today.
func (s *QuoteService) QuoteForDay(ctx context.Context, day domain.DayKey, force bool) domain.Quote {
	if day.IsZero() {
		day = domain.DayKeyFor(s.now())
	}

	entry, ok := s.cache.Read(ctx)
	if ok && !force && !s.cache.Stale(entry) {
		return s.selectForDay(ctx, FetchResult{Quotes: entry.Quotes, Source: entry.Source}, day)
	}
	if ok && s.cache.Stale(entry) {
		s.metrics.RecordCacheEvent(ctx, "stale")
	}

	return s.selectForDay(ctx, s.refreshedPool(ctx, day), day)
}

// refreshedPool refreshes the pool once per day key no matter how many
// requests arrive at the same time; concurrent callers share the one
// in-flight refresh. The refresh itself is detached from the caller's
// cancellation so an impatient client cannot kill the work its peers
// are waiting on.
func (s *QuoteService) refreshedPool(ctx context.Context, day domain.DayKey) FetchResult {
	view, _, _ := s.group.Do(day.String(), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx)), nil
	})

	return view.(FetchResult)
}

// refreshRequest is the input to one pool refresh.
type refreshRequest struct {
	// sources restricts the candidate providers. Empty means all.
	sources []string
}

// refresh runs one refresh cycle through the execution pipeline and
// returns the pool to select from. On failure it falls back to the
// previous cached pool, stale or not, and then to the fallback pool.
func (s *QuoteService) refresh(ctx context.Context) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTTL)
	defer cancel()

	op := Operation[refreshRequest, FetchResult, FetchResult, FetchResult]{
		Name: "refresh-quote-pool",
		Validate: func(_ context.Context, _ refreshRequest) error {
			if len(s.orch.Names()) == 0 {
				return domain.ErrProviderUnavailable
			}

			return nil
		},
		Perform: func(ctx context.Context, req refreshRequest) (FetchResult, error) {
			return s.orch.FetchOne(ctx, req.sources)
		},
		Verify: func(ctx context.Context, _ refreshRequest, fetched FetchResult) (FetchResult, error) {
			return s.verifyBatch(ctx, fetched)
		},
		Archive: func(ctx context.Context, _ refreshRequest, verified FetchResult) error {
			// Cache writes are best-effort; a failed write must not
			// fail the refresh that produced a good batch.
			s.cache.Write(ctx, verified.Quotes, verified.Source)

			return nil
		},
		Respond: func(_ context.Context, _ refreshRequest, verified FetchResult) (FetchResult, error) {
			return verified, nil
		},
	}

	view, err := Execute(ctx, s.exec, op, refreshRequest{})

	// Provider health moved during the refresh either way.
	s.PersistState(ctx)

	if err != nil {
		step, _ := GetExecutionStep(err)
		s.logger.WarnContext(ctx, "pool refresh failed, serving previous pool",
			slog.String("step", string(step)),
			slog.Any("error", err))

		if entry, ok := s.cache.Read(ctx); ok {
			return FetchResult{Quotes: entry.Quotes, Source: entry.Source}
		}

		return FetchResult{Quotes: s.fallback, Source: fallback.Source}
	}

	return view
}

// verifyBatch validates, dedups, and category-filters a fetched batch.
// A batch that ends up with nothing valid is an error; a batch the
// category filter would empty is kept unfiltered, since a filtered-out
// pool serves nobody.
func (s *QuoteService) verifyBatch(ctx context.Context, fetched FetchResult) (FetchResult, error) {
	valid := make([]domain.Quote, 0, len(fetched.Quotes))
	for _, q := range fetched.Quotes {
		if err := q.Validate(); err != nil {
			continue
		}
		valid = append(valid, q)
	}
	valid = domain.DedupQuotes(valid)

	if len(valid) == 0 {
		return FetchResult{}, domain.NewParseError(fetched.Source, "batch contained no valid quotes", nil)
	}

	filtered := s.filterCategories(valid)
	if len(filtered) == 0 {
		s.logger.DebugContext(ctx, "category filter would empty batch, keeping unfiltered",
			slog.String("source", fetched.Source),
			slog.Int("quotes", len(valid)))
		filtered = valid
	}

	return FetchResult{Quotes: filtered, Source: fetched.Source}, nil
}

// filterCategories applies the configured allow-list. Quotes without a
// category pass; an empty allow-list passes everything.
func (s *QuoteService) filterCategories(quotes []domain.Quote) []domain.Quote {
	if len(s.categories) == 0 {
		return quotes
	}

	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Category == "" {
			out = append(out, q)
			continue
		}
		if _, ok := s.categories[strings.ToLower(q.Category)]; ok {
			out = append(out, q)
		}
	}

	return out
}

// selectForDay picks the day's quote from a pool by deterministic
// index. An empty pool falls through to the fallback pool and, past
// that, to the built-in last resort.
func (s *QuoteService) selectForDay(ctx context.Context, view FetchResult, day domain.DayKey) domain.Quote {
	pool, source := view.Quotes, view.Source
	if len(pool) == 0 {
		pool, source = s.fallback, fallback.Source
	}
	if len(pool) == 0 {
		s.metrics.RecordServed(ctx, fallback.Source)

		return lastResortQuote.Clone()
	}

	quote := pool[domain.DailyIndex(day, len(pool))].Clone()
	s.metrics.RecordServed(ctx, source)

	return quote
}

// SearchQuotes matches quotes against a query, combining the named
// source's own search with a local match over the known pool. Provider
// trouble degrades the result to local matches; the only errors are an
// empty query and an unknown source name.
func (s *QuoteService) SearchQuotes(ctx context.Context, source, query string) ([]domain.Quote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}

	var searcher ports.QuoteSearcher
	if source != "" {
		provider, ok := s.orch.Provider(source)
		if !ok {
			return nil, domain.NewValidationErrorWithValue("source", "unknown quote source", source)
		}
		// Not every source can search; those that cannot still serve
		// local matches.
		searcher, _ = provider.(ports.QuoteSearcher)
	}

	if searcher == nil {
		return domain.DedupQuotes(s.searchLocal(ctx, query)), nil
	}

	results := ParallelPartial(ctx,
		func(ctx context.Context) ([]domain.Quote, error) {
			return searcher.SearchQuotes(ctx, query)
		},
		func(ctx context.Context) ([]domain.Quote, error) {
			return s.searchLocal(ctx, query), nil
		},
	)

	remote, local := results[0], results[1]
	s.health.RecordResult(source, remote.Err == nil)

	merged := make([]domain.Quote, 0, len(remote.Value)+len(local.Value))
	if remote.Err != nil {
		s.logger.WarnContext(ctx, "provider search failed, serving local matches",
			slog.String("source", source),
			slog.Any("error", remote.Err))
	} else {
		merged = append(merged, remote.Value...)
	}
	merged = append(merged, local.Value...)

	return domain.DedupQuotes(merged), nil
}

// searchLocal scans the known pool for case-insensitive matches on
// text, author, or tags. The stale cache is fine here; search is about
// recall, not freshness.
func (s *QuoteService) searchLocal(ctx context.Context, query string) []domain.Quote {
	view := s.knownPool(ctx)
	needle := strings.ToLower(query)

	var out []domain.Quote
	for _, q := range view.Quotes {
		if quoteMatches(q, needle) {
			out = append(out, q.Clone())
		}
	}

	return out
}

func quoteMatches(q domain.Quote, needle string) bool {
	if strings.Contains(strings.ToLower(q.Text), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(q.Author), needle) {
		return true
	}
	for _, tag := range q.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}

	return false
}

// BulkRequest asks for up to Count quotes, optionally restricted to
// the named sources.
type BulkRequest struct {
	Count   int
	Sources []string
}

// BulkQuotes gathers quotes from several concurrent provider draws,
// deduplicated and truncated to the requested count. Failed draws
// shrink the result; they never fail it. An all-failed fan-out yields
// an empty result.
func (s *QuoteService) BulkQuotes(ctx context.Context, req BulkRequest) []domain.Quote {
	count := req.Count
	if count <= 0 {
		return []domain.Quote{}
	}
	if count > s.bulkMax {
		count = s.bulkMax
	}

	draws := (count + bulkBatchEstimate - 1) / bulkBatchEstimate
	if draws > maxBulkDraws {
		draws = maxBulkDraws
	}

	fns := make([]func(context.Context) (FetchResult, error), draws)
	for i := range fns {
		fns[i] = func(ctx context.Context) (FetchResult, error) {
			return s.orch.FetchOne(ctx, req.Sources)
		}
	}

	results := ParallelPartialLimit(ctx, bulkDrawLimit, fns...)

	var merged []domain.Quote
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		merged = append(merged, r.Value.Quotes...)
	}
	if failed > 0 {
		s.logger.WarnContext(ctx, "bulk draws partially failed",
			slog.Int("failed", failed),
			slog.Int("draws", draws))
	}

	merged = domain.DedupQuotes(merged)
	if len(merged) > count {
		merged = merged[:count]
	}

	return merged
}

// HealthStatus reports per-provider health, sorted by source name.
func (s *QuoteService) HealthStatus() []domain.ProviderHealth {
	return s.health.Snapshot()
}

// ProviderReadiness exposes upstream sourcing as a health check for
// the readiness endpoint.
func (s *QuoteService) ProviderReadiness() ports.HealthChecker {
	return s.orch
}

// Analytics assembles the current usage report.
func (s *QuoteService) Analytics(ctx context.Context) AnalyticsReport {
	view := s.knownPool(ctx)

	return s.analytics.report(len(view.Quotes), s.cache.Stats())
}

// RecordView counts a delivery of the identified quote. Unknown IDs
// still count; the client saw something even if the pool has since
// rotated.
func (s *QuoteService) RecordView(ctx context.Context, id string) {
	s.analytics.RecordView(s.quoteByID(ctx, id))
}

// RecordLike counts a like event.
func (s *QuoteService) RecordLike(ctx context.Context, id string) {
	s.analytics.RecordLike()
	s.logger.DebugContext(ctx, "like recorded", slog.String("quote_id", id))
}

// RecordSave counts a save event.
func (s *QuoteService) RecordSave(ctx context.Context, id string) {
	s.analytics.RecordSave()
	s.logger.DebugContext(ctx, "save recorded", slog.String("quote_id", id))
}

// UpdateSourceWeights replaces the provider selection weights at
// runtime. Negative weights are corrected to zero.
func (s *QuoteService) UpdateSourceWeights(weights map[string]float64) {
	s.orch.UpdateWeights(weights)
	s.logger.Info("source weights updated", slog.Int("sources", len(weights)))
}

// SourceWeights returns a copy of the active weight table.
func (s *QuoteService) SourceWeights() map[string]float64 {
	return s.orch.Weights()
}

// RestoreState loads persisted provider health and analytics counters.
// Best-effort: anything absent or unreadable starts fresh.
func (s *QuoteService) RestoreState(ctx context.Context) {
	results := ParallelPartial(ctx,
		func(ctx context.Context) ([]byte, error) { return s.store.Get(ctx, healthKey) },
		func(ctx context.Context) ([]byte, error) { return s.store.Get(ctx, analyticsKey) },
	)

	if raw := results[0]; raw.Err == nil {
		var entries []domain.ProviderHealth
		if err := json.Unmarshal(raw.Value, &entries); err != nil {
			s.logger.WarnContext(ctx, "persisted provider health corrupt, starting fresh",
				slog.Any("error", err))
		} else {
			s.health.Restore(entries)
		}
	} else if !domain.IsNotFound(raw.Err) {
		s.logger.WarnContext(ctx, "loading provider health failed",
			slog.Any("error", raw.Err))
	}

	if raw := results[1]; raw.Err == nil {
		if err := s.analytics.restore(raw.Value); err != nil {
			s.logger.WarnContext(ctx, "persisted analytics corrupt, starting fresh",
				slog.Any("error", err))
		}
	} else if !domain.IsNotFound(raw.Err) {
		s.logger.WarnContext(ctx, "loading analytics failed",
			slog.Any("error", raw.Err))
	}
}

// PersistState saves provider health and analytics counters.
// Best-effort: failures are logged and the in-memory state stays
// authoritative.
func (s *QuoteService) PersistState(ctx context.Context) {
	if raw, err := json.Marshal(s.health.Snapshot()); err == nil {
		if err := s.store.Set(ctx, healthKey, raw); err != nil {
			s.logger.WarnContext(ctx, "persisting provider health failed",
				slog.Any("error", err))
		}
	}

	if raw, err := s.analytics.snapshot(); err == nil {
		if err := s.store.Set(ctx, analyticsKey, raw); err != nil {
			s.logger.WarnContext(ctx, "persisting analytics failed",
				slog.Any("error", err))
		}
	}
}

// knownPool returns whatever pool the service currently has, cached or
// fallback, without refreshing anything.
func (s *QuoteService) knownPool(ctx context.Context) FetchResult {
	if entry, ok := s.cache.Read(ctx); ok {
		return FetchResult{Quotes: entry.Quotes, Source: entry.Source}
	}

	return FetchResult{Quotes: s.fallback, Source: fallback.Source}
}

// quoteByID finds a quote in the known pool or the fallback pool. An
// unknown ID yields a stub carrying just the ID.
func (s *QuoteService) quoteByID(ctx context.Context, id string) domain.Quote {
	view := s.knownPool(ctx)
	for _, q := range view.Quotes {
		if q.ID == id {
			return q.Clone()
		}
	}
	for _, q := range s.fallback {
		if q.ID == id {
			return q.Clone()
		}
	}

	return domain.Quote{ID: id}
}
