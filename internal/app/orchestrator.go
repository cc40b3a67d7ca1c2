package app

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/ports"
	"github.com/quotedeck/quote-service/internal/platform/telemetry"
)

// defaultAttemptTimeout bounds one provider fetch when the config gave none.
const defaultAttemptTimeout = 3 * time.Second

// FetchResult is one successful provider draw: the batch and where it
// came from.
type FetchResult struct {
	Quotes []domain.Quote
	Source string
}

// OrchestratorConfig contains dependencies and tuning for an Orchestrator.
type OrchestratorConfig struct {
	// Providers are the candidate sources, in configuration order.
	Providers []ports.QuoteProvider

	// Weights maps provider names to relative selection weights.
	// Providers absent from the map weigh 1. A zero weight benches the
	// provider unless every candidate weighs zero, in which case all
	// are drawn equally.
	Weights map[string]float64

	// Health supplies the status multiplier per provider. Required.
	Health *HealthTracker

	// AttemptTimeout bounds a single provider fetch.
	AttemptTimeout time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.QuoteMetrics

	// Rand returns a draw in [0, 1). Nil means math/rand. Tests inject
	// a deterministic sequence here.
	Rand func() float64
}

// Orchestrator picks providers by weighted random draw and walks the
// candidate set until one delivers. Weights combine the configured
// table with each provider's health multiplier, so a degraded source
// is drawn less and a down source not at all while candidates remain.
type Orchestrator struct {
	providers map[string]ports.QuoteProvider
	order     []string
	health    *HealthTracker
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *telemetry.QuoteMetrics
	rng       func() float64

	mu      sync.RWMutex
	weights map[string]float64
}

// NewOrchestrator creates an Orchestrator. Panics if cfg.Health is nil;
// an empty provider set is allowed and makes every fetch fail over to
// the caller's fallback handling.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Health == nil {
		panic("app: Health is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}

	providers := make(map[string]ports.QuoteProvider, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		name := p.Name()
		if _, dup := providers[name]; dup {
			continue
		}
		providers[name] = p
		order = append(order, name)
	}

	return &Orchestrator{
		providers: providers,
		order:     order,
		health:    cfg.Health,
		timeout:   cfg.AttemptTimeout,
		logger:    cfg.Logger.With(slog.String("component", "orchestrator")),
		metrics:   cfg.Metrics,
		rng:       cfg.Rand,
		weights:   sanitizeWeights(cfg.Weights),
	}
}

// FetchOne draws providers until one returns a batch. A non-empty only
// list restricts candidates to those names; unknown names are ignored.
// Every attempt is recorded against provider health, a failed candidate
// is removed before the next draw, and no source is tried twice. When
// the set is exhausted the error lists what was attempted.
func (o *Orchestrator) FetchOne(ctx context.Context, only []string) (FetchResult, error) {
	candidates := o.candidates(only)
	attempted := make([]string, 0, len(candidates))

	for len(candidates) > 0 {
		// A dead parent context would fail every remaining candidate
		// instantly and smear their health records. Stop instead.
		if ctx.Err() != nil {
			break
		}

		name := o.draw(candidates)
		attempted = append(attempted, name)

		quotes, err := o.attempt(ctx, o.providers[name])
		o.health.RecordResult(name, err == nil)
		if err == nil {
			o.logger.DebugContext(ctx, "provider fetch succeeded",
				slog.String("provider", name),
				slog.Int("quotes", len(quotes)))
			return FetchResult{Quotes: quotes, Source: name}, nil
		}

		o.logger.WarnContext(ctx, "provider fetch failed, trying next candidate",
			slog.String("provider", name),
			slog.Int("remaining", len(candidates)-1),
			slog.Any("error", err))
		candidates = remove(candidates, name)
	}

	return FetchResult{}, domain.NewAllProvidersFailedError(attempted)
}

// attempt runs one bounded fetch and reports its metrics.
func (o *Orchestrator) attempt(ctx context.Context, provider ports.QuoteProvider) ([]domain.Quote, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	quotes, err := provider.FetchQuotes(attemptCtx)
	o.metrics.RecordFetch(ctx, provider.Name(), time.Since(start), err)
	return quotes, err
}

// candidates resolves the working set for one fetch, preserving
// configuration order.
func (o *Orchestrator) candidates(only []string) []string {
	if len(only) == 0 {
		return append([]string(nil), o.order...)
	}
	allowed := make(map[string]bool, len(only))
	for _, name := range only {
		allowed[name] = true
	}
	out := make([]string, 0, len(only))
	for _, name := range o.order {
		if allowed[name] {
			out = append(out, name)
		}
	}
	return out
}

// draw picks one candidate by cumulative weighted draw. Effective
// weight is the configured weight times the health multiplier; if that
// zeroes the whole set, candidates are drawn equally so a fully
// benched set still gets probed rather than starved forever.
func (o *Orchestrator) draw(candidates []string) string {
	o.mu.RLock()
	effective := make([]float64, len(candidates))
	total := 0.0
	for i, name := range candidates {
		weight, ok := o.weights[name]
		if !ok {
			weight = 1
		}
		effective[i] = weight * o.health.Status(name).SelectionMultiplier()
		total += effective[i]
	}
	o.mu.RUnlock()

	if total == 0 {
		for i := range effective {
			effective[i] = 1
		}
		total = float64(len(effective))
	}

	target := o.rng() * total
	cumulative := 0.0
	for i, name := range candidates {
		cumulative += effective[i]
		if target < cumulative {
			return name
		}
	}
	return candidates[len(candidates)-1]
}

// UpdateWeights replaces the active weight table. Negative and NaN
// weights are corrected to zero, matching the config correction policy.
func (o *Orchestrator) UpdateWeights(weights map[string]float64) {
	sanitized := sanitizeWeights(weights)
	o.mu.Lock()
	o.weights = sanitized
	o.mu.Unlock()
}

// Weights returns a copy of the active weight table.
func (o *Orchestrator) Weights() map[string]float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]float64, len(o.weights))
	for name, weight := range o.weights {
		out[name] = weight
	}
	return out
}

// Provider returns the named provider, if configured.
func (o *Orchestrator) Provider(name string) (ports.QuoteProvider, bool) {
	p, ok := o.providers[name]
	return p, ok
}

// Names returns the configured provider names in configuration order.
func (o *Orchestrator) Names() []string {
	return append([]string(nil), o.order...)
}

// Name implements ports.HealthChecker.
func (o *Orchestrator) Name() string {
	return "providers"
}

// Check implements ports.HealthChecker. Sourcing counts as healthy
// while at least one provider is not down; the service still works on
// cache and fallback below that, but readiness should say so.
func (o *Orchestrator) Check(ctx context.Context) error {
	if len(o.order) == 0 {
		return domain.NewProviderError("providers", "readiness", domain.ErrProviderUnavailable)
	}
	for _, name := range o.order {
		if o.health.Status(name) != domain.ProviderDown {
			return nil
		}
	}
	return domain.NewProviderError("providers", "readiness", domain.ErrAllProvidersFailed)
}

func sanitizeWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for name, weight := range weights {
		if weight < 0 || math.IsNaN(weight) {
			weight = 0
		}
		out[name] = weight
	}
	return out
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
