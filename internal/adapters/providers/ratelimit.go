package providers

import (
	"context"
	"sync"
	"time"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/ports"
)

// WithMinInterval wraps a provider so upstream calls are spaced at
// least interval apart. Concurrent callers queue behind each other; a
// caller whose context expires while queued gets a provider error
// without touching the upstream.
//
// A non-positive interval returns the provider unwrapped. If the
// provider supports search, the wrapper does too; wrapping must not
// hide capabilities the orchestrator discovers by type assertion.
func WithMinInterval(p ports.QuoteProvider, interval time.Duration) ports.QuoteProvider {
	if interval <= 0 {
		return p
	}

	limited := &minIntervalProvider{
		provider: p,
		interval: interval,
		now:      time.Now,
	}

	if searcher, ok := p.(ports.QuoteSearcher); ok {
		return &minIntervalSearcher{minIntervalProvider: limited, searcher: searcher}
	}

	return limited
}

// minIntervalProvider enforces a fixed spacing between calls by
// assigning each caller the next free slot. A cancelled wait still
// burns its slot, so later callers keep the original spacing.
type minIntervalProvider struct {
	provider ports.QuoteProvider
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	next time.Time
}

// Name implements ports.QuoteProvider.
func (p *minIntervalProvider) Name() string {
	return p.provider.Name()
}

// FetchQuotes waits for the next free slot, then delegates.
// Implements ports.QuoteProvider.
func (p *minIntervalProvider) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	return p.provider.FetchQuotes(ctx)
}

// wait blocks until this caller's slot arrives or the context ends.
func (p *minIntervalProvider) wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()

	if now.Before(p.next) {
		delay := p.next.Sub(now)
		p.next = p.next.Add(p.interval)
		p.mu.Unlock()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return domain.NewProviderError(p.provider.Name(), "awaiting rate limit", ctx.Err())
		case <-timer.C:
			return nil
		}
	}

	p.next = now.Add(p.interval)
	p.mu.Unlock()

	return nil
}

// minIntervalSearcher extends the spacing wrapper with search
// delegation for providers that support it.
type minIntervalSearcher struct {
	*minIntervalProvider
	searcher ports.QuoteSearcher
}

// SearchQuotes waits for the next free slot, then delegates.
// Searches share the same budget as fetches; the upstream counts both.
// Implements ports.QuoteSearcher.
func (p *minIntervalSearcher) SearchQuotes(ctx context.Context, query string) ([]domain.Quote, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	return p.searcher.SearchQuotes(ctx, query)
}
