package ports

import (
	"context"

	"github.com/quotedeck/quote-service/internal/domain"
)

// QuoteProvider defines the contract for an upstream quote source.
// Adapters implement this interface to integrate with external quote APIs.
//
// Key considerations:
//   - Handle timeouts via context deadline
//   - Map external errors to domain errors (ProviderError, ParseError)
//   - Transform external DTOs to domain.Quote, never leak wire formats
//
//go:generate mockgen -package=ports -destination=mock_providers.go -source=providers.go QuoteProvider,QuoteSearcher
type QuoteProvider interface {
	// Name returns the stable identifier used for weighting, health
	// tracking, and quote attribution.
	Name() string

	// FetchQuotes retrieves a batch of quotes from the upstream source.
	// The implementation should respect context deadlines and cancellation.
	// Returns a domain.ProviderError when the source is unreachable and a
	// domain.ParseError when the response cannot be decoded.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}

// QuoteSearcher is implemented by providers whose upstream API supports
// text search. Providers without search capability simply do not
// implement it; callers discover support via type assertion.
type QuoteSearcher interface {
	QuoteProvider

	// SearchQuotes retrieves quotes matching query from the upstream
	// source. Error semantics match FetchQuotes.
	SearchQuotes(ctx context.Context, query string) ([]domain.Quote, error)
}
