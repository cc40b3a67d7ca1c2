package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

// quotableBatchSize is how many quotes one refresh requests. The API
// caps limit at 50; 30 keeps the daily rotation fresh without leaning
// on the cap.
const quotableBatchSize = 30

// Quotable sources quotes from the quotable.io API.
type Quotable struct {
	base
}

// NewQuotable creates the quotable.io adapter.
func NewQuotable(cfg Config) *Quotable {
	return &Quotable{base: newBase("quotable", cfg)}
}

// quotableQuote is the external DTO for a single quotable.io quote.
// Never exposed outside this adapter.
type quotableQuote struct {
	ID      string   `json:"_id"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// quotableSearchPage is the envelope returned by the search endpoint.
type quotableSearchPage struct {
	Count   int             `json:"count"`
	Results []quotableQuote `json:"results"`
}

// FetchQuotes requests a batch of random quotes.
// Implements ports.QuoteProvider.
func (p *Quotable) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	const operation = "fetch quotes"

	body, err := p.get(ctx, fmt.Sprintf("/quotes/random?limit=%d", quotableBatchSize), operation)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeJSON[[]quotableQuote](p.Name(), body)
	if err != nil {
		return nil, err
	}

	quotes := p.translate(ctx, dtos)
	if len(quotes) == 0 {
		return nil, domain.NewParseError(p.Name(), "response contained no usable quotes", nil)
	}

	return quotes, nil
}

// SearchQuotes runs a full-text search against the upstream index.
// An empty result set is a valid answer, not an error.
// Implements ports.QuoteSearcher.
func (p *Quotable) SearchQuotes(ctx context.Context, query string) ([]domain.Quote, error) {
	const operation = "search quotes"

	body, err := p.get(ctx, "/search/quotes?query="+url.QueryEscape(query), operation)
	if err != nil {
		return nil, err
	}

	page, err := decodeJSON[quotableSearchPage](p.Name(), body)
	if err != nil {
		return nil, err
	}

	return p.translate(ctx, page.Results), nil
}

// translate converts external DTOs to domain quotes. Entries failing
// the entity invariants are dropped rather than failing the batch; one
// damaged record should not cost the whole response.
func (p *Quotable) translate(ctx context.Context, dtos []quotableQuote) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(dtos))
	dropped := 0

	for _, dto := range dtos {
		quote := domain.Quote{
			ID:     dto.ID,
			Text:   dto.Content,
			Author: dto.Author,
			Tags:   dto.Tags,
			Source: p.Name(),
		}
		if len(dto.Tags) > 0 {
			quote.Category = strings.ToLower(dto.Tags[0])
		}

		if quote.Validate() != nil {
			dropped++

			continue
		}

		quotes = append(quotes, quote)
	}

	if dropped > 0 {
		p.logger.WarnContext(ctx, "dropped invalid quotes from response",
			slog.String("provider", p.Name()),
			slog.Int("dropped", dropped))
	}

	p.logger.Log(ctx, logging.LevelTrace, "translated external DTOs",
		slog.String("provider", p.Name()),
		slog.Int("quotes", len(quotes)))

	return quotes
}
