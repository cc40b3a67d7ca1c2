package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/quotedeck/quote-service/internal/domain"
)

// FavQs sources quotes from the favqs.com API.
//
// FavQs requires an API key on every request. The key is injected at
// the client layer via [FavQsAuth]; this adapter only knows paths and
// payload shapes.
type FavQs struct {
	base
}

// NewFavQs creates the favqs.com adapter.
func NewFavQs(cfg Config) *FavQs {
	return &FavQs{base: newBase("favqs", cfg)}
}

// FavQsAuth returns an auth function injecting the FavQs API token.
// FavQs uses a non-standard scheme: Authorization: Token token="KEY".
// Wire it into the clients.Config for the FavQs client.
func FavQsAuth(apiKey string) func(*http.Request) {
	header := fmt.Sprintf("Token token=%q", apiKey)

	return func(req *http.Request) {
		req.Header.Set("Authorization", header)
	}
}

// favqsQuote is the external DTO for a single favqs.com quote.
type favqsQuote struct {
	ID     int      `json:"id"`
	Body   string   `json:"body"`
	Author string   `json:"author"`
	Tags   []string `json:"tags"`
}

// favqsPage is the paged envelope around favqs.com quote listings.
type favqsPage struct {
	Page   int          `json:"page"`
	Quotes []favqsQuote `json:"quotes"`
}

// FetchQuotes requests the first page of the quotes listing.
// Implements ports.QuoteProvider.
func (p *FavQs) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	const operation = "fetch quotes"

	body, err := p.get(ctx, "/quotes", operation)
	if err != nil {
		return nil, err
	}

	page, err := decodeJSON[favqsPage](p.Name(), body)
	if err != nil {
		return nil, err
	}

	quotes := p.translate(ctx, page.Quotes)
	if len(quotes) == 0 {
		return nil, domain.NewParseError(p.Name(), "response contained no usable quotes", nil)
	}

	return quotes, nil
}

// SearchQuotes filters the upstream listing by keyword.
// An empty result set is a valid answer, not an error.
// Implements ports.QuoteSearcher.
func (p *FavQs) SearchQuotes(ctx context.Context, query string) ([]domain.Quote, error) {
	const operation = "search quotes"

	body, err := p.get(ctx, "/quotes?filter="+url.QueryEscape(query), operation)
	if err != nil {
		return nil, err
	}

	page, err := decodeJSON[favqsPage](p.Name(), body)
	if err != nil {
		return nil, err
	}

	return p.translate(ctx, page.Quotes), nil
}

// translate converts external DTOs to domain quotes, prefixing the
// numeric upstream IDs and dropping entries that fail the entity
// invariants.
func (p *FavQs) translate(ctx context.Context, dtos []favqsQuote) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(dtos))
	dropped := 0

	for _, dto := range dtos {
		quote := domain.Quote{
			ID:     "favqs-" + strconv.Itoa(dto.ID),
			Text:   dto.Body,
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

	return quotes
}
