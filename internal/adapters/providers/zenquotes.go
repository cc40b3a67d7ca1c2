package providers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/quotedeck/quote-service/internal/domain"
)

// ZenQuotes sources quotes from the zenquotes.io API.
//
// The API ships no identifiers, so the adapter derives a stable ID by
// hashing author and text. The same quotation maps to the same ID
// across fetches and restarts, which keeps deduplication and analytics
// keyed consistently.
type ZenQuotes struct {
	base
}

// NewZenQuotes creates the zenquotes.io adapter.
func NewZenQuotes(cfg Config) *ZenQuotes {
	return &ZenQuotes{base: newBase("zenquotes", cfg)}
}

// zenQuote is the external DTO for a single zenquotes.io quote.
type zenQuote struct {
	Text   string `json:"q"`
	Author string `json:"a"`
}

// throttleAuthor is the pseudo-author ZenQuotes stamps on its in-band
// throttling notice. The API answers 200 with a single fake quote
// instead of a 429 when the free-tier window is exhausted.
const throttleAuthor = "zenquotes.io"

// FetchQuotes requests the batch quotes endpoint.
// Implements ports.QuoteProvider.
func (p *ZenQuotes) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	const operation = "fetch quotes"

	body, err := p.get(ctx, "/quotes", operation)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeJSON[[]zenQuote](p.Name(), body)
	if err != nil {
		return nil, err
	}

	if len(dtos) == 1 && dtos[0].Author == throttleAuthor {
		return nil, domain.NewProviderError(p.Name(), operation,
			errors.New("rate limited: "+strings.TrimSpace(dtos[0].Text)))
	}

	quotes := p.translate(ctx, dtos)
	if len(quotes) == 0 {
		return nil, domain.NewParseError(p.Name(), "response contained no usable quotes", nil)
	}

	return quotes, nil
}

// translate converts external DTOs to domain quotes, deriving IDs and
// dropping entries that fail the entity invariants.
func (p *ZenQuotes) translate(ctx context.Context, dtos []zenQuote) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(dtos))
	dropped := 0

	for _, dto := range dtos {
		quote := domain.Quote{
			ID:     zenQuoteID(dto.Author, dto.Text),
			Text:   dto.Text,
			Author: dto.Author,
			Source: p.Name(),
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

// zenQuoteID derives a stable identifier from author and text.
// FNV-1a is stable across process restarts, unlike map iteration or
// runtime hash seeds, so the same quotation always gets the same ID.
func zenQuoteID(author, text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(author))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))

	return fmt.Sprintf("zq-%016x", h.Sum64())
}
