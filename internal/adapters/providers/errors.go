package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quotedeck/quote-service/internal/adapters/clients"
	"github.com/quotedeck/quote-service/internal/domain"
)

// maxErrorBodyBytes bounds how much of an error response is read for
// the failure message. Upstream error pages can be arbitrarily large.
const maxErrorBodyBytes = 512

// mapTransportError translates a client-level failure into a provider
// error. Circuit-open and retries-exhausted arrive pre-classified from
// the clients package and stay inspectable through the error chain.
func mapTransportError(source, operation string, err error) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewProviderError(source, operation, clients.ErrCircuitOpen)

	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewProviderError(source, operation, fmt.Errorf("timed out: %w", err))

	default:
		return domain.NewProviderError(source, operation, err)
	}
}

// mapStatusError translates a non-2xx answer into a provider error,
// carrying a bounded snippet of the response body for diagnostics.
// The body is consumed but not closed; the caller owns it.
func mapStatusError(source, operation string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	detail := strings.TrimSpace(string(snippet))
	if detail == "" {
		return domain.NewProviderError(source, operation, fmt.Errorf("status %d", resp.StatusCode))
	}

	return domain.NewProviderError(source, operation, fmt.Errorf("status %d: %s", resp.StatusCode, detail))
}
