package providers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andybalholm/brotli"

	"github.com/quotedeck/quote-service/internal/adapters/clients"
	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

// acceptedEncodings lists the response codings the shared plumbing can
// reverse. Advertising them explicitly disables the transport's own
// gzip handling, so decompression happens in one visible place.
const acceptedEncodings = "gzip, br"

// Config contains the dependencies shared by every provider adapter.
type Config struct {
	// Client is the instrumented HTTP client. Its BaseURL must point at
	// the provider's API root.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// base carries the plumbing shared by the provider adapters: request
// execution, response decompression, and error mapping. Adapters embed
// it and keep only translation logic of their own.
type base struct {
	name   string
	client *clients.Client
	logger *slog.Logger
}

// newBase creates the shared adapter core.
// Panics if cfg.Client is nil. Defaults logger to slog.Default() if nil.
func newBase(name string, cfg Config) base {
	if cfg.Client == nil {
		panic("providers: Client is required for " + name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return base{
		name:   name,
		client: cfg.Client,
		logger: logger,
	}
}

// Name identifies the source. The same string appears on quotes this
// adapter produces, in health snapshots, and as the provider's key in
// configuration.
func (b *base) Name() string {
	return b.name
}

// get performs a GET against the provider and returns the decompressed
// response body on a 2xx answer. Every other outcome comes back as a
// domain error; the caller never sees transport detail.
func (b *base) get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	b.logger.Log(ctx, logging.LevelTrace, "starting request",
		slog.String("provider", b.name),
		slog.String("path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.client.BaseURL()+path, http.NoBody)
	if err != nil {
		return nil, domain.NewProviderError(b.name, operation, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptedEncodings)

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, mapTransportError(b.name, operation, err)
	}

	b.logger.Log(ctx, logging.LevelTrace, "request complete",
		slog.String("provider", b.name),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, mapStatusError(b.name, operation, resp)
	}

	return decompressedBody(b.name, resp)
}

// decompressedBody wraps the response body according to its declared
// Content-Encoding. The returned reader yields the plain payload and
// closes the network body when closed.
func decompressedBody(source string, resp *http.Response) (io.ReadCloser, error) {
	switch encoding := resp.Header.Get("Content-Encoding"); encoding {
	case "", "identity":
		return resp.Body, nil

	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()

			return nil, domain.NewParseError(source, "opening gzip stream", err)
		}

		return &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil

	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil

	default:
		_ = resp.Body.Close()

		return nil, domain.NewParseError(source, "unsupported content encoding "+strconv.Quote(encoding), nil)
	}
}

// decodedBody pairs a decompressing reader with the closers that
// release the underlying connection.
type decodedBody struct {
	io.Reader
	closers []io.Closer
}

// Close closes every underlying resource, returning the first error.
func (b *decodedBody) Close() error {
	var first error

	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// decodeJSON decodes the response payload into T and closes the body.
// Any failure is a parse error attributed to the named source.
func decodeJSON[T any](source string, body io.ReadCloser) (T, error) {
	defer func() { _ = body.Close() }()

	var out T
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		var zero T

		return zero, domain.NewParseError(source, "decoding response", err)
	}

	return out, nil
}
