package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/quotedeck/quote-service/internal/adapters/http/middleware"
	"github.com/quotedeck/quote-service/internal/platform/config"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

const (
	// instrumentationName names the OpenTelemetry tracer and meter.
	instrumentationName = "github.com/quotedeck/quote-service/internal/adapters/clients"

	// jitterShare is how far backoff may drift from its computed value,
	// as a fraction in either direction.
	jitterShare = 0.25

	// defaultTimeout applies when no per-attempt timeout is configured.
	defaultTimeout = 30 * time.Second

	// Connection pool fallbacks for zero-valued transport config.
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// Config wires one upstream endpoint into a Client.
type Config struct {
	// BaseURL is prepended to every request path, e.g.
	// "https://api.quotable.io".
	BaseURL string

	// ServiceName names the upstream in logs, traces, and metrics.
	ServiceName string

	// Timeout bounds a single attempt. Wall-clock time for a call can
	// exceed it once retries and backoff are added.
	Timeout time.Duration

	// Retry sets the attempt budget and backoff curve.
	Retry config.RetryConfig

	// Circuit sets the breaker thresholds.
	Circuit config.CircuitBreakerConfig

	// Transport sets the connection pool. Zero fields take the package
	// defaults.
	Transport config.TransportConfig

	// AuthFunc, when set, stamps credentials onto every attempt,
	// retries included.
	AuthFunc func(*http.Request)

	// Logger receives client lifecycle records. Nil falls back to the
	// process default.
	Logger *slog.Logger
}

// Client wraps http.Client with the full upstream-call treatment:
// retries with jittered exponential backoff, a circuit breaker, trace
// and metric emission, and request/correlation ID propagation.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	cfg         *Config
	logger      *slog.Logger
	cb          *CircuitBreaker

	tracer trace.Tracer
	meter  metric.Meter

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New builds a Client for one upstream endpoint.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "upstream_client"),
		slog.String("provider", cfg.ServiceName),
	)

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   cfg.Circuit.MaxFailures,
		Timeout:       cfg.Circuit.Timeout,
		HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
	})
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, requestTotal, err := newRequestMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: poolTransport(cfg.Transport),
		},
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName:     cfg.ServiceName,
		cfg:             cfg,
		logger:          logger,
		cb:              cb,
		tracer:          otel.Tracer(instrumentationName),
		meter:           meter,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// newRequestMetrics registers the two per-request instruments.
func newRequestMetrics(meter metric.Meter) (metric.Float64Histogram, metric.Int64Counter, error) {
	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Latency of upstream provider requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building request duration histogram: %w", err)
	}

	total, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Count of upstream provider requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building request counter: %w", err)
	}

	return duration, total, nil
}

// poolTransport builds the connection pool, filling zero fields with
// the package defaults.
func poolTransport(cfg config.TransportConfig) *http.Transport {
	tr := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	if tr.MaxIdleConns <= 0 {
		tr.MaxIdleConns = defaultMaxIdleConns
	}
	if tr.MaxIdleConnsPerHost <= 0 {
		tr.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if tr.IdleConnTimeout <= 0 {
		tr.IdleConnTimeout = defaultIdleConnTimeout
	}

	return tr
}

// Do executes req with retry, breaker, tracing, and logging applied.
//
// Retries rewind the request via req.GetBody. Bodyless requests (GET,
// DELETE) always retry cleanly; for POST/PUT either ensure GetBody is
// set or keep MaxAttempts at 1.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("provider", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.observe(ctx, req.Method, 0, time.Since(startTime), "circuit_open")
		logger.Warn("circuit open, request refused")
		return nil, ErrCircuitOpen
	}

	c.stampHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, c.serviceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, lastErr := c.runAttempts(ctx, req, logger, startTime)

	return c.settle(ctx, req, resp, lastErr, span, logger, startTime)
}

// runAttempts drives the retry loop until an attempt succeeds, a
// non-retryable failure appears, or the budget runs out.
func (c *Client) runAttempts(ctx context.Context, req *http.Request, logger *slog.Logger, startTime time.Time) (*http.Response, error) {
	var (
		resp    *http.Response
		lastErr error
	)

	for attempt := 0; attempt < c.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.pauseBeforeRetry(ctx, req, attempt, logger, startTime); err != nil {
				return nil, err
			}
		}

		resp, lastErr = c.http.Do(req.WithContext(ctx))

		retry, attemptErr := c.classifyAttempt(resp, lastErr, attempt, logger)
		if retry {
			lastErr = attemptErr
			continue
		}

		if lastErr != nil {
			break
		}

		return resp, nil
	}

	return nil, lastErr
}

// pauseBeforeRetry sleeps out the backoff, bailing when the context
// ends first. Credentials are re-stamped after the pause in case the
// auth source rotated them.
func (c *Client) pauseBeforeRetry(ctx context.Context, req *http.Request, attempt int, logger *slog.Logger, startTime time.Time) error {
	backoff := c.calculateBackoff(attempt)
	logger.Debug("backing off before retry",
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	select {
	case <-ctx.Done():
		c.cb.RecordFailure()
		c.observe(ctx, req.Method, 0, time.Since(startTime), "context_canceled")
		return ctx.Err()
	case <-time.After(backoff):
	}

	if c.cfg.AuthFunc != nil {
		c.cfg.AuthFunc(req)
	}

	return nil
}

// classifyAttempt decides whether one attempt's outcome warrants
// another try. Server errors (5xx) count as retryable; their bodies
// are drained here since the response never leaves the loop.
func (c *Client) classifyAttempt(resp *http.Response, err error, attempt int, logger *slog.Logger) (bool, error) {
	if err != nil {
		if isRetryableError(err) {
			logger.Debug("attempt failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			return true, err
		}

		return false, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Debug("upstream returned server error",
			slog.Int("attempt", attempt+1),
			slog.Int("status", resp.StatusCode),
		)
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug("closing response body failed", slog.Any("error", closeErr))
		}

		return true, fmt.Errorf("server error: %d", resp.StatusCode)
	}

	return false, nil
}

// settle books the final outcome into the breaker, span, metrics, and
// log, then hands the caller the response or the wrapped error.
func (c *Client) settle(ctx context.Context, req *http.Request, resp *http.Response, lastErr error, span trace.Span, logger *slog.Logger, startTime time.Time) (*http.Response, error) {
	duration := time.Since(startTime)

	if lastErr != nil {
		c.cb.RecordFailure()
		span.SetStatus(codes.Error, lastErr.Error())
		c.observe(ctx, req.Method, 0, duration, "error")
		logger.Error("upstream request failed",
			slog.Duration("duration", duration),
			slog.Any("error", lastErr),
		)

		return nil, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.observe(ctx, req.Method, resp.StatusCode, duration, statusClass(resp.StatusCode))

	logger.Debug("upstream request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// Get issues a GET against path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body against path.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body against path.
func (c *Client) Put(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.send(ctx, http.MethodDelete, path, nil)
}

// send builds the request for one of the verb helpers and runs it
// through Do. POST and PUT bodies are declared as JSON.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	switch method {
	case http.MethodPost, http.MethodPut:
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(ctx, req)
}

// CircuitState exposes the breaker state for health reporting.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

// BaseURL returns the configured base URL without a trailing slash.
// Adapters that build requests themselves pair this with [Client.Do].
func (c *Client) BaseURL() string {
	return c.baseURL
}

// stampHeaders carries the caller's request and correlation IDs to the
// upstream and applies credentials.
func (c *Client) stampHeaders(ctx context.Context, req *http.Request) {
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}

	if c.cfg.AuthFunc != nil {
		c.cfg.AuthFunc(req)
	}
}

// buildURL joins the base URL and path with exactly one slash between.
func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// calculateBackoff grows the pause exponentially per attempt, caps it
// at the configured ceiling, then spreads it by the jitter share so
// synchronized retries fan out.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.cfg.Retry.InitialInterval) * math.Pow(c.cfg.Retry.Multiplier, float64(attempt))
	backoff = min(backoff, float64(c.cfg.Retry.MaxInterval))

	// spread lands in [-1, 1)
	spread := (rand.Float64() - 0.5) * 2

	return time.Duration(backoff * (1 + jitterShare*spread))
}

// observe books one request outcome into both metrics.
func (c *Client) observe(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// statusClass folds a status code into its metrics bucket: 2xx, 4xx, 5xx.
func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// isRetryableError separates transient transport failures from ones a
// retry cannot fix. Context ends are final; network timeouts and
// connection-level failures (refused, reset) are worth another try.
func isRetryableError(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
