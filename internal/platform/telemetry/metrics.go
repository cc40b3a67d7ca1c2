package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QuoteMetrics holds instruments for the quote sourcing pipeline.
// All recording methods are nil-safe so callers can hold a nil
// *QuoteMetrics when telemetry is disabled.
type QuoteMetrics struct {
	fetchTotal    metric.Int64Counter
	fetchDuration metric.Float64Histogram
	servedTotal   metric.Int64Counter
	cacheEvents   metric.Int64Counter
}

// NewQuoteMetrics creates the quote pipeline instruments.
func NewQuoteMetrics() (*QuoteMetrics, error) {
	meter := otel.Meter(instrumentationName)

	fetchTotal, err := meter.Int64Counter(
		"quotes.provider.fetch.total",
		metric.WithDescription("Provider fetch attempts by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"quotes.provider.fetch.duration",
		metric.WithDescription("Provider fetch attempt duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	servedTotal, err := meter.Int64Counter(
		"quotes.served.total",
		metric.WithDescription("Quotes served by originating source"),
	)
	if err != nil {
		return nil, err
	}

	cacheEvents, err := meter.Int64Counter(
		"quotes.cache.events",
		metric.WithDescription("Cache store events (hit, miss, stale, write_failed)"),
	)
	if err != nil {
		return nil, err
	}

	return &QuoteMetrics{
		fetchTotal:    fetchTotal,
		fetchDuration: fetchDuration,
		servedTotal:   servedTotal,
		cacheEvents:   cacheEvents,
	}, nil
}

// RecordFetch records one provider fetch attempt.
func (m *QuoteMetrics) RecordFetch(ctx context.Context, provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	}

	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.fetchDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordServed records a quote delivery attributed to its source.
func (m *QuoteMetrics) RecordServed(ctx context.Context, source string) {
	if m == nil {
		return
	}

	m.servedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)))
}

// RecordCacheEvent records a cache store event.
func (m *QuoteMetrics) RecordCacheEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}

	m.cacheEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", event)))
}
