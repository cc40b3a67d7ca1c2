package telemetry

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/quotedeck/quote-service/internal/platform/logging"
)

const instrumentationName = "github.com/quotedeck/quote-service/telemetry"

// Metrics bundles the server-side HTTP instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics registers the HTTP server instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Latency of handled requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Count of handled requests"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Requests currently in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
	}, nil
}

// TracingMiddleware opens a server span per request. Mount it before
// Middleware so the recorder and the handlers run inside the span.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// Middleware records request metrics and surfaces the active trace to
// the rest of the chain: the X-Trace-ID response header, the trace_id
// gin context key, and a trace_id attribute on the context logger. A
// metric registration failure is reported to the OTel error handler
// and the middleware degrades to trace surfacing only.
func Middleware() gin.HandlerFunc {
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if traceID := spanTraceID(c); traceID != "" {
			c.Header("X-Trace-ID", traceID)
			// The error responder reads this key when stamping envelopes.
			c.Set("trace_id", traceID)
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), traceID))
		}

		if metrics == nil {
			c.Next()
			return
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		}

		metrics.activeRequests.Add(c.Request.Context(), 1, metric.WithAttributes(attrs...))
		start := time.Now()

		c.Next()

		metrics.activeRequests.Add(c.Request.Context(), -1, metric.WithAttributes(attrs...))

		final := append(attrs, attribute.Int("http.status_code", c.Writer.Status()))
		metrics.requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(final...))
		metrics.requestTotal.Add(c.Request.Context(), 1, metric.WithAttributes(final...))
	}
}

// spanTraceID returns the trace ID of the span on the request, or ""
// when no sampled span is present.
func spanTraceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}
