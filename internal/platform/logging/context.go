package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger = slog.Default()

// FromContext returns the logger stored in ctx, or the package default
// when ctx is nil or carries no logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return defaultLogger
}

// WithContext returns a child context carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// withIDAttr binds a string attribute onto the context logger and
// stores the enriched logger back in the context.
func withIDAttr(ctx context.Context, key, value string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(slog.String(key, value)))
}

// WithRequestID stamps the request ID onto the context logger so every
// record logged downstream carries it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withIDAttr(ctx, "request_id", requestID)
}

// WithTraceID stamps the trace ID onto the context logger.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withIDAttr(ctx, "trace_id", traceID)
}

// WithCorrelationID stamps the correlation ID onto the context logger.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withIDAttr(ctx, "correlation_id", correlationID)
}

// SetDefault replaces the fallback logger handed out by FromContext and
// mirrors it into the slog package default.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
