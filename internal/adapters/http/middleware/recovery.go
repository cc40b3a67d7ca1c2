package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/quotedeck/quote-service/internal/adapters/http/dto"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

// Recovery turns handler panics into 500 responses with the standard
// error envelope. It mounts first so everything behind it is covered.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return RecoveryWithWriter(logger, nil)
}

// RecoveryWithWriter is Recovery with a hook that receives the panic
// value and captured stack, for routing stacks to a crash dump or an
// alerting sink.
func RecoveryWithWriter(logger *slog.Logger, stackHandler func(err any, stack []byte)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			stack := debug.Stack()
			if stackHandler != nil {
				stackHandler(r, stack)
			}

			traceID := activeTraceID(c)

			logging.FromContext(c.Request.Context()).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(stack)),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			writeErrorEnvelope(c, http.StatusInternalServerError,
				dto.ErrorCodeInternal, "an internal error occurred", traceID)
		}()

		c.Next()
	}
}

// activeTraceID returns the trace ID of the span on the request, or ""
// when no span is recording.
func activeTraceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// writeErrorEnvelope aborts with the standard error body. When the
// response already started streaming only the abort is possible.
func writeErrorEnvelope(c *gin.Context, status int, code, message, traceID string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}

	resp := dto.NewErrorResponse(code, message)
	if traceID != "" {
		resp.TraceID = traceID
	}

	c.AbortWithStatusJSON(status, resp)
}
