package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/quotedeck/quote-service/internal/domain"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

const (
	// contextKeyTraceID is the gin context key handlers may use to pin
	// an explicit trace ID for responses.
	contextKeyTraceID = "trace_id"

	// headerRequestID is the fallback trace source when neither the
	// context nor an active span carries one.
	headerRequestID = "X-Request-ID"
)

// GetTraceID resolves the trace ID for a response, in order: explicit
// gin context value, active OpenTelemetry span, X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(contextKeyTraceID); ok {
		if s, ok := v.(string); ok {
			return s
		}

		return ""
	}

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return c.GetHeader(headerRequestID)
}

// MapDomainError maps a domain error to an HTTP status code and error
// response. Unknown errors are mapped to 500 Internal Server Error with
// a generic message so internals never leak to clients.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case domain.IsForbidden(err):
		return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, err.Error())

	case domain.IsAllProvidersFailed(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"quote sources are temporarily unavailable",
		)

	case domain.IsParseError(err):
		return http.StatusBadGateway, NewErrorResponse(
			ErrorCodeBadGateway,
			"a quote source answered with an unusable response",
		)

	case domain.IsProviderError(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"quote source temporarily unavailable",
		)

	default:
		return http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternal,
			"an internal error occurred",
		)
	}
}

// HandleError writes the mapped error response for a domain error.
// Internal errors are logged with their full detail; the client sees
// only the generic envelope.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("internal error",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// AbortWithError is HandleError for middleware: it aborts the handler
// chain after writing the response.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	c.AbortWithStatusJSON(status, resp)
}

// AbortWithErrorCode aborts the handler chain with a specific error code.
// Use for adapter-level failures that have no domain error behind them.
func AbortWithErrorCode(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message).WithTraceID(GetTraceID(c))
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}

// RespondWithValidationErrors writes a 400 response carrying field-level
// validation messages, typically from binding a request DTO.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	resp := NewErrorResponseWithDetails(
		ErrorCodeValidation,
		"request validation failed",
		fieldErrors,
	).WithTraceID(GetTraceID(c))

	c.JSON(http.StatusBadRequest, resp)
}
