package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/platform/logging"
)

const (
	// HeaderCorrelationID names the cross-service transaction ID
	// header. A request ID is scoped to one request; the correlation
	// ID follows a business transaction across every service it
	// touches.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyCorrelationID is the gin context key the correlation
	// ID is cached under.
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID propagates an inbound X-Correlation-ID or mints one
// when this service is the transaction origin. Like RequestID, the ID
// is echoed on the response, cached on the gin context, and bound to
// both the request context and the context logger.
func CorrelationID() gin.HandlerFunc {
	return traceHeader(identityHeader{
		header:    HeaderCorrelationID,
		ginKey:    ContextKeyCorrelationID,
		enrichers: []idEnricher{ContextWithCorrelationID, logging.WithCorrelationID},
	})
}

// GetCorrelationID returns the correlation ID cached on the gin
// context, or "" when the middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}

// MustGetCorrelationID is GetCorrelationID with an "unknown"
// placeholder for the absent case.
func MustGetCorrelationID(c *gin.Context) string {
	if id := GetCorrelationID(c); id != "" {
		return id
	}

	return "unknown"
}
