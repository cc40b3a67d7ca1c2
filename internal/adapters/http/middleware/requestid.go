// Package middleware carries the gin middleware chain: panic recovery,
// request and correlation IDs, access logging, per-request deadlines,
// and the header-driven auth guards.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/platform/logging"
)

const (
	// HeaderRequestID names the per-request ID header.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key the request ID is
	// cached under.
	ContextKeyRequestID = "request_id"
)

// RequestID accepts an inbound X-Request-ID or mints one, echoes it on
// the response, and binds it to both the request context (for outbound
// propagation) and the context logger.
func RequestID() gin.HandlerFunc {
	return traceHeader(identityHeader{
		header:    HeaderRequestID,
		ginKey:    ContextKeyRequestID,
		enrichers: []idEnricher{ContextWithRequestID, logging.WithRequestID},
	})
}

// GetRequestID returns the request ID cached on the gin context, or ""
// when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}

// MustGetRequestID is GetRequestID with an "unknown" placeholder for
// the absent case, for callers that always want something to log.
func MustGetRequestID(c *gin.Context) string {
	if id := GetRequestID(c); id != "" {
		return id
	}

	return "unknown"
}
