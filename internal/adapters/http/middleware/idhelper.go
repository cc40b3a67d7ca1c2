package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// idEnricher binds an identifier to a request context.
type idEnricher func(ctx context.Context, id string) context.Context

// identityHeader describes one traced identifier: the header it rides
// on, the gin context key it is cached under, and the enrichers that
// bind it to the request context.
type identityHeader struct {
	header    string
	ginKey    string
	enrichers []idEnricher
}

// traceHeader builds the middleware for one identity header. The
// inbound value is honored when present and minted as a UUID when not;
// either way the same ID is echoed on the response, cached on the gin
// context, and threaded through every enricher.
func traceHeader(spec identityHeader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(spec.header)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(spec.ginKey, id)
		c.Header(spec.header, id)

		ctx := c.Request.Context()
		for _, enrich := range spec.enrichers {
			ctx = enrich(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// getIDFromContext returns the string cached under key on the gin
// context, or "" when absent or not a string.
func getIDFromContext(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}

	return ""
}
