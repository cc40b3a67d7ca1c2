package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/adapters/http/dto"
	"github.com/quotedeck/quote-service/internal/platform/logging"
)

// Timeout puts a deadline on every request and answers 503 when it
// passes. The handler keeps running on its goroutine; the deadline
// only cancels its context, so handlers must do context-aware work for
// the cutoff to take effect.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithSkipPaths(timeout, nil)
}

// TimeoutWithSkipPaths is Timeout with an exact-match exemption list
// for long-running routes such as bulk imports.
func TimeoutWithSkipPaths(timeout time.Duration, skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// The handler runs on its own goroutine so the deadline can
		// be answered while it is still working.
		done := make(chan struct{})
		go func() {
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				respondTimeout(c, timeout)
			}
		}
	}
}

// SimpleTimeout only sets the context deadline and leaves the response
// to the handler. For handlers that already answer cancellation
// cleanly this avoids racing them for the response writer.
func SimpleTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func respondTimeout(c *gin.Context, timeout time.Duration) {
	traceID := activeTraceID(c)

	logging.FromContext(c.Request.Context()).Warn("request timeout",
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Duration("timeout", timeout),
		slog.String("trace_id", traceID),
	)

	writeErrorEnvelope(c, http.StatusServiceUnavailable,
		dto.ErrorCodeTimeout, "request timeout exceeded", traceID)
}
