// Package clients provides the instrumented HTTP client used to reach
// upstream quote providers.
package clients

import "errors"

// Sentinel errors for the transport layer. Provider adapters translate
// these into domain errors; nothing above the adapters should see them.
var (
	// ErrCircuitOpen means the breaker refused the call outright. The
	// upstream was never contacted.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded means every attempt in the retry budget
	// failed. The last attempt's error is folded into the message.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
