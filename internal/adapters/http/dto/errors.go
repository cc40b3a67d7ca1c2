// Package dto carries the request and response shapes of the HTTP API,
// their validation, and the domain-error-to-status mapping.
package dto

import "net/http"

// ErrorResponse is the envelope every error leaves the API in.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail is the payload inside the envelope: a machine-readable
// code, a human-readable message, and optional field-level detail for
// validation failures.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Machine-readable error codes. Clients branch on these, so they are
// part of the API contract.
const (
	ErrorCodeNotFound     = "NOT_FOUND"
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeForbidden    = "FORBIDDEN"
	ErrorCodeUnauthorized = "UNAUTHORIZED"

	// ErrorCodeUnavailable covers quote source outages, including the
	// case where every source is down.
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"

	// ErrorCodeBadGateway covers quote sources answering with payloads
	// the service cannot use.
	ErrorCodeBadGateway = "BAD_GATEWAY"

	ErrorCodeInternal   = "INTERNAL_ERROR"
	ErrorCodeTimeout    = "TIMEOUT"
	ErrorCodeBadRequest = "BAD_REQUEST"
)

// statusByCode maps error codes onto HTTP statuses. Codes not listed
// here fall back to 500.
var statusByCode = map[string]int{
	ErrorCodeNotFound:     http.StatusNotFound,
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeBadRequest:   http.StatusBadRequest,
	ErrorCodeForbidden:    http.StatusForbidden,
	ErrorCodeUnauthorized: http.StatusUnauthorized,
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeBadGateway:   http.StatusBadGateway,
	ErrorCodeTimeout:      http.StatusGatewayTimeout,
	ErrorCodeInternal:     http.StatusInternalServerError,
}

// NewErrorResponse builds an envelope from a code and message.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails builds an envelope carrying field-level
// detail alongside the message.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithTraceID stamps the trace ID and returns the same envelope so the
// call chains.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode resolves the HTTP status an error code travels
// under.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
