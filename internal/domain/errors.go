// Business-level failures live here, kept free of transport detail so
// HTTP adapters decide status codes and gRPC adapters could decide
// theirs.
//
// Provider failures deliberately share one fallback treatment: a network
// failure and a malformed response both count against the source's health
// and move the orchestrator to the next candidate. Persistence failures
// never appear here at all - the cache store treats them as cache-absent.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks. The typed errors below unwrap to
// these, so callers can branch on kind without knowing the type.
var (
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks input that breaks a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks an operation the caller may not perform.
	ErrForbidden = errors.New("forbidden")

	// ErrProviderUnavailable indicates a quote source could not be
	// reached or answered outside the success range.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse indicates a quote source answered with a
	// shape the adapter could not translate.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrAllProvidersFailed indicates every candidate source failed
	// within a single orchestrated fetch.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// NotFoundError carries the entity and key a lookup missed.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap ties the typed error to [ErrNotFound].
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError builds a NotFoundError for the given entity and key.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError carries the field and rule an input broke.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap ties the typed error to [ErrValidation].
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue also records the offending value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ForbiddenError carries the refused operation and the reason.
type ForbiddenError struct {
	Operation string
	Reason    string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation %q forbidden: %s", e.Operation, e.Reason)
	}

	return fmt.Sprintf("operation %q forbidden", e.Operation)
}

// Unwrap ties the typed error to [ErrForbidden].
func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// NewForbiddenError builds a ForbiddenError for one operation.
func NewForbiddenError(operation, reason string) error {
	return &ForbiddenError{Operation: operation, Reason: reason}
}

// ProviderError reports a transport-level failure against one source:
// timeout, connection failure, or a non-2xx answer.
type ProviderError struct {
	Source string
	Op     string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %q: %s: %v", e.Source, e.Op, e.Err)
	}

	return fmt.Sprintf("provider %q: %s failed", e.Source, e.Op)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderUnavailable}
	}

	return []error{ErrProviderUnavailable, e.Err}
}

// NewProviderError builds a ProviderError for one source operation.
func NewProviderError(source, op string, err error) error {
	return &ProviderError{Source: source, Op: op, Err: err}
}

// ParseError reports a source answering with an untranslatable shape.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %q: %s: %v", e.Source, e.Reason, e.Err)
	}

	return fmt.Sprintf("provider %q: %s", e.Source, e.Reason)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}

	return []error{ErrMalformedResponse, e.Err}
}

// NewParseError builds a ParseError for one source.
func NewParseError(source, reason string, err error) error {
	return &ParseError{Source: source, Reason: reason, Err: err}
}

// AllProvidersFailedError reports an exhausted candidate set, listing
// every source attempted within the fetch.
type AllProvidersFailedError struct {
	Attempted []string
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempted) == 0 {
		return "all providers failed: no candidates"
	}

	return "all providers failed: attempted " + strings.Join(e.Attempted, ", ")
}

// Unwrap ties the typed error to [ErrAllProvidersFailed].
func (e *AllProvidersFailedError) Unwrap() error {
	return ErrAllProvidersFailed
}

// NewAllProvidersFailedError records which sources were tried.
func NewAllProvidersFailedError(attempted []string) error {
	return &AllProvidersFailedError{Attempted: attempted}
}

// IsNotFound reports whether err marks a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err marks a broken business rule.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden reports whether err marks a refused operation.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsProviderError reports whether err marks a source transport failure.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsParseError reports whether err marks an untranslatable response.
func IsParseError(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsAllProvidersFailed reports whether err marks candidate exhaustion.
func IsAllProvidersFailed(err error) bool {
	return errors.Is(err, ErrAllProvidersFailed)
}
