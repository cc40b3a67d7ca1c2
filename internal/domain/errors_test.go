package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrValidation,
		ErrForbidden,
		ErrProviderUnavailable,
		ErrMalformedResponse,
		ErrAllProvidersFailed,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b, "sentinel %v must not match %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "entity and id",
			entity:      "source",
			id:          "quotable",
			expectedMsg: `source with id "quotable" not found`,
		},
		{
			name:        "entity only",
			entity:      "cache entry",
			expectedMsg: "cache entry not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		message     string
		expectedMsg string
	}{
		{
			name:        "field given",
			field:       "date",
			message:     "must be formatted YYYY-MM-DD",
			expectedMsg: "validation failed for date: must be formatted YYYY-MM-DD",
		},
		{
			name:        "field blank",
			message:     "rating out of range",
			expectedMsg: "validation failed: rating out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrValidation)

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
			assert.Equal(t, tt.message, validation.Message)
		})
	}
}

func TestProviderError(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		op          string
		cause       error
		expectedMsg string
	}{
		{
			name:        "with cause",
			source:      "zenquotes",
			op:          "fetch quotes",
			cause:       errors.New("connection refused"),
			expectedMsg: `provider "zenquotes": fetch quotes: connection refused`,
		},
		{
			name:        "without cause",
			source:      "quotable",
			op:          "search",
			cause:       nil,
			expectedMsg: `provider "quotable": search failed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError(tt.source, tt.op, tt.cause)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrProviderUnavailable)

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.source, provErr.Source)
			assert.Equal(t, tt.op, provErr.Op)

			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewParseError("favqs", "decoding quote list", cause)

	assert.Equal(t, `provider "favqs": decoding quote list: unexpected end of JSON input`, err.Error())
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.ErrorIs(t, err, cause)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "favqs", parseErr.Source)

	t.Run("without cause", func(t *testing.T) {
		err := NewParseError("quotable", "missing quote text", nil)

		assert.Equal(t, `provider "quotable": missing quote text`, err.Error())
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestAllProvidersFailedError(t *testing.T) {
	tests := []struct {
		name        string
		attempted   []string
		expectedMsg string
	}{
		{
			name:        "multiple sources",
			attempted:   []string{"quotable", "zenquotes"},
			expectedMsg: "all providers failed: attempted quotable, zenquotes",
		},
		{
			name:        "no candidates",
			attempted:   nil,
			expectedMsg: "all providers failed: no candidates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAllProvidersFailedError(tt.attempted)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrAllProvidersFailed)

			var exhausted *AllProvidersFailedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, tt.attempted, exhausted.Attempted)
		})
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound matches typed error", NewNotFoundError("source", "x"), IsNotFound, true},
		{"IsNotFound matches sentinel", ErrNotFound, IsNotFound, true},
		{"IsNotFound sees through wrapping", fmt.Errorf("lookup: %w", ErrNotFound), IsNotFound, true},
		{"IsNotFound rejects other errors", ErrValidation, IsNotFound, false},
		{"IsNotFound rejects nil", nil, IsNotFound, false},

		{"IsValidation matches typed error", NewValidationError("date", "bad"), IsValidation, true},
		{"IsValidation matches sentinel", ErrValidation, IsValidation, true},
		{"IsValidation rejects other errors", ErrNotFound, IsValidation, false},
		{"IsValidation rejects nil", nil, IsValidation, false},

		{"IsForbidden matches typed error", NewForbiddenError("update weights", "admin only"), IsForbidden, true},
		{"IsForbidden rejects nil", nil, IsForbidden, false},

		{"IsProviderError matches typed error", NewProviderError("zenquotes", "fetch", nil), IsProviderError, true},
		{"IsProviderError matches sentinel", ErrProviderUnavailable, IsProviderError, true},
		{"IsProviderError rejects parse errors", NewParseError("zenquotes", "bad shape", nil), IsProviderError, false},
		{"IsProviderError rejects nil", nil, IsProviderError, false},

		{"IsParseError matches typed error", NewParseError("favqs", "bad shape", nil), IsParseError, true},
		{"IsParseError rejects provider errors", NewProviderError("favqs", "fetch", nil), IsParseError, false},
		{"IsParseError rejects nil", nil, IsParseError, false},

		{"IsAllProvidersFailed matches typed error", NewAllProvidersFailedError([]string{"a"}), IsAllProvidersFailed, true},
		{"IsAllProvidersFailed matches sentinel", ErrAllProvidersFailed, IsAllProvidersFailed, true},
		{"IsAllProvidersFailed rejects other errors", ErrNotFound, IsAllProvidersFailed, false},
		{"IsAllProvidersFailed rejects nil", nil, IsAllProvidersFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	t.Run("deeply wrapped ProviderError", func(t *testing.T) {
		original := NewProviderError("quotable", "fetch quotes", errors.New("dial tcp: timeout"))
		wrapped1 := fmt.Errorf("orchestrator: %w", original)
		wrapped2 := fmt.Errorf("refresh: %w", wrapped1)

		assert.True(t, IsProviderError(wrapped2))

		var provErr *ProviderError
		require.ErrorAs(t, wrapped2, &provErr)
		assert.Equal(t, "quotable", provErr.Source)
	})

	t.Run("deeply wrapped AllProvidersFailedError", func(t *testing.T) {
		original := NewAllProvidersFailedError([]string{"quotable", "zenquotes", "favqs"})
		wrapped := fmt.Errorf("daily fetch: %w", fmt.Errorf("pool refresh: %w", original))

		assert.True(t, IsAllProvidersFailed(wrapped))

		var exhausted *AllProvidersFailedError
		require.ErrorAs(t, wrapped, &exhausted)
		assert.Len(t, exhausted.Attempted, 3)
	})
}
