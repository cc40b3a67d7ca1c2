// Package domain contains core business entities and rules.
package domain

import "time"

// Quote represents a quotation with its author.
// This is a domain entity - it has no knowledge of external systems.
// A Quote is immutable once handed to a caller; producers stamp every
// field up front and consumers receive copies.
type Quote struct {
	// ID is the unique identifier for this quote.
	ID string

	// Text is the quotation itself. Never empty for a valid quote.
	Text string

	// Author is who said or wrote the quote. Never empty for a valid quote.
	Author string

	// Category is an optional single classification (e.g. "motivation").
	Category string

	// Tags are optional themes associated with the quote.
	Tags []string

	// Source names the provider that supplied the quote, or "fallback"
	// for the embedded set. Optional.
	Source string

	// CreatedAt is when the quote entered the system. Optional.
	CreatedAt time.Time
}

// Validate reports whether the quote satisfies the entity invariants.
func (q Quote) Validate() error {
	if q.ID == "" {
		return NewValidationError("id", "cannot be empty")
	}

	if q.Text == "" {
		return NewValidationError("text", "cannot be empty")
	}

	if q.Author == "" {
		return NewValidationError("author", "cannot be empty")
	}

	return nil
}

// Equal reports whether two quotes identify the same quotation.
// Equality is by identifier only; text revisions upstream do not
// produce a distinct quote.
func (q Quote) Equal(other Quote) bool {
	return q.ID == other.ID
}

// Clone returns a deep copy safe to hand across a boundary.
func (q Quote) Clone() Quote {
	out := q
	if q.Tags != nil {
		out.Tags = append([]string(nil), q.Tags...)
	}

	return out
}

// CloneQuotes deep-copies a slice of quotes, preserving order.
func CloneQuotes(quotes []Quote) []Quote {
	if quotes == nil {
		return nil
	}

	out := make([]Quote, len(quotes))
	for i, q := range quotes {
		out[i] = q.Clone()
	}

	return out
}

// DedupQuotes removes quotes sharing an identifier, keeping the first
// occurrence and preserving order.
func DedupQuotes(quotes []Quote) []Quote {
	if len(quotes) == 0 {
		return quotes
	}

	seen := make(map[string]struct{}, len(quotes))
	out := quotes[:0:0]

	for _, q := range quotes {
		if _, ok := seen[q.ID]; ok {
			continue
		}

		seen[q.ID] = struct{}{}
		out = append(out, q)
	}

	return out
}
