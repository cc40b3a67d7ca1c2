// Package ports holds the contracts the application layer calls and
// the adapters implement: quote providers, the key-value store, and
// health checking. Methods take a context first, speak in domain
// types, and fail with domain errors.
package ports

import (
	"context"
)

// KeyValue defines the contract for durable key-value persistence.
// Implementations may use local files, embedded stores, Postgres, or
// plain process memory. The application layer treats every failure from
// this port as a cache miss: a broken store degrades quote freshness,
// it never breaks quote delivery.
//
//go:generate mockgen -package=ports -destination=mock_keyvalue.go -source=keyvalue.go KeyValue
type KeyValue interface {
	// Get returns the value under key, or domain.ErrNotFound when the
	// key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, replacing any previous value.
	// Expiry is not the store's concern; callers that need staleness
	// track a timestamp inside the value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete drops key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
