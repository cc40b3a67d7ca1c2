// Package storage provides the persistence backends behind the
// key-value port. All backends satisfy ports.KeyValue and
// ports.HealthChecker; exactly one is active per process, selected by
// configuration.
package storage

import (
	"context"
	"sync"

	"github.com/quotedeck/quote-service/internal/domain"
)

// healthName is the readiness registry entry shared by all backends.
// Only the active backend registers, so the name never collides.
const healthName = "quote-store"

// Memory is an in-process key-value store. State does not survive a
// restart; the default backend for development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements ports.KeyValue.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, domain.NewNotFoundError("entry", key)
	}

	// Copy on the way out; callers may retain and mutate the slice.
	return append([]byte(nil), value...), nil
}

// Set implements ports.KeyValue.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)

	return nil
}

// Delete implements ports.KeyValue. Deleting an absent key is a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

// Name implements ports.HealthChecker.
func (m *Memory) Name() string {
	return healthName
}

// Check implements ports.HealthChecker. An in-process map is always
// reachable.
func (m *Memory) Check(context.Context) error {
	return nil
}
