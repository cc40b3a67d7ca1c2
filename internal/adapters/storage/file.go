package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/quotedeck/quote-service/internal/domain"
)

// filePerm is the mode for the persisted snapshot and its directory.
const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// File is a key-value store persisted as a single JSON document. The
// in-process map is authoritative; every write rewrites the file via a
// temp file and rename so a crash never leaves a half-written snapshot.
//
// Values are arbitrary bytes; encoding/json base64-encodes them inside
// the document. A single process owns the file.
type File struct {
	path string

	mu   sync.RWMutex
	data map[string][]byte
}

// NewFile creates a file-backed store at path, loading any existing
// snapshot. A missing file starts empty. A snapshot that fails to
// decode also starts empty: persisted state that cannot be read is
// treated as absent, not fatal.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	store := &File{
		path: path,
		data: make(map[string][]byte),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}

		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &store.data); err != nil {
		store.data = make(map[string][]byte)
	}

	return store, nil
}

// Get implements ports.KeyValue.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.data[key]
	if !ok {
		return nil, domain.NewNotFoundError("entry", key)
	}

	return append([]byte(nil), value...), nil
}

// Set implements ports.KeyValue.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = append([]byte(nil), value...)

	return f.persistLocked()
}

// Delete implements ports.KeyValue. Deleting an absent key is a no-op
// and does not rewrite the snapshot.
func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}

	delete(f.data, key)

	return f.persistLocked()
}

// persistLocked writes the full snapshot atomically. Callers hold the
// write lock.
func (f *File) persistLocked() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, filePerm); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (f *File) Name() string {
	return healthName
}

// Check implements ports.HealthChecker. Verifies the snapshot
// directory still exists; a full write probe on every readiness poll
// would churn the disk for no signal.
func (f *File) Check(context.Context) error {
	info, err := os.Stat(filepath.Dir(f.path))
	if err != nil {
		return fmt.Errorf("storage directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage path %s is not a directory", filepath.Dir(f.path))
	}

	return nil
}
