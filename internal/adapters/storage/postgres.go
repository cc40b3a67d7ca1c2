package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/quotedeck/quote-service/internal/domain"
)

// Postgres is a key-value store backed by a single Postgres table.
// Keys are few and values are opaque JSON blobs, so one table with an
// upsert covers the whole port.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle. The caller owns the
// handle's lifecycle; call EnsureSchema before first use.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens a connection pool for the given DSN and verifies
// connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the backing table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	if _, err := p.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("creating kv_entries: %w", err)
	}

	return nil
}

// Get implements ports.KeyValue.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	if err := p.db.QueryRowContext(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("entry", key)
		}

		return nil, fmt.Errorf("selecting %s: %w", key, err)
	}

	return value, nil
}

// Set implements ports.KeyValue.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	if _, err := p.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("upserting %s: %w", key, err)
	}

	return nil
}

// Delete implements ports.KeyValue. Deleting an absent key is a no-op.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_entries WHERE key = $1`

	if _, err := p.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (p *Postgres) Name() string {
	return healthName
}

// Check implements ports.HealthChecker.
func (p *Postgres) Check(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
