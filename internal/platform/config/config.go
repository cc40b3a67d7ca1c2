// Package config loads and checks the layered service configuration:
// koanf defaults, optional YAML files under configs/, then APP_-prefixed
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Fallbacks the correction policy substitutes for broken tuning knobs.
// Boot-time defaults for everything else live in the defaults() map and
// fail fast in Validate when out of range.
const (
	defaultCacheMaxAge    = 24 * time.Hour
	defaultAttemptTimeout = 3 * time.Second
	defaultRefreshTimeout = 20 * time.Second
	defaultBulkMax        = 50
	defaultFilePath       = "./data/quotes.json"
)

// Config is the root of the configuration tree, one field per file section.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Quotes    QuotesConfig    `koanf:"quotes"    validate:"required"`
	Providers ProvidersConfig `koanf:"providers" validate:"required"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
}

// AppConfig identifies the service instance.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig tunes the HTTP listener and the request body cap.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig selects the level and handler format for the slog stack.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig drives the optional rotating file sink.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig points the OTLP exporters at a collector.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// AuthConfig names the identity headers trusted from the gateway.
// Blank fields fall back to the middleware's X-User-* defaults.
type AuthConfig struct {
	SubjectHeader string `koanf:"subject_header"`
	RolesHeader   string `koanf:"roles_header"`
	ScopesHeader  string `koanf:"scopes_header"`
}

// ClientConfig tunes the outbound HTTP client shared by the quote providers.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig shapes the exponential backoff on provider calls.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig sets the failure threshold and recovery probe
// for outbound calls.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig sizes the connection pool under the shared client.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// QuotesConfig contains settings for the quote sourcing core.
// Values here follow the correction policy rather than fail-fast
// validation: Normalize clamps anything out of range to a safe default
// so a bad knob degrades tuning, never startup. See Normalize.
type QuotesConfig struct {
	// CacheEnabled toggles the persisted quote cache. When false every
	// cached batch counts as stale, so reads fall through to refresh.
	CacheEnabled bool `koanf:"cache_enabled"`

	// CacheMaxAge is the age after which a cached batch is stale.
	// Stale batches are still served; staleness only triggers refresh.
	CacheMaxAge time.Duration `koanf:"cache_max_age"`

	// AttemptTimeout bounds a single provider fetch attempt.
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`

	// RefreshTimeout bounds a whole refresh cycle across all candidates.
	RefreshTimeout time.Duration `koanf:"refresh_timeout"`

	// BulkMax caps the count of a single bulk request.
	BulkMax int `koanf:"bulk_max"`

	// Categories is an allow-list applied to fetched batches. Empty
	// means no filtering. Quotes without a category always pass.
	Categories []string `koanf:"categories"`
}

// ProvidersConfig contains per-provider settings for upstream quote sources.
type ProvidersConfig struct {
	Quotable  ProviderConfig `koanf:"quotable"`
	ZenQuotes ProviderConfig `koanf:"zenquotes"`
	FavQs     ProviderConfig `koanf:"favqs"`
}

// ProviderConfig contains settings for a single upstream quote source.
// Weight follows the correction policy (see Normalize); the rest is
// validated fail-fast like any endpoint config.
type ProviderConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url" validate:"required_if=Enabled true,omitempty,url"`

	// Weight is the relative selection weight. Zero excludes the
	// provider from the weighted draw unless every weight is zero, in
	// which case all enabled providers are drawn equally.
	Weight float64 `koanf:"weight"`

	// MinInterval is the minimum gap between requests to this provider.
	// Zero disables client-side rate limiting.
	MinInterval time.Duration `koanf:"min_interval"`

	// APIKey authenticates against providers that require it (FavQs).
	APIKey string `koanf:"api_key"`
}

// StorageConfig selects and configures the quote cache persistence backend.
type StorageConfig struct {
	// Backend selects the key-value store implementation.
	Backend string `koanf:"backend" validate:"required,oneof=memory file postgres"`

	File     FileStorageConfig     `koanf:"file"`
	Postgres PostgresStorageConfig `koanf:"postgres"`
}

// FileStorageConfig contains settings for the file-backed store.
type FileStorageConfig struct {
	Path string `koanf:"path"`
}

// PostgresStorageConfig contains settings for the Postgres-backed store.
type PostgresStorageConfig struct {
	DSN string `koanf:"dsn"`
}

// defaults seeds every key, so the YAML files and the environment only
// ever carry overrides.
func defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":        "quote-service",
			"version":     "dev",
			"environment": "local",
		},
		"server": map[string]any{
			"port":             8080,
			"host":             "0.0.0.0",
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
			"max_request_size": 1 << 20,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
			"file": map[string]any{
				"enabled":     false,
				"path":        "./logs/app.log",
				"max_size":    100,
				"max_backups": 3,
				"max_age":     28,
				"compress":    true,
			},
		},
		"telemetry": map[string]any{
			"enabled":       false,
			"endpoint":      "",
			"service_name":  "quote-service",
			"sampling_rate": 1.0,
		},
		"auth": map[string]any{
			"subject_header": "X-User-ID",
			"roles_header":   "X-User-Roles",
			"scopes_header":  "X-User-Scopes",
		},
		"client": map[string]any{
			"timeout": "30s",
			"retry": map[string]any{
				"max_attempts":     3,
				"initial_interval": "100ms",
				"max_interval":     "5s",
				"multiplier":       2.0,
				"jitter_factor":    0.25,
			},
			"circuit_breaker": map[string]any{
				"max_failures":    5,
				"timeout":         "30s",
				"half_open_limit": 3,
			},
			"transport": map[string]any{
				"max_idle_conns":          100,
				"max_idle_conns_per_host": 10,
				"idle_conn_timeout":       "90s",
			},
		},
		"quotes": map[string]any{
			"cache_enabled":   true,
			"cache_max_age":   "24h",
			"attempt_timeout": "3s",
			"refresh_timeout": "20s",
			"bulk_max":        defaultBulkMax,
			"categories":      []string{},
		},
		"providers": map[string]any{
			"quotable": map[string]any{
				"enabled":      true,
				"base_url":     "https://api.quotable.io",
				"weight":       1.0,
				"min_interval": "0s",
				"api_key":      "",
			},
			// The ZenQuotes free tier allows 5 requests per 30 seconds.
			"zenquotes": map[string]any{
				"enabled":      true,
				"base_url":     "https://zenquotes.io/api",
				"weight":       1.0,
				"min_interval": "6s",
				"api_key":      "",
			},
			"favqs": map[string]any{
				"enabled":      false,
				"base_url":     "https://favqs.com/api",
				"weight":       0.5,
				"min_interval": "1s",
				"api_key":      "",
			},
		},
		"storage": map[string]any{
			"backend":  "memory",
			"file":     map[string]any{"path": defaultFilePath},
			"postgres": map[string]any{"dsn": ""},
		},
	}
}

// Load assembles the configuration for the given profile. Each layer
// overrides the one before it:
//
//	defaults -> configs/base.yaml -> configs/<profile>.yaml -> APP_* env
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	paths := []string{"configs/base.yaml"}
	if profile != "" {
		paths = append(paths, fmt.Sprintf("configs/%s.yaml", profile))
	}

	for _, path := range paths {
		if err := loadOptionalFile(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKey rewrites APP_SERVER_PORT into the config path server.port.
func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, "APP_")), "_", ".")
}

// loadOptionalFile merges one YAML file into k. A missing file is fine;
// an unreadable or malformed one is an error.
func loadOptionalFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}

// Normalize applies the correction policy to the quote-core settings:
// out-of-range values are clamped to safe defaults instead of failing
// startup. It returns one human-readable message per correction so the
// caller can log them at warn level. Infra settings (server, log,
// client) stay fail-fast via Validate; a bad tuning knob must never
// take quote delivery down with it.
func (c *Config) Normalize() []string {
	var corrections []string

	correct := func(field, reason string, apply func()) {
		apply()
		corrections = append(corrections, fmt.Sprintf("%s %s", field, reason))
	}

	if c.Quotes.CacheMaxAge <= 0 {
		correct("quotes.cache_max_age", fmt.Sprintf("must be positive, using %s", defaultCacheMaxAge), func() {
			c.Quotes.CacheMaxAge = defaultCacheMaxAge
		})
	}

	if c.Quotes.AttemptTimeout <= 0 {
		correct("quotes.attempt_timeout", fmt.Sprintf("must be positive, using %s", defaultAttemptTimeout), func() {
			c.Quotes.AttemptTimeout = defaultAttemptTimeout
		})
	}

	if c.Quotes.RefreshTimeout <= 0 {
		correct("quotes.refresh_timeout", fmt.Sprintf("must be positive, using %s", defaultRefreshTimeout), func() {
			c.Quotes.RefreshTimeout = defaultRefreshTimeout
		})
	}

	if c.Quotes.BulkMax <= 0 {
		correct("quotes.bulk_max", fmt.Sprintf("must be positive, using %d", defaultBulkMax), func() {
			c.Quotes.BulkMax = defaultBulkMax
		})
	}

	for name, p := range map[string]*ProviderConfig{
		"providers.quotable":  &c.Providers.Quotable,
		"providers.zenquotes": &c.Providers.ZenQuotes,
		"providers.favqs":     &c.Providers.FavQs,
	} {
		if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight < 0 {
			correct(name+".weight", "must be a finite non-negative number, using 0", func() {
				p.Weight = 0
			})
		}

		if p.MinInterval < 0 {
			correct(name+".min_interval", "must be non-negative, using 0s", func() {
				p.MinInterval = 0
			})
		}
	}

	if c.Storage.Backend == "file" && c.Storage.File.Path == "" {
		correct("storage.file.path", `required for the file backend, using "./data/quotes.json"`, func() {
			c.Storage.File.Path = defaultFilePath
		})
	}

	return corrections
}
