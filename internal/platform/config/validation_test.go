package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseline returns a config that passes validation, for tests to break
// one field at a time.
func baseline() *Config {
	return &Config{
		App: AppConfig{
			Name:        "quote-service",
			Version:     "1.4.0",
			Environment: "local",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     4,
				InitialInterval: 50 * time.Millisecond,
				MaxInterval:     2 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.2,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures:   5,
				Timeout:       20 * time.Second,
				HalfOpenLimit: 2,
			},
			Transport: TransportConfig{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		Quotes: QuotesConfig{
			CacheMaxAge:    24 * time.Hour,
			AttemptTimeout: 3 * time.Second,
			RefreshTimeout: 20 * time.Second,
			BulkMax:        50,
		},
		Providers: ProvidersConfig{
			Quotable: ProviderConfig{
				Enabled: true,
				BaseURL: "https://api.quotable.io",
				Weight:  1.0,
			},
			ZenQuotes: ProviderConfig{
				Enabled:     true,
				BaseURL:     "https://zenquotes.io/api",
				Weight:      1.0,
				MinInterval: 6 * time.Second,
			},
			FavQs: ProviderConfig{
				Enabled: false,
				Weight:  0.5,
			},
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
	}
}

func TestValidate_Baseline(t *testing.T) {
	require.NoError(t, baseline().Validate())
}

// TestValidate_Rejects breaks one field per case and checks the error
// names that field's dotted path.
func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"app name blank", func(c *Config) { c.App.Name = "" }, "app.name"},
		{"app version blank", func(c *Config) { c.App.Version = "" }, "app.version"},
		{"app environment blank", func(c *Config) { c.App.Environment = "" }, "app.environment"},
		{"app environment unknown", func(c *Config) { c.App.Environment = "staging" }, "app.environment"},

		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port negative", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"port past 65535", func(c *Config) { c.Server.Port = 65536 }, "server.port"},
		{"host blank", func(c *Config) { c.Server.Host = "" }, "server.host"},
		{"read timeout under a second", func(c *Config) { c.Server.ReadTimeout = 500 * time.Millisecond }, "server.readtimeout"},
		{"request size zero", func(c *Config) { c.Server.MaxRequestSize = 0 }, "server.maxrequestsize"},

		{"log level unknown", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log level uppercased", func(c *Config) { c.Log.Level = "DEBUG" }, "log.level"},
		{"log format unknown", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"file sink without a path", func(c *Config) {
			c.Log.File.Enabled = true
			c.Log.File.Path = ""
		}, "log.file.path"},
		{"file sink oversized", func(c *Config) {
			c.Log.File.Enabled = true
			c.Log.File.Path = "/var/log/quote-service.log"
			c.Log.File.MaxSizeMB = 1025
		}, "log.file.maxsizemb"},

		{"telemetry without an endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.ServiceName = "quote-service"
		}, "telemetry.endpoint"},
		{"telemetry endpoint malformed", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "not-a-url"
			c.Telemetry.ServiceName = "quote-service"
		}, "telemetry.endpoint"},
		{"telemetry without a service name", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "http://otel-collector:4317"
		}, "telemetry.servicename"},
		{"sampling rate negative", func(c *Config) { c.Telemetry.SamplingRate = -0.1 }, "telemetry.samplingrate"},
		{"sampling rate past one", func(c *Config) { c.Telemetry.SamplingRate = 1.1 }, "telemetry.samplingrate"},

		{"client timeout under 100ms", func(c *Config) { c.Client.Timeout = 50 * time.Millisecond }, "client.timeout"},
		{"zero retry attempts", func(c *Config) { c.Client.Retry.MaxAttempts = 0 }, "client.retry.maxattempts"},
		{"retry attempts past ten", func(c *Config) { c.Client.Retry.MaxAttempts = 11 }, "client.retry.maxattempts"},
		{"initial interval under 10ms", func(c *Config) { c.Client.Retry.InitialInterval = 5 * time.Millisecond }, "client.retry.initialinterval"},
		{"max interval under 100ms", func(c *Config) { c.Client.Retry.MaxInterval = 50 * time.Millisecond }, "client.retry.maxinterval"},
		{"multiplier too shallow", func(c *Config) { c.Client.Retry.Multiplier = 1.0 }, "client.retry.multiplier"},
		{"multiplier too steep", func(c *Config) { c.Client.Retry.Multiplier = 10.1 }, "client.retry.multiplier"},
		{"jitter past one", func(c *Config) { c.Client.Retry.JitterFactor = 1.5 }, "client.retry.jitterfactor"},

		{"breaker threshold zero", func(c *Config) { c.Client.CircuitBreaker.MaxFailures = 0 }, "client.circuitbreaker.maxfailures"},
		{"breaker timeout under a second", func(c *Config) { c.Client.CircuitBreaker.Timeout = 500 * time.Millisecond }, "client.circuitbreaker.timeout"},
		{"half open limit zero", func(c *Config) { c.Client.CircuitBreaker.HalfOpenLimit = 0 }, "client.circuitbreaker.halfopenlimit"},
		{"idle pool zero", func(c *Config) { c.Client.Transport.MaxIdleConns = 0 }, "client.transport.maxidleconns"},

		{"enabled provider without a base URL", func(c *Config) { c.Providers.Quotable.BaseURL = "" }, "providers.quotable.baseurl"},
		{"provider base URL malformed", func(c *Config) { c.Providers.ZenQuotes.BaseURL = "not-a-url" }, "providers.zenquotes.baseurl"},

		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseline()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

// TestValidate_Accepts walks the legal boundary values and optional
// groups through validation.
func TestValidate_Accepts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"lowest port", func(c *Config) { c.Server.Port = 1 }},
		{"highest port", func(c *Config) { c.Server.Port = 65535 }},

		{"sampling rate at zero", func(c *Config) { c.Telemetry.SamplingRate = 0 }},
		{"sampling rate at one", func(c *Config) { c.Telemetry.SamplingRate = 1.0 }},

		{"single retry attempt", func(c *Config) { c.Client.Retry.MaxAttempts = 1 }},
		{"ten retry attempts", func(c *Config) { c.Client.Retry.MaxAttempts = 10 }},
		{"shallowest multiplier", func(c *Config) { c.Client.Retry.Multiplier = 1.1 }},
		{"steepest multiplier", func(c *Config) { c.Client.Retry.Multiplier = 10.0 }},

		{"file sink fully configured", func(c *Config) {
			c.Log.File = LogFileConfig{
				Enabled:    true,
				Path:       "/var/log/quote-service.log",
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			}
		}},
		{"telemetry fully configured", func(c *Config) {
			c.Telemetry = TelemetryConfig{
				Enabled:      true,
				Endpoint:     "http://otel-collector:4317",
				ServiceName:  "quote-service",
				SamplingRate: 0.5,
			}
		}},
		{"custom gateway headers", func(c *Config) {
			c.Auth = AuthConfig{
				SubjectHeader: "X-Gateway-Subject",
				RolesHeader:   "X-Gateway-Roles",
				ScopesHeader:  "X-Gateway-Scopes",
			}
		}},
		{"disabled provider with no base URL", func(c *Config) {
			c.Providers.FavQs.Enabled = false
			c.Providers.FavQs.BaseURL = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseline()
			tc.mutate(cfg)
			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("every environment", func(t *testing.T) {
		for _, env := range []string{"local", "dev", "qa", "prod", "test"} {
			cfg := baseline()
			cfg.App.Environment = env
			assert.NoError(t, cfg.Validate(), "environment %q", env)
		}
	})

	t.Run("every log level and format", func(t *testing.T) {
		for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
			cfg := baseline()
			cfg.Log.Level = level
			assert.NoError(t, cfg.Validate(), "level %q", level)
		}

		for _, format := range []string{"json", "text", "pretty"} {
			cfg := baseline()
			cfg.Log.Format = format
			assert.NoError(t, cfg.Validate(), "format %q", format)
		}
	})

	t.Run("every storage backend", func(t *testing.T) {
		for _, backend := range []string{"memory", "file", "postgres"} {
			cfg := baseline()
			cfg.Storage.Backend = backend
			assert.NoError(t, cfg.Validate(), "backend %q", backend)
		}
	})
}

// TestValidate_ReportsEveryFailure checks that one pass surfaces all
// broken fields, not just the first.
func TestValidate_ReportsEveryFailure(t *testing.T) {
	cfg := baseline()
	cfg.App.Name = ""
	cfg.App.Version = ""
	cfg.Server.Port = -1

	err := cfg.Validate()
	require.Error(t, err)

	out := err.Error()
	assert.Contains(t, out, "config validation failed")
	assert.Contains(t, out, "app.name")
	assert.Contains(t, out, "app.version")
	assert.Contains(t, out, "server.port")
}

func TestFormatFieldPath(t *testing.T) {
	cases := map[string]string{
		"Config.Quotes.BulkMax":          "quotes.bulkmax",
		"Config.Providers.FavQs.BaseURL": "providers.favqs.baseurl",
		"Config.Storage.Backend":         "storage.backend",
		"Config.Server.ReadTimeout":      "server.readtimeout",
		"Port":                           "port",
	}

	for namespace, want := range cases {
		assert.Equal(t, want, formatFieldPath(namespace), "namespace %q", namespace)
	}
}
