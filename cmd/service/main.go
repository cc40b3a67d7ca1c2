// Package main wires the quote service together and runs it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quotedeck/quote-service/internal/adapters/clients"
	"github.com/quotedeck/quote-service/internal/adapters/http"
	"github.com/quotedeck/quote-service/internal/adapters/http/handlers"
	"github.com/quotedeck/quote-service/internal/adapters/providers"
	"github.com/quotedeck/quote-service/internal/adapters/storage"
	"github.com/quotedeck/quote-service/internal/app"
	"github.com/quotedeck/quote-service/internal/platform/config"
	"github.com/quotedeck/quote-service/internal/platform/logging"
	"github.com/quotedeck/quote-service/internal/platform/telemetry"
	"github.com/quotedeck/quote-service/internal/ports"
)

// Set at build time through -ldflags, e.g.
// go build -ldflags "-X main.Version=v1.2.0 -X main.Commit=$(git rev-parse HEAD)".
var (
	// Version is the release version.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"

	// BuildTime is when the binary was built, in RFC 3339 form.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Resolve the config profile
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load configuration; infrastructure settings fail fast
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// 3. Build the logger
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)
	ctx = logging.WithContext(ctx, logger)

	// Quote-core tuning follows the correction policy: bad knobs are
	// clamped and reported, never fatal.
	for _, correction := range cfg.Normalize() {
		logger.Warn("config corrected", slog.String("correction", correction))
	}

	logger.Info("quote service starting",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Start telemetry (noop providers when disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown failed", slog.Any("error", shutdownErr))
		}
	}()

	quoteMetrics, err := telemetry.NewQuoteMetrics()
	if err != nil {
		return fmt.Errorf("initializing quote metrics: %w", err)
	}

	// 5. Open the configured persistence backend
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 6. Build provider adapters behind instrumented clients
	quoteProviders, weights, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}

	// 7. Create the quote service and restore persisted state
	service := app.NewQuoteService(app.QuoteServiceConfig{
		Store:          store,
		Providers:      quoteProviders,
		Weights:        weights,
		Logger:         logger,
		Metrics:        quoteMetrics,
		CacheMaxAge:    cfg.Quotes.CacheMaxAge,
		DisableCache:   !cfg.Quotes.CacheEnabled,
		AttemptTimeout: cfg.Quotes.AttemptTimeout,
		RefreshTimeout: cfg.Quotes.RefreshTimeout,
		BulkMax:        cfg.Quotes.BulkMax,
		Categories:     cfg.Quotes.Categories,
	})
	service.RestoreState(ctx)

	// 8. Create health registry; readiness covers the store and sources
	healthRegistry := ports.NewHealthRegistry()

	if checker, ok := store.(ports.HealthChecker); ok {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering store health check: %w", err)
		}
	}

	if err := healthRegistry.Register(service.ProviderReadiness()); err != nil {
		return fmt.Errorf("registering provider health check: %w", err)
	}

	// 9. Handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(service)

	// 10. HTTP server and routes
	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AuthConfig:    &cfg.Auth,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		Timeout:       http.DefaultRequestTimeout,
	})

	// 11. Serve until a signal or server failure, then drain and persist
	return serve(ctx, logger, server, service, cfg.Server.ShutdownTimeout)
}

// serve runs the HTTP server until a shutdown signal arrives or the
// listener fails, then drains in-flight requests and persists the
// service state.
func serve(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	service *app.QuoteService,
	shutdownTimeout time.Duration,
) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	serverErr := server.Start()

	// A listener failure ends the group; a signal ends it via gctx.
	g.Go(func() error {
		select {
		case err, ok := <-serverErr:
			if ok && err != nil {
				return err
			}

			return nil
		case <-gctx.Done():
			return nil
		}
	})

	// Warm today's pool so the first request is not the one paying for
	// the initial provider fetch. Failures degrade inside the service.
	g.Go(func() error {
		service.FetchDailyQuote(gctx, false)

		return nil
	})

	groupErr := g.Wait()
	stop()

	if groupErr != nil {
		logger.Error("server failed", slog.Any("error", groupErr))
	} else {
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("draining before shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	var errs []error

	if groupErr != nil {
		errs = append(errs, groupErr)
	}

	// Refuse new connections, wait out in-flight requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	// Persist provider health and analytics for the next start
	service.PersistState(shutdownCtx)

	logger.Info("shutdown finished")

	return errors.Join(errs...)
}

// openStore builds the configured persistence backend. The returned
// cleanup releases backend resources and is safe to call exactly once.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.KeyValue, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "file":
		store, err := storage.NewFile(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening file store at %q: %w", cfg.Storage.File.Path, err)
		}

		logger.Info("using file store", slog.String("path", cfg.Storage.File.Path))

		return store, noop, nil

	case "postgres":
		db, err := storage.OpenPostgres(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}

		store := storage.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()

			return nil, nil, fmt.Errorf("preparing postgres schema: %w", err)
		}

		logger.Info("using postgres store")

		return store, func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing postgres", slog.Any("error", err))
			}
		}, nil

	default:
		// Validate restricts the backend to memory|file|postgres.
		logger.Info("using in-memory store")

		return storage.NewMemory(), noop, nil
	}
}

// buildProviders assembles the enabled provider adapters in
// configuration order, each behind its own instrumented client and
// polite-interval gate.
func buildProviders(cfg *config.Config, logger *slog.Logger) ([]ports.QuoteProvider, map[string]float64, error) {
	specs := []struct {
		name  string
		pcfg  config.ProviderConfig
		build func(providers.Config) ports.QuoteProvider
	}{
		{"quotable", cfg.Providers.Quotable, func(c providers.Config) ports.QuoteProvider { return providers.NewQuotable(c) }},
		{"zenquotes", cfg.Providers.ZenQuotes, func(c providers.Config) ports.QuoteProvider { return providers.NewZenQuotes(c) }},
		{"favqs", cfg.Providers.FavQs, func(c providers.Config) ports.QuoteProvider { return providers.NewFavQs(c) }},
	}

	var list []ports.QuoteProvider

	weights := make(map[string]float64)

	for _, spec := range specs {
		if !spec.pcfg.Enabled {
			continue
		}

		clientCfg := &clients.Config{
			BaseURL:     spec.pcfg.BaseURL,
			ServiceName: spec.name,
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			Logger:      logger,
		}
		if spec.name == "favqs" && spec.pcfg.APIKey != "" {
			clientCfg.AuthFunc = providers.FavQsAuth(spec.pcfg.APIKey)
		}

		client, err := clients.New(clientCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s client: %w", spec.name, err)
		}

		provider := spec.build(providers.Config{Client: client, Logger: logger})
		list = append(list, providers.WithMinInterval(provider, spec.pcfg.MinInterval))
		weights[spec.name] = spec.pcfg.Weight

		logger.Info("provider enabled",
			slog.String("provider", spec.name),
			slog.Float64("weight", spec.pcfg.Weight),
			slog.Duration("min_interval", spec.pcfg.MinInterval),
		)
	}

	if len(list) == 0 {
		logger.Warn("no providers enabled, serving from the fallback pool only")
	}

	return list, weights, nil
}
