package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/adapters/http/handlers"
	"github.com/quotedeck/quote-service/internal/adapters/http/middleware"
	"github.com/quotedeck/quote-service/internal/platform/config"
	"github.com/quotedeck/quote-service/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API requests that do not set their own deadline.
const DefaultRequestTimeout = 30 * time.Second

// AdminScope authorizes weight administration without the admin role.
const AdminScope = "quotes:admin"

// RouterConfig carries everything SetupRouter needs to assemble the engine.
type RouterConfig struct {
	Logger *slog.Logger

	// AppConfig names the service for tracing spans.
	AppConfig *config.AppConfig

	// AuthConfig selects the identity headers the auth guards read.
	AuthConfig *config.AuthConfig

	QuoteHandler  *handlers.QuoteHandler
	HealthHandler *handlers.HealthHandler

	// Timeout is the per-request deadline for /api/v1. Zero disables it.
	Timeout time.Duration
}

// SetupRouter mounts the full middleware chain and all route groups.
//
// Recovery runs outermost so panics anywhere below produce a 500 envelope.
// ID minting precedes tracing so the request ID is available as a span
// attribute, and tracing precedes logging so access logs carry the trace
// ID. Probe routes under /-/ mount outside the timeout group; only
// /api/v1 requests get a deadline.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.AppConfig.Name),
		telemetry.Middleware(),
		middleware.Logging(cfg.Logger),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.SimpleTimeout(cfg.Timeout))
	}
	setupAPIRoutes(apiV1, cfg)
}

// setupAPIRoutes registers the quote API. Reads are public; weight
// administration requires an authenticated caller holding the admin role
// or the quotes:admin scope.
func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.QuoteHandler == nil {
		return
	}

	cfg.QuoteHandler.RegisterQuoteRoutes(rg)

	admin := rg.Group("")
	admin.Use(
		middleware.RequireAuth(cfg.AuthConfig),
		middleware.RequireAny(cfg.AuthConfig,
			func(c *middleware.Claims) bool { return c.HasRole("admin") },
			func(c *middleware.Claims) bool { return c.HasScope(AdminScope) },
		),
	)
	cfg.QuoteHandler.RegisterAdminRoutes(admin)
}

// SetupMinimalRouter wires only recovery, request IDs, and the probe
// endpoints, for deployments that expose nothing but health checks.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}

// NewDefaultRouterConfig builds a RouterConfig with the default timeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	authCfg *config.AuthConfig,
	quoteHandler *handlers.QuoteHandler,
	healthHandler *handlers.HealthHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     appCfg,
		AuthConfig:    authCfg,
		QuoteHandler:  quoteHandler,
		HealthHandler: healthHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
