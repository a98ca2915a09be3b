package internal

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"minidash/internal/config"
	"minidash/internal/ga4"
	"minidash/internal/http"
	"minidash/internal/http/middleware"
	"minidash/internal/reports"
	"minidash/internal/sample"
)

// publicCORSConfig is the permissive CORS setup shared by every API route
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept",
}

// MountAppRoutes mounts all application routes using the global configuration
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	store := reports.NewStore(nil, 0, srv.GetLogger())
	if dbManager := srv.GetDBManager(); dbManager != nil {
		store = reports.NewStore(dbManager.GetConnection(), cfg.ReportCacheTTL(), srv.GetLogger())
	}
	MountAppRoutesWithStore(srv, cfg, store)
}

// MountAppRoutesWithStore resolves handler dependencies from cfg and mounts the routes
func MountAppRoutesWithStore(srv *cartridge.Server, cfg *config.Config, store *reports.Store) {
	MountAPIRoutes(srv, cfg, http.NewHandlers(BuildDependencies(srv, cfg, store)))
}

// BuildDependencies creates the sample loader and the upstream reporter. A
// reporter configuration error is kept and reported by the handlers that need it.
func BuildDependencies(srv *cartridge.Server, cfg *config.Config, store *reports.Store) http.Dependencies {
	logger := srv.GetLogger()

	reporter, err := ga4.NewReporter(context.Background(), cfg.GA4PropertyID, cfg.CredentialsJSON, store, logger, cfg.UpstreamTimeout())
	if err != nil {
		logger.Info("Analytics reporting disabled", "reason", err.Error())
	}

	return http.Dependencies{
		Config:      cfg,
		Sample:      sample.NewLoader(cfg.SampleDataPath, cfg.SampleCacheTTL(), logger),
		Reports:     store,
		Reporter:    reporter,
		ReporterErr: err,
	}
}

// MountAPIRoutes registers the JSON API on srv
func MountAPIRoutes(srv *cartridge.Server, cfg *config.Config, h *http.Handlers) {
	// Rate limiting interferes with development and tests, so it only applies in production
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	parseLimit := cfg.ParseRateLimitPerMinute
	if parseLimit <= 0 {
		parseLimit = 60
	}
	parseRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(parseLimit),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// API routes are called from browsers on other origins and from scripts,
	// so Sec-Fetch-Site is not enforced.
	apiConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{middleware.RequestMetrics()},
	}

	parseConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{middleware.RequestMetrics(), parseRateLimiter},
	}

	internalConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	srv.Get("/", http.DashboardPageAction, internalConfig)
	srv.Get("/api/health", h.HealthIndexAction, apiConfig)
	srv.Get("/api/ga4-demo", h.GA4DemoIndexAction, apiConfig)
	srv.Get("/api/ga4/dashboard", h.GA4DashboardAction, apiConfig)
	srv.Get("/api/sample", h.SampleIndexAction, apiConfig)
	srv.Get("/api/sample/dashboard", h.SampleDashboardAction, apiConfig)
	srv.Get("/api/sample/sparkline.png", h.SampleSparklineAction, apiConfig)
	srv.Post("/api/parse", h.ParseCreateAction, parseConfig)
	srv.Post("/api/cache/purge", h.CachePurgeAction, internalConfig)
	srv.Get("/metrics", http.MetricsIndexAction, internalConfig)
}
