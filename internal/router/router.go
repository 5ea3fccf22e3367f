package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/trendscope/internal/config"
	"github.com/soltixdb/trendscope/internal/handlers"
	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/metrics"
	"github.com/soltixdb/trendscope/internal/middleware"
	"github.com/soltixdb/trendscope/internal/services"
	"github.com/soltixdb/trendscope/internal/utils"
)

// Setup configures all routes and middlewares. m may be nil, which leaves the
// metrics endpoint out.
func Setup(app *fiber.App, logger *logging.Logger, analysisService *services.AnalysisService,
	m *metrics.Metrics, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, analysisService)

	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.MiddlewareConfig{
		SkipPaths: []string{"/health", metricsPath},
	}))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if cfg.Metrics.Enabled && m != nil {
		app.Get(metricsPath, adaptor.HTTPHandler(m.Handler()))
	}

	// API v1 routes (protected by API key, optionally rate limited per IP)
	v1Middlewares := []fiber.Handler{middleware.APIKeyAuth(logger, cfg.Auth)}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(logger, cfg.Server.RateLimit, cfg.Server.RateBurst)
		v1Middlewares = append([]fiber.Handler{limiter.Handler()}, v1Middlewares...)
	}
	v1 := app.Group("/v1", v1Middlewares...)

	// Analysis Routes
	v1.Post("/analyze", h.Analyze)
	v1.Post("/detect/:method", h.Detect)
	v1.Post("/trend", h.Trend)
	v1.Get("/detectors", h.Detectors)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analysisService *services.AnalysisService,
	m *metrics.Metrics, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Trendscope Analyzer",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           utils.DefaultRequestTimeout,
		WriteTimeout:          utils.DefaultRequestTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, analysisService, m, cfg)

	return app
}
