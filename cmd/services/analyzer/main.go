package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/soltixdb/trendscope/internal/cache"
	"github.com/soltixdb/trendscope/internal/config"
	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/metrics"
	"github.com/soltixdb/trendscope/internal/queue"
	"github.com/soltixdb/trendscope/internal/router"
	"github.com/soltixdb/trendscope/internal/services"
	"github.com/soltixdb/trendscope/internal/utils"
	"github.com/soltixdb/trendscope/internal/worker"
)

var (
	Version   = utils.Version // Injected via ldflags during build
	GitCommit = "unknown"     // Injected via ldflags during build
	BuildTime = "unknown"     // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Analyzer service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Result cache
	resultCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize result cache", "type", cfg.Cache.Type, "error", err)
	}
	defer func() { _ = resultCache.Close() }()
	logger.Info("Result cache initialized",
		"type", cfg.Cache.Type,
		"ttl", cfg.Cache.TTL,
		"compression", cfg.Cache.Compression)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	analysisService := services.NewAnalysisService(logger, cfg.Analysis, resultCache, m)

	// Queue worker and completion events (optional)
	var analysisWorker *worker.Worker
	if cfg.Queue.Enabled {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err := queue.NewQueue(cfg.Queue)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "error", err)
		}
		defer func() { _ = queueClient.Close() }()
		logger.Info("Queue connection established")

		if cfg.Queue.EventSubject != "" {
			analysisService.SetEventPublisher(queueClient, cfg.Queue.EventSubject)
			logger.Info("Analysis events enabled", "subject", cfg.Queue.EventSubject)
		}

		analysisWorker, err = worker.New(logger, queueClient, analysisService, m, worker.Config{
			RequestSubject: cfg.Queue.RequestSubject,
			ResultSubject:  cfg.Queue.ResultSubject,
		})
		if err != nil {
			logger.Fatal("Failed to create analysis worker", "error", err)
		}
		if err := analysisWorker.Start(); err != nil {
			logger.Fatal("Failed to start analysis worker", "error", err)
		}
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, analysisService, m, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening",
			"address", addr,
			"body_limit", humanize.IBytes(uint64(cfg.Server.BodyLimit)),
			"max_series", cfg.Analysis.MaxSeries,
			"max_points", humanize.Comma(int64(cfg.Analysis.MaxPoints)))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if analysisWorker != nil {
		if err := analysisWorker.Stop(); err != nil {
			logger.Error("Failed to stop analysis worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
