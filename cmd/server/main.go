package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aavail/revenue-forecast/internal/api"
	"github.com/aavail/revenue-forecast/internal/audit"
	"github.com/aavail/revenue-forecast/internal/config"
	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/middleware"
	"github.com/aavail/revenue-forecast/internal/registry"
	"github.com/aavail/revenue-forecast/internal/services"
)

// main serves as the entry point for the application. A "train" argument
// runs a one-shot training pass instead of starting the HTTP server.
func main() {
	if len(os.Args) > 1 && os.Args[1] == "train" {
		if err := runTrainer(); err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run orchestrates the startup sequence of the server: configuration,
// logging, the forecasting service, the HTTP server, and graceful shutdown
// on termination signals.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	reg := registry.NewRegistry(cfg.Models.Dir, cfg.Models.Algorithm, cfg.Training.SplitRatio, logger)
	auditWriter := audit.NewWriter(cfg.Audit.Dir)
	forecaster := services.NewForecaster(cfg, reg, auditWriter, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogging(logger))
	router.Use(gin.Recovery())

	api.SetupRoutes(router, cfg, forecaster, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		logger.LogStartup("revenue-forecast-api", api.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogShutdown("revenue-forecast-api", "signal received")

	// Give outstanding requests a deadline for completion.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
	return nil
}
