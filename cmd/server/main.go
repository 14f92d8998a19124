package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/application"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/handlers"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// handlers.RunLister must stay a nil interface when archiving is off.
	var runs handlers.RunLister
	if app.Archive != nil {
		runs = app.Archive
	}
	server := handlers.NewServer(cfg, app.Pipeline, runs, logger)
	if cfg.RunAuthToken == "" {
		logger.Warn("RUN_AUTH_TOKEN is not set; HTTP run triggers are disabled")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      server.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var sched *scheduler.Scheduler
	if cfg.Schedule != "" {
		sched, err = scheduler.New(cfg.Schedule, time.UTC, func() { server.TriggerRun(ctx) }, logger)
		if err != nil {
			logger.Error("invalid schedule", "schedule", cfg.Schedule, "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", httpServer.Addr, "pipeline", application.Describe(cfg))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("shutting down server")

	// Cancel in-flight scheduled runs
	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
