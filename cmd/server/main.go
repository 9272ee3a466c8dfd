/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Set up structured logging
  3. Initialize SQLite store
  4. Build contract service, metrics and API handler
  5. Start the outstanding balance refresher
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (overrides RENT_PORT)
  -db         SQLite database path (overrides RENT_DB_PATH)
              Use ":memory:" for in-memory database
  -log-level  debug, info, warn, error (overrides LOG_LEVEL)
  -env        Extra .env file to load before the environment

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the balance refresher
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/rent.db"

  # Run with in-memory database and debug logs
  ./server -db=":memory:" -log-level=debug

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/rent-engine/api"
	"github.com/warp/rent-engine/config"
	"github.com/warp/rent-engine/lease"
	"github.com/warp/rent-engine/pkg/logging"
	"github.com/warp/rent-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (default from RENT_PORT or 8080)")
	dbPath := flag.String("db", "", "SQLite database path (default from RENT_DB_PATH or rent.db)")
	logLevel := flag.String("log-level", "", "Log level (default from LOG_LEVEL or info)")
	envFile := flag.String("env", "", "Additional .env file")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logging.Setup(cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	svc := lease.NewService(store, cfg.Policy, logger)
	metrics := api.NewMetrics()
	handler := api.NewHandler(svc, metrics, logger)
	handler.Health = store

	refresher := api.NewBalanceRefresher(store, metrics, logger)
	refresher.Interval = cfg.RefreshInterval
	refresher.Start()
	defer refresher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.DBPath, "policy", cfg.Policy)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
