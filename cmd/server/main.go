/*
main.go - Application entry point

PURPOSE:
  Starts the P Trab engine HTTP server: calculator previews, the
  preparation balance ledger and the plan review workflow.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize logging
  3. Open storage, ledger and approval service
  4. Configure HTTP router
  5. Start server with graceful shutdown

ENVIRONMENT:
  PORT             HTTP server port (default: 8080)
  DB_PATH          SQLite database path (default: ptrab.db)
                   Use ":memory:" for an in-memory database
  LEDGER_BACKEND   sqlite | json (default: sqlite)
  LEDGER_FILE      Balance file for the json backend (default: saldo_preparo.json)
  INITIAL_BALANCE  Balance for a fresh ledger (default: 5000000.00)
  RATES_FILE       Optional TOML rate table
  JWT_SECRET       Required; signs reviewer/admin tokens
  LOG_LEVEL        debug | info | warn | error (default: info)
  APP_ENV          development gives text logs, anything else JSON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - app/app.go: Dependency wiring
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/ptrab-engine/api"
	"github.com/warp/ptrab-engine/app"
	"github.com/warp/ptrab-engine/config"
	"github.com/warp/ptrab-engine/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(os.Stdout, "ptrab-server", cfg.LogLevel, cfg.AppEnv)

	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	ctx := logging.WithLogger(context.Background(), logger)
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.Calc, a.Ledger, a.Plans)
	handler.Ping = a.DB.Ping

	router := api.NewRouter(handler, api.RouterOptions{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
