/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll and leave server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env files, PAYROLL_* variables, flags)
  2. Build the zap logger and install it globally
  3. Open the SQLite store (schema is migrated on open)
  4. Seed default departments into an empty store, then PAYROLL_SEED_FILE
  5. Wire services, audit sinks and the HTTP router
  6. Start the payroll scheduler when enabled
  7. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PAYROLL_PORT)
  -db      SQLite database path (overrides PAYROLL_DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler, waiting for a running batch
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/config"
	"github.com/aldenpython/payrollsystem/factory"
	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "payroll server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port, cfg.DBPath = *port, *dbPath
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	store, err := sqlite.New(cfg.DBPath, logger.Named("store.sqlite"))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if seeded, err := factory.EnsureDefaults(ctx, store, time.Now()); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	} else if seeded {
		logger.Info("seeded default departments")
	}
	if cfg.SeedFile != "" {
		seed, err := factory.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		recs, err := seed.Apply(ctx, store, time.Now())
		if err != nil {
			return fmt.Errorf("apply seed %s: %w", cfg.SeedFile, err)
		}
		logger.Info("applied seed file",
			zap.String("file", cfg.SeedFile),
			zap.Int("employees", len(recs.Employees)),
			zap.Int("tax_rates", len(recs.TaxRates)),
			zap.Int("benefit_plans", len(recs.Plans)))
	}

	audit := hr.NewAuditor(hr.MultiSink{store, hr.LogSink{Logger: logger.Named("audit")}}, logger)
	services := api.NewServices(store, audit, logger)
	handler := api.NewHandler(services, logger.Named("api"))
	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler := api.NewPayrollScheduler(services.Runner, cfg.Scheduler.Spec, logger.Named("api.scheduler"))
	scheduler.Enabled = cfg.Scheduler.Enabled
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
