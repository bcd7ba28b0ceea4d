// Package main is the entry point for the Custodian deposit verification and
// portfolio ledger service. The application receives deposit applications with
// supporting documents, verifies them through a three-stage pipeline, assigns
// approved clients to managers and maintains a per-account portfolio ledger.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodianhq/custodian/internal/config"
	"github.com/custodianhq/custodian/internal/di"
	"github.com/custodianhq/custodian/internal/server"
	"github.com/custodianhq/custodian/pkg/logger"
)

// main orchestrates the system startup sequence:
// 1. Loads configuration from environment variables
// 2. Initializes logging
// 3. Wires all dependencies via the DI container (databases, repositories,
//    clients, services, work processor, scheduler)
// 4. Starts the HTTP server
// 5. Starts the work processor and the maintenance scheduler
// 6. Waits for a shutdown signal and performs graceful shutdown
//
// The application uses a 5-database architecture:
// - accounts.db: Accounts, manager assignments, channels
// - deposits.db: Deposit applications and verification state
// - portfolio.db: Current balances and positions
// - ledger.db: Immutable transaction audit trail
// - work.db: Ephemeral work queue state
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Custodian")

	// Wire all dependencies using DI container
	// This initializes databases, repositories, clients, services, the work
	// processor and the scheduler, all via constructor injection.
	container, err := di.Wire(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// All 5 databases must be properly closed so WAL checkpoints are
	// written on exit. Using defer ensures cleanup even on panic.
	defer container.CloseDatabases()

	srv := server.New(cfg, container, log)

	// Start server in goroutine so background components can start
	// concurrently.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Start work processor. Its first pass picks up verification runs left
	// pending by a previous shutdown or crash.
	go container.WorkProcessor.Run()
	log.Info().Msg("Work processor started")

	// Start maintenance scheduler (stale work requeue, pending deposit
	// reconciliation, done-work pruning, WAL checkpoints).
	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first so no new maintenance work starts, then the
	// processor. A verification run interrupted here is requeued by the
	// stale-work job on next startup.
	container.Scheduler.Stop()

	container.WorkProcessor.Stop()
	log.Info().Msg("Work processor stopped")

	// The HTTP server gets up to 10 seconds to finish in-flight requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
