// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize external clients
// 4. Initialize work components
// 5. Initialize services
// 6. Register work types and scheduler jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeClients(ctx, container, cfg, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := InitializeWork(container, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize work components: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := RegisterWorkTypes(container, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to register work types: %w", err)
	}

	if err := RegisterJobs(container, cfg, log); err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}
