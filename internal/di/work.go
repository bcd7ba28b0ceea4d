// Package di provides dependency injection for the work processor.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/work"
)

// InitializeWork builds the durable work queue: registry, store, processor
// and the enqueue handle. Verification execution is registered here so the
// processor can pick up items left over from a previous run at startup.
// Must be called after InitializeRepositories and InitializeClients but
// before InitializeServices; the deposit service enqueues through WorkQueue.
func InitializeWork(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.WorkDB == nil {
		return fmt.Errorf("work database must be initialized before work components")
	}
	if container.DepositRepo == nil {
		return fmt.Errorf("repositories must be initialized before work components")
	}

	container.WorkRegistry = work.NewRegistry()
	container.WorkStore = work.NewStore(container.WorkDB.Conn(), log)
	container.WorkProcessor = work.NewProcessor(container.WorkRegistry, container.WorkStore, log)
	container.WorkQueue = work.NewQueue(container.WorkStore, container.WorkProcessor)

	log.Debug().Msg("Work components initialized")

	return nil
}

// RegisterWorkTypes binds work execution to the services that perform it.
// Must be called after InitializeServices; the verification run needs the
// orchestrator and the approval service.
func RegisterWorkTypes(container *Container, log zerolog.Logger) error {
	if container.Orchestrator == nil || container.ApprovalService == nil {
		return fmt.Errorf("services must be initialized before work types")
	}

	work.RegisterDepositVerification(
		container.WorkRegistry,
		container.WorkStore,
		container.DepositRepo,
		container.Orchestrator,
		container.ApprovalService,
		log,
	)

	return nil
}
