// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/config"
	"github.com/custodianhq/custodian/internal/scheduler"
)

// Retention for finished work items. They only exist for operator
// inspection; a day is plenty.
const doneWorkRetention = 24 * time.Hour

// RegisterJobs creates the scheduler and registers all maintenance jobs
// Must be called after InitializeWork and InitializeServices
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.WorkStore == nil || container.WorkProcessor == nil {
		return fmt.Errorf("work components must be initialized before jobs")
	}

	sched := scheduler.New(log)

	// Requeue verification runs orphaned by a crash. Runs well inside the
	// staleness window so an orphan waits at most ~1.5 windows.
	requeue := scheduler.NewRequeueStaleWorkJob(
		container.WorkStore,
		container.WorkProcessor,
		cfg.WorkStaleAfter,
		log,
	)
	if err := sched.AddJob("0 */2 * * * *", requeue); err != nil {
		return fmt.Errorf("failed to register requeue job: %w", err)
	}

	// Re-enqueue deposits that are still pending but have no live work
	// item, e.g. after a crash between the deposit upsert and the enqueue.
	reconcile := scheduler.NewReconcilePendingDepositsJob(
		container.DepositRepo,
		container.WorkQueue,
		cfg.WorkStaleAfter,
		log,
	)
	if err := sched.AddJob("0 */5 * * * *", reconcile); err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	prune := scheduler.NewPruneDoneWorkJob(container.WorkStore, doneWorkRetention, log)
	if err := sched.AddJob("0 30 3 * * *", prune); err != nil {
		return fmt.Errorf("failed to register prune job: %w", err)
	}

	checkpoint := scheduler.NewWALCheckpointJob(container.Databases(), log)
	if err := sched.AddJob("0 0 4 * * *", checkpoint); err != nil {
		return fmt.Errorf("failed to register checkpoint job: %w", err)
	}

	container.Scheduler = sched

	return nil
}
