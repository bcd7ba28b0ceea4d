package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/database"
	"github.com/custodianhq/custodian/internal/work"
)

// WorkWaker wakes the work processor after items change state.
type WorkWaker interface {
	Trigger()
}

// RequeueStaleWorkJob flips work items stuck in running state back to
// pending. A crash between MarkRunning and the terminal state leaves an
// orphan; after the staleness window it gets another run.
type RequeueStaleWorkJob struct {
	store      *work.Store
	waker      WorkWaker
	staleAfter time.Duration
	log        zerolog.Logger
}

// NewRequeueStaleWorkJob creates a new requeue job.
func NewRequeueStaleWorkJob(store *work.Store, waker WorkWaker, staleAfter time.Duration, log zerolog.Logger) *RequeueStaleWorkJob {
	return &RequeueStaleWorkJob{
		store:      store,
		waker:      waker,
		staleAfter: staleAfter,
		log:        log.With().Str("job", "requeue_stale_work").Logger(),
	}
}

// Name returns the job name
func (j *RequeueStaleWorkJob) Name() string {
	return "requeue_stale_work"
}

// Run executes the requeue job
func (j *RequeueStaleWorkJob) Run() error {
	count, err := j.store.RequeueStale(time.Now().Add(-j.staleAfter))
	if err != nil {
		return err
	}

	if count > 0 {
		j.log.Info().Int("requeued", count).Msg("Requeued stale work items")
		j.waker.Trigger()
	}

	return nil
}

// PendingDepositLister finds deposits that have sat in pending status since
// before a cutoff.
type PendingDepositLister interface {
	ListPendingOlderThan(cutoff time.Time) ([]string, error)
}

// VerificationEnqueuer schedules a verification run for an account.
type VerificationEnqueuer interface {
	EnqueueVerification(accountID string) error
}

// ReconcilePendingDepositsJob re-enqueues verification for deposits stuck in
// pending status with no live work item, e.g. after the work database was
// lost or an enqueue failed post-submit.
type ReconcilePendingDepositsJob struct {
	deposits   PendingDepositLister
	queue      VerificationEnqueuer
	staleAfter time.Duration
	log        zerolog.Logger
}

// NewReconcilePendingDepositsJob creates a new reconcile job.
func NewReconcilePendingDepositsJob(deposits PendingDepositLister, queue VerificationEnqueuer, staleAfter time.Duration, log zerolog.Logger) *ReconcilePendingDepositsJob {
	return &ReconcilePendingDepositsJob{
		deposits:   deposits,
		queue:      queue,
		staleAfter: staleAfter,
		log:        log.With().Str("job", "reconcile_pending_deposits").Logger(),
	}
}

// Name returns the job name
func (j *ReconcilePendingDepositsJob) Name() string {
	return "reconcile_pending_deposits"
}

// Run executes the reconcile job
func (j *ReconcilePendingDepositsJob) Run() error {
	accountIDs, err := j.deposits.ListPendingOlderThan(time.Now().Add(-j.staleAfter))
	if err != nil {
		return err
	}

	for _, accountID := range accountIDs {
		if err := j.queue.EnqueueVerification(accountID); err != nil {
			j.log.Error().Err(err).Str("account", accountID).Msg("Failed to re-enqueue verification")
			continue
		}
		j.log.Info().Str("account", accountID).Msg("Re-enqueued stale pending verification")
	}

	return nil
}

// PruneDoneWorkJob deletes finished work items older than the retention
// window to keep the queue table small.
type PruneDoneWorkJob struct {
	store     *work.Store
	retention time.Duration
	log       zerolog.Logger
}

// NewPruneDoneWorkJob creates a new prune job.
func NewPruneDoneWorkJob(store *work.Store, retention time.Duration, log zerolog.Logger) *PruneDoneWorkJob {
	return &PruneDoneWorkJob{
		store:     store,
		retention: retention,
		log:       log.With().Str("job", "prune_done_work").Logger(),
	}
}

// Name returns the job name
func (j *PruneDoneWorkJob) Name() string {
	return "prune_done_work"
}

// Run executes the prune job
func (j *PruneDoneWorkJob) Run() error {
	count, err := j.store.PruneDone(time.Now().Add(-j.retention))
	if err != nil {
		return err
	}

	if count > 0 {
		j.log.Info().Int("pruned", count).Msg("Pruned finished work items")
	}

	return nil
}

// WALCheckpointJob truncates the WAL file of every open database so the
// write-ahead logs don't grow without bound between restarts.
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WAL checkpoint job over the named
// databases.
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	checked := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		if err := db.Checkpoint(); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			continue
		}
		checked++
	}

	j.log.Debug().Int("checkpointed", checked).Msg("WAL checkpoint completed")
	return nil
}
