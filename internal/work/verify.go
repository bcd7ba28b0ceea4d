package work

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// TypeDepositVerify is the work type ID for deposit verification runs.
const TypeDepositVerify = "deposit:verify"

// DepositLoader fetches the deposit record a verification run operates on.
type DepositLoader interface {
	Get(accountID string) (*domain.Deposit, error)
}

// VerdictRunner executes the verification pipeline for one deposit.
type VerdictRunner interface {
	Run(ctx context.Context, dep *domain.Deposit) domain.Verdict
}

// VerdictApplier applies a terminal verdict to the deposit and its account.
type VerdictApplier interface {
	Apply(accountID string, verdict domain.Verdict) error
}

// verifyPayload is the msgpack-encoded payload of a verification item.
// Currently only carries the account for traceability; the run always
// re-reads the deposit record so a resubmission is verified as stored.
type verifyPayload struct {
	AccountID string `msgpack:"account_id"`
}

// RegisterDepositVerification wires the deposit verification work type into
// the registry: pending subjects come from the durable store, execution runs
// the pipeline and applies the verdict.
func RegisterDepositVerification(
	registry *Registry,
	store *Store,
	deposits DepositLoader,
	runner VerdictRunner,
	applier VerdictApplier,
	log zerolog.Logger,
) {
	workLog := log.With().Str("service", "deposit_verification").Logger()

	registry.Register(&WorkType{
		ID:       TypeDepositVerify,
		Priority: PriorityHigh,
		FindSubjects: func() []string {
			subjects, err := store.PendingSubjects(TypeDepositVerify)
			if err != nil {
				workLog.Error().Err(err).Msg("Failed to list pending verifications")
				return nil
			}
			return subjects
		},
		Execute: func(ctx context.Context, subject string) error {
			// The stored payload is the authoritative enqueue request;
			// the subject is the dedupe key. They agree unless the row
			// predates a schema change, so the subject is the fallback.
			var p verifyPayload
			if err := store.Payload(WorkID(TypeDepositVerify, subject), &p); err != nil || p.AccountID == "" {
				p.AccountID = subject
			}

			dep, err := deposits.Get(p.AccountID)
			if err != nil {
				return fmt.Errorf("failed to load deposit for %s: %w", subject, err)
			}

			verdict := runner.Run(ctx, dep)

			if err := applier.Apply(p.AccountID, verdict); err != nil {
				return fmt.Errorf("failed to apply verdict for %s: %w", subject, err)
			}

			workLog.Info().
				Str("account", p.AccountID).
				Bool("accepted", verdict.Accepted).
				Msg("Deposit verification completed")

			return nil
		},
	})
}

// Queue is the enqueue-and-wake handle handed to the intake service.
type Queue struct {
	store     *Store
	processor *Processor
}

// NewQueue creates a queue handle bound to the store and processor.
func NewQueue(store *Store, processor *Processor) *Queue {
	return &Queue{store: store, processor: processor}
}

// EnqueueVerification schedules a verification run for an account's deposit
// and wakes the processor. Safe to call again for the same account; the
// existing item is reset to pending.
func (q *Queue) EnqueueVerification(accountID string) error {
	err := q.store.Enqueue(TypeDepositVerify, accountID, verifyPayload{AccountID: accountID})
	if err != nil {
		return err
	}

	q.processor.Trigger()
	return nil
}
