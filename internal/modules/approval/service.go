// Package approval applies a verification verdict to a deposit: it records
// the final status, assigns a manager to the account and opens the
// client-manager communication channel. Every step is idempotent so the
// work processor can safely retry a run that crashed partway through.
package approval

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// StatusWriter records the verification outcome on the deposit record.
type StatusWriter interface {
	UpdateStatus(accountID string, status domain.DepositStatus, reason string) error
}

// AccountDirectory is the slice of the accounts repository the approval
// flow needs: manager lookup, assignment and channel bookkeeping.
type AccountDirectory interface {
	ListManagers() ([]domain.Account, error)
	AssignManagerIfAbsent(accountID, managerID string) (string, error)
	AddManagedAccount(managerID, accountID string) error
	EnsureChannel(channelID, clientID, managerID string) (*domain.Channel, error)
}

// Service applies verification verdicts.
type Service struct {
	deposits StatusWriter
	accounts AccountDirectory
	log      zerolog.Logger
}

// NewService creates a new approval service.
func NewService(deposits StatusWriter, accounts AccountDirectory, log zerolog.Logger) *Service {
	return &Service{
		deposits: deposits,
		accounts: accounts,
		log:      log.With().Str("service", "approval").Logger(),
	}
}

// Apply records the verdict on the deposit, then assigns a manager and opens
// a channel. Manager assignment happens on both outcomes: a rejected client
// still gets a manager to discuss the rejection with.
//
// The status write must succeed; the follow-up steps are best effort and
// only logged on failure, since a retry of the whole run converges on the
// same state.
func (s *Service) Apply(accountID string, verdict domain.Verdict) error {
	status := domain.DepositStatusRejected
	if verdict.Accepted {
		status = domain.DepositStatusAccepted
	}

	if err := s.deposits.UpdateStatus(accountID, status, verdict.Explanation); err != nil {
		return err
	}

	s.log.Info().
		Str("account", accountID).
		Str("status", string(status)).
		Msg("Applied verification verdict")

	if err := s.assignManager(accountID); err != nil {
		s.log.Error().Err(err).Str("account", accountID).Msg("Manager assignment failed")
	}

	return nil
}

// assignManager picks a random manager for the account if none is assigned
// yet, records the managed-account pair and ensures the channel exists.
// With no managers on file the step is skipped, not failed; a later deposit
// resubmission or requeued run will pick one up.
func (s *Service) assignManager(accountID string) error {
	managers, err := s.accounts.ListManagers()
	if err != nil {
		return err
	}
	if len(managers) == 0 {
		s.log.Warn().Str("account", accountID).Msg("No managers available, skipping assignment")
		return nil
	}

	candidate := managers[rand.Intn(len(managers))]

	// A previously assigned manager wins over the fresh pick, so retries
	// never move a client between managers.
	managerID, err := s.accounts.AssignManagerIfAbsent(accountID, candidate.ID)
	if err != nil {
		return err
	}

	if err := s.accounts.AddManagedAccount(managerID, accountID); err != nil {
		return err
	}

	if _, err := s.accounts.EnsureChannel(uuid.NewString(), accountID, managerID); err != nil {
		return err
	}

	s.log.Info().
		Str("account", accountID).
		Str("manager", managerID).
		Msg("Manager assigned")

	return nil
}
