package ledger

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// shareTolerance is the floating tolerance below which a residual holding
// counts as fully sold and the position row is removed.
const shareTolerance = 1e-9

// FundsMirror propagates the ledger's balance onto the deposit read model.
// A missing deposit record is tolerated; funds can move before intake.
type FundsMirror interface {
	UpdateAvailableFunds(accountID string, funds float64) error
}

// Service implements the ledger operations. Every mutation for one account
// runs under that account's lock, so the read-modify-write of the balance
// and positions never loses an update; different accounts are independent.
type Service struct {
	positions    *PositionRepository
	transactions *TransactionRepository
	navs         domain.NavProvider
	mirror       FundsMirror
	locks        *accountLocks
	log          zerolog.Logger
}

// NewService creates a new ledger service.
func NewService(
	positions *PositionRepository,
	transactions *TransactionRepository,
	navs domain.NavProvider,
	mirror FundsMirror,
	log zerolog.Logger,
) *Service {
	return &Service{
		positions:    positions,
		transactions: transactions,
		navs:         navs,
		mirror:       mirror,
		locks:        newAccountLocks(),
		log:          log.With().Str("service", "ledger").Logger(),
	}
}

// SeedFunds initializes the balance from a deposit submission and records
// the opening transaction. Overwrites any previous balance; a resubmitted
// deposit restarts the ledger.
func (s *Service) SeedFunds(accountID string, amount float64) error {
	if amount <= 0 {
		return domain.Validationf("invalid amount %v", amount)
	}

	lock := s.locks.forAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.append(accountID, domain.TransactionDeposit, amount, ""); err != nil {
		return err
	}

	if err := s.positions.SetBalance(accountID, amount); err != nil {
		return err
	}

	s.mirrorBalance(accountID)
	return nil
}

// AddFunds credits the balance and appends a deposit transaction.
//
// Returns:
//   - float64: The balance after the credit
//   - error: domain.ErrValidation if amount is not positive
func (s *Service) AddFunds(accountID string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, domain.Validationf("invalid amount %v", amount)
	}

	lock := s.locks.forAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.positions.GetBalance(accountID)
	if err != nil {
		return 0, err
	}

	balance += amount

	// Audit entry first: the trail and the balance live in different
	// databases, so one of the two writes can fail alone. A failed call
	// must leave the balance unchanged; the worst case is an extra trail
	// entry for a credit that did not apply.
	if err := s.append(accountID, domain.TransactionDeposit, amount, ""); err != nil {
		return 0, err
	}

	if err := s.positions.SetBalance(accountID, balance); err != nil {
		return 0, err
	}

	s.mirrorBalance(accountID)

	s.log.Info().
		Str("account", accountID).
		Float64("amount", amount).
		Float64("balance", balance).
		Msg("Funds added")

	return balance, nil
}

// Buy invests part of the balance into an instrument at the given NAV.
// A buy into an already-held instrument merges by summing shares; the
// merged position's reference NAV and purchase date take the new buy's
// values, so cost basis of the previously-held shares is not retained.
//
// Returns:
//   - *domain.Position: The position after the buy
//   - error: domain.ErrValidation for a missing instrument or non-positive
//     amount/NAV, domain.ErrInsufficientFunds when the balance can't cover it
func (s *Service) Buy(accountID, instrumentID, displayName string, amountInvested, nav float64) (*domain.Position, error) {
	if instrumentID == "" {
		return nil, domain.Validationf("invalid asset: instrument id is required")
	}
	if amountInvested <= 0 {
		return nil, domain.Validationf("invalid asset: amount must be positive, got %v", amountInvested)
	}
	if nav <= 0 {
		return nil, domain.Validationf("invalid asset: nav must be positive, got %v", nav)
	}

	lock := s.locks.forAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.positions.GetBalance(accountID)
	if err != nil {
		return nil, err
	}
	if amountInvested > balance {
		return nil, domain.ErrInsufficientFunds
	}

	shares := amountInvested / nav

	pos, err := s.positions.GetPosition(accountID, instrumentID)
	if err != nil {
		return nil, err
	}
	if pos != nil {
		shares += pos.Shares
	}

	updated := &domain.Position{
		AccountID:    accountID,
		InstrumentID: instrumentID,
		DisplayName:  displayName,
		Shares:       shares,
		ReferenceNav: nav,
		PurchaseDate: time.Now(),
	}
	if err := s.append(accountID, domain.TransactionBuy, amountInvested, instrumentID); err != nil {
		return nil, err
	}

	// Position and balance share portfolio.db; one transaction keeps the
	// debit and the holding in step, whichever write fails.
	err = s.positions.WithTx(func(tx *sql.Tx) error {
		if err := s.positions.UpsertPositionTx(tx, updated); err != nil {
			return err
		}
		return s.positions.SetBalanceTx(tx, accountID, balance-amountInvested)
	})
	if err != nil {
		return nil, err
	}

	s.mirrorBalance(accountID)

	s.log.Info().
		Str("account", accountID).
		Str("instrument", instrumentID).
		Float64("amount", amountInvested).
		Float64("shares", updated.Shares).
		Msg("Buy executed")

	return updated, nil
}

// Sell redeems value from a held position at the instrument's current NAV,
// falling back to the position's stored reference NAV when no current quote
// is available. The position row is removed when the remaining shares are
// within floating tolerance of zero.
//
// Returns:
//   - float64: The balance after crediting the proceeds
//   - error: domain.ErrNotFound if the instrument isn't held,
//     domain.ErrValidation for a bad amount or NAV,
//     domain.ErrInsufficientShares when the redemption exceeds the holding
func (s *Service) Sell(accountID, instrumentID string, redemptionAmount float64) (float64, error) {
	if redemptionAmount <= 0 {
		return 0, domain.Validationf("invalid amount %v", redemptionAmount)
	}

	lock := s.locks.forAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	pos, err := s.positions.GetPosition(accountID, instrumentID)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		return 0, domain.NotFoundf("asset %s not found for account %s", instrumentID, accountID)
	}

	nav := s.currentNav(pos)
	if nav <= 0 {
		return 0, domain.Validationf("invalid nav %v for %s", nav, instrumentID)
	}

	sharesToSell := redemptionAmount / nav
	if sharesToSell > pos.Shares {
		return 0, domain.ErrInsufficientShares
	}

	proceeds := sharesToSell * nav
	remaining := pos.Shares - sharesToSell

	balance, err := s.positions.GetBalance(accountID)
	if err != nil {
		return 0, err
	}
	balance += proceeds

	if err := s.append(accountID, domain.TransactionSell, proceeds, instrumentID); err != nil {
		return 0, err
	}

	// Share removal and the proceeds credit commit together; a failure on
	// either side rolls both back, so shares are never destroyed without
	// the funds arriving.
	err = s.positions.WithTx(func(tx *sql.Tx) error {
		if remaining < shareTolerance {
			if err := s.positions.DeletePositionTx(tx, accountID, instrumentID); err != nil {
				return err
			}
		} else {
			pos.Shares = remaining
			if err := s.positions.UpsertPositionTx(tx, pos); err != nil {
				return err
			}
		}
		return s.positions.SetBalanceTx(tx, accountID, balance)
	})
	if err != nil {
		return 0, err
	}

	s.mirrorBalance(accountID)

	s.log.Info().
		Str("account", accountID).
		Str("instrument", instrumentID).
		Float64("proceeds", proceeds).
		Float64("remaining_shares", remaining).
		Msg("Sell executed")

	return balance, nil
}

// GetAvailableFunds returns the account's balance, 0 when no ledger exists.
func (s *Service) GetAvailableFunds(accountID string) (float64, error) {
	return s.positions.GetBalance(accountID)
}

// GetPositions returns the account's positions, empty when none exist.
func (s *Service) GetPositions(accountID string) ([]domain.Position, error) {
	return s.positions.ListPositions(accountID)
}

// GetTransactions returns the account's audit trail, newest first.
func (s *Service) GetTransactions(accountID string) ([]domain.Transaction, error) {
	return s.transactions.List(accountID)
}

// currentNav asks the quote provider for the instrument's latest NAV and
// falls back to the stored reference NAV when the provider has nothing.
func (s *Service) currentNav(pos *domain.Position) float64 {
	nav, err := s.navs.LatestNav(pos.InstrumentID)
	if err != nil || nav <= 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("instrument", pos.InstrumentID).Msg("NAV lookup failed, using stored reference")
		}
		return pos.ReferenceNav
	}
	return nav
}

// append writes the audit trail entry. It runs before the funds/position
// mutation it describes: the trail lives in a separate database, and a
// mutation must never apply when its entry could not be written.
func (s *Service) append(accountID string, kind domain.TransactionKind, amount float64, instrumentID string) error {
	return s.transactions.Append(&domain.Transaction{
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		InstrumentID: instrumentID,
		Timestamp:    time.Now(),
	})
}

// mirrorBalance copies the committed balance onto the deposit record.
// Best effort; the ledger is the source of truth.
func (s *Service) mirrorBalance(accountID string) {
	if s.mirror == nil {
		return
	}
	balance, err := s.positions.GetBalance(accountID)
	if err != nil {
		return
	}
	if err := s.mirror.UpdateAvailableFunds(accountID, balance); err != nil {
		s.log.Debug().Err(err).Str("account", accountID).Msg("Funds mirror update skipped")
	}
}
