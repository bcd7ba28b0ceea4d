// Package ledger implements the portfolio ledger: available-funds balances,
// positions and the append-only transaction trail, with buy/sell/add-funds
// operations serialized per account.
// This file implements the PositionRepository, which handles position and
// funds persistence in portfolio.db.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/database"
	"github.com/custodianhq/custodian/internal/domain"
)

// execer is satisfied by both *sql.DB and *sql.Tx so writes can run
// standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// PositionRepository handles position and funds persistence in portfolio.db.
// Positions are keyed by (account, instrument); funds hold one balance row
// per account with a non-negativity CHECK as the last line of defense.
type PositionRepository struct {
	portfolioDB *sql.DB        // portfolio.db - positions, funds tables
	log         zerolog.Logger // Structured logger
}

// NewPositionRepository creates a new position repository.
//
// Parameters:
//   - portfolioDB: Database connection to portfolio.db
//   - log: Structured logger
//
// Returns:
//   - *PositionRepository: Initialized repository instance
func NewPositionRepository(portfolioDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "positions").Logger(),
	}
}

// GetBalance returns the available funds for an account.
// Returns 0.0 if the account has no funds row yet (not an error).
func (r *PositionRepository) GetBalance(accountID string) (float64, error) {
	var balance float64
	err := r.portfolioDB.QueryRow(
		"SELECT balance FROM funds WHERE account_id = ?",
		accountID,
	).Scan(&balance)

	if err == sql.ErrNoRows {
		return 0.0, nil
	}
	if err != nil {
		return 0.0, fmt.Errorf("failed to get balance for %s: %w", accountID, err)
	}

	return balance, nil
}

// SetBalance writes the available funds for an account.
func (r *PositionRepository) SetBalance(accountID string, balance float64) error {
	return r.setBalance(r.portfolioDB, accountID, balance)
}

// SetBalanceTx writes the available funds inside an open transaction.
func (r *PositionRepository) SetBalanceTx(tx *sql.Tx, accountID string, balance float64) error {
	return r.setBalance(tx, accountID, balance)
}

func (r *PositionRepository) setBalance(e execer, accountID string, balance float64) error {
	query := `
		INSERT INTO funds (account_id, balance)
		VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET balance = excluded.balance
	`

	_, err := e.Exec(query, accountID, balance)
	if err != nil {
		return fmt.Errorf("failed to set balance for %s: %w", accountID, err)
	}

	r.log.Debug().
		Str("account", accountID).
		Float64("balance", balance).
		Msg("Set balance")

	return nil
}

// WithTx runs fn inside a transaction on portfolio.db. The positions and
// funds tables share the database, so a buy or sell mutates both rows
// atomically through this.
func (r *PositionRepository) WithTx(fn func(*sql.Tx) error) error {
	return database.WithTransaction(r.portfolioDB, fn)
}

// GetPosition returns one position, or nil if the account doesn't hold the
// instrument.
func (r *PositionRepository) GetPosition(accountID, instrumentID string) (*domain.Position, error) {
	var pos domain.Position
	var purchaseDate int64

	err := r.portfolioDB.QueryRow(
		`SELECT account_id, instrument_id, display_name, shares, reference_nav, purchase_date
		 FROM positions WHERE account_id = ? AND instrument_id = ?`,
		accountID, instrumentID,
	).Scan(&pos.AccountID, &pos.InstrumentID, &pos.DisplayName, &pos.Shares, &pos.ReferenceNav, &purchaseDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s/%s: %w", accountID, instrumentID, err)
	}

	pos.PurchaseDate = time.Unix(purchaseDate, 0)
	return &pos, nil
}

// ListPositions returns every position an account holds.
func (r *PositionRepository) ListPositions(accountID string) ([]domain.Position, error) {
	rows, err := r.portfolioDB.Query(
		`SELECT account_id, instrument_id, display_name, shares, reference_nav, purchase_date
		 FROM positions WHERE account_id = ? ORDER BY instrument_id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var pos domain.Position
		var purchaseDate int64
		if err := rows.Scan(&pos.AccountID, &pos.InstrumentID, &pos.DisplayName, &pos.Shares, &pos.ReferenceNav, &purchaseDate); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.PurchaseDate = time.Unix(purchaseDate, 0)
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// UpsertPosition writes a position, replacing any previous holding of the
// same instrument.
func (r *PositionRepository) UpsertPosition(pos *domain.Position) error {
	return r.upsertPosition(r.portfolioDB, pos)
}

// UpsertPositionTx writes a position inside an open transaction.
func (r *PositionRepository) UpsertPositionTx(tx *sql.Tx, pos *domain.Position) error {
	return r.upsertPosition(tx, pos)
}

func (r *PositionRepository) upsertPosition(e execer, pos *domain.Position) error {
	query := `
		INSERT INTO positions (account_id, instrument_id, display_name, shares, reference_nav, purchase_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, instrument_id) DO UPDATE SET
			display_name = excluded.display_name,
			shares = excluded.shares,
			reference_nav = excluded.reference_nav,
			purchase_date = excluded.purchase_date
	`

	_, err := e.Exec(query,
		pos.AccountID, pos.InstrumentID, pos.DisplayName,
		pos.Shares, pos.ReferenceNav, pos.PurchaseDate.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s/%s: %w", pos.AccountID, pos.InstrumentID, err)
	}

	r.log.Debug().
		Str("account", pos.AccountID).
		Str("instrument", pos.InstrumentID).
		Float64("shares", pos.Shares).
		Msg("Upserted position")

	return nil
}

// DeletePosition removes a position. Idempotent.
func (r *PositionRepository) DeletePosition(accountID, instrumentID string) error {
	return r.deletePosition(r.portfolioDB, accountID, instrumentID)
}

// DeletePositionTx removes a position inside an open transaction.
func (r *PositionRepository) DeletePositionTx(tx *sql.Tx, accountID, instrumentID string) error {
	return r.deletePosition(tx, accountID, instrumentID)
}

func (r *PositionRepository) deletePosition(e execer, accountID, instrumentID string) error {
	_, err := e.Exec(
		"DELETE FROM positions WHERE account_id = ? AND instrument_id = ?",
		accountID, instrumentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete position %s/%s: %w", accountID, instrumentID, err)
	}

	r.log.Debug().
		Str("account", accountID).
		Str("instrument", instrumentID).
		Msg("Deleted position")

	return nil
}
