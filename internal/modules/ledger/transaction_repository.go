// This file implements the TransactionRepository, which handles the
// append-only audit trail in ledger.db. Entries are only ever inserted.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// TransactionRepository handles transaction persistence in ledger.db.
type TransactionRepository struct {
	ledgerDB *sql.DB        // ledger.db - transactions table
	log      zerolog.Logger // Structured logger
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transactions").Logger(),
	}
}

// Append records one transaction. The trail is insert-only; amounts are
// stored as submitted, with kind carrying the direction.
func (r *TransactionRepository) Append(tx *domain.Transaction) error {
	var instrument interface{}
	if tx.InstrumentID != "" {
		instrument = tx.InstrumentID
	}

	result, err := r.ledgerDB.Exec(
		"INSERT INTO transactions (account_id, kind, amount, instrument_id, timestamp) VALUES (?, ?, ?, ?, ?)",
		tx.AccountID, tx.Kind, tx.Amount, instrument, tx.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append %s transaction for %s: %w", tx.Kind, tx.AccountID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		tx.ID = id
	}

	r.log.Debug().
		Str("account", tx.AccountID).
		Str("kind", string(tx.Kind)).
		Float64("amount", tx.Amount).
		Msg("Appended transaction")

	return nil
}

// List returns an account's transactions, newest first.
func (r *TransactionRepository) List(accountID string) ([]domain.Transaction, error) {
	rows, err := r.ledgerDB.Query(
		`SELECT id, account_id, kind, amount, instrument_id, timestamp
		 FROM transactions WHERE account_id = ? ORDER BY id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// CountByKind returns how many transactions of one kind an account has.
// Used by the manager rollup to report buy and sell activity.
func (r *TransactionRepository) CountByKind(accountID string, kind domain.TransactionKind) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE account_id = ? AND kind = ?",
		accountID, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s transactions for %s: %w", kind, accountID, err)
	}
	return count, nil
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var tx domain.Transaction
	var instrument sql.NullString
	var timestamp int64

	if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Kind, &tx.Amount, &instrument, &timestamp); err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.InstrumentID = instrument.String
	tx.Timestamp = time.Unix(timestamp, 0)
	return &tx, nil
}
