// Package deposit provides intake, persistence and HTTP handlers for deposit
// applications. A deposit is the KYC dossier a client submits alongside their
// first transfer: declared identity fields, an income bracket, bank details
// and four supporting documents.
// This file implements the Repository, which handles deposit persistence in deposits.db.
package deposit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

const depositColumns = `account_id, full_name, personal_id, date_of_birth,
	address, city, postal_code, income_bracket, iban, bic,
	doc_personal_id, doc_address_proof, doc_bank_statement, doc_income_proof,
	status, status_reason, available_funds, created_at, edited_at`

// Repository handles deposit persistence in deposits.db.
// One deposit record per account; a resubmission replaces the previous one.
type Repository struct {
	depositsDB *sql.DB        // deposits.db - deposits table
	log        zerolog.Logger // Structured logger
}

// NewRepository creates a new deposit repository.
//
// Parameters:
//   - depositsDB: Database connection to deposits.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(depositsDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		depositsDB: depositsDB,
		log:        log.With().Str("repo", "deposits").Logger(),
	}
}

// Get returns the deposit record for the given account.
//
// Returns:
//   - *domain.Deposit: The deposit record
//   - error: domain.ErrNotFound if no deposit exists for the account
func (r *Repository) Get(accountID string) (*domain.Deposit, error) {
	row := r.depositsDB.QueryRow(
		"SELECT "+depositColumns+" FROM deposits WHERE account_id = ?",
		accountID,
	)
	dep, err := scanDeposit(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("deposit for account %s not found", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit for %s: %w", accountID, err)
	}
	return dep, nil
}

// Upsert writes the full deposit record, replacing any previous submission
// for the same account.
func (r *Repository) Upsert(dep *domain.Deposit) error {
	query := `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			full_name = excluded.full_name,
			personal_id = excluded.personal_id,
			date_of_birth = excluded.date_of_birth,
			address = excluded.address,
			city = excluded.city,
			postal_code = excluded.postal_code,
			income_bracket = excluded.income_bracket,
			iban = excluded.iban,
			bic = excluded.bic,
			doc_personal_id = excluded.doc_personal_id,
			doc_address_proof = excluded.doc_address_proof,
			doc_bank_statement = excluded.doc_bank_statement,
			doc_income_proof = excluded.doc_income_proof,
			status = excluded.status,
			status_reason = excluded.status_reason,
			available_funds = excluded.available_funds,
			edited_at = excluded.edited_at
	`

	_, err := r.depositsDB.Exec(query,
		dep.AccountID, dep.FullName, dep.PersonalID, dep.DateOfBirth,
		dep.Address, dep.City, dep.PostalCode, dep.IncomeBracket, dep.IBAN, dep.BIC,
		dep.Documents.PersonalID, dep.Documents.AddressProof,
		dep.Documents.BankStatement, dep.Documents.IncomeProof,
		dep.Status, dep.StatusReason, dep.AvailableFunds,
		dep.CreatedAt.Unix(), dep.EditedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deposit for %s: %w", dep.AccountID, err)
	}

	r.log.Debug().
		Str("account", dep.AccountID).
		Str("status", string(dep.Status)).
		Msg("Upserted deposit")

	return nil
}

// UpdateStatus sets the verification outcome on a deposit and bumps edited_at.
func (r *Repository) UpdateStatus(accountID string, status domain.DepositStatus, reason string) error {
	result, err := r.depositsDB.Exec(
		"UPDATE deposits SET status = ?, status_reason = ?, edited_at = ? WHERE account_id = ?",
		status, reason, time.Now().Unix(), accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deposit status for %s: %w", accountID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NotFoundf("deposit for account %s not found", accountID)
	}

	r.log.Info().
		Str("account", accountID).
		Str("status", string(status)).
		Msg("Updated deposit status")

	return nil
}

// UpdateAvailableFunds mirrors the ledger's available-funds balance onto the
// deposit record so the intake read model reflects portfolio activity.
func (r *Repository) UpdateAvailableFunds(accountID string, funds float64) error {
	result, err := r.depositsDB.Exec(
		"UPDATE deposits SET available_funds = ?, edited_at = ? WHERE account_id = ?",
		funds, time.Now().Unix(), accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update available funds for %s: %w", accountID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NotFoundf("deposit for account %s not found", accountID)
	}

	return nil
}

// ListPendingOlderThan returns account IDs whose deposit has sat in pending
// since before the cutoff. The scheduler uses this to requeue verifications
// that were lost to a crash mid-run.
func (r *Repository) ListPendingOlderThan(cutoff time.Time) ([]string, error) {
	rows, err := r.depositsDB.Query(
		"SELECT account_id FROM deposits WHERE status = ? AND edited_at < ?",
		domain.DepositStatusPending, cutoff.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending deposits: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pending deposit: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending deposits: %w", err)
	}

	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeposit(row rowScanner) (*domain.Deposit, error) {
	var dep domain.Deposit
	var createdAt, editedAt int64

	err := row.Scan(
		&dep.AccountID, &dep.FullName, &dep.PersonalID, &dep.DateOfBirth,
		&dep.Address, &dep.City, &dep.PostalCode, &dep.IncomeBracket, &dep.IBAN, &dep.BIC,
		&dep.Documents.PersonalID, &dep.Documents.AddressProof,
		&dep.Documents.BankStatement, &dep.Documents.IncomeProof,
		&dep.Status, &dep.StatusReason, &dep.AvailableFunds,
		&createdAt, &editedAt,
	)
	if err != nil {
		return nil, err
	}

	dep.CreatedAt = time.Unix(createdAt, 0)
	dep.EditedAt = time.Unix(editedAt, 0)
	return &dep, nil
}
