// Package accounts provides persistence and services for client and manager
// accounts, manager assignment, and the communication channels opened between
// a client and their assigned manager.
// This file implements the Repository, which handles account persistence in accounts.db.
package accounts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// Repository handles account, managed-account and channel persistence in
// accounts.db. Manager assignment and channel creation are written with
// idempotent statements so a retried approval run never duplicates state.
type Repository struct {
	accountsDB *sql.DB        // accounts.db - accounts, managed_accounts, channels tables
	log        zerolog.Logger // Structured logger
}

// NewRepository creates a new accounts repository.
//
// Parameters:
//   - accountsDB: Database connection to accounts.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(accountsDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		accountsDB: accountsDB,
		log:        log.With().Str("repo", "accounts").Logger(),
	}
}

// Get returns the account with the given ID.
//
// Returns:
//   - *domain.Account: The account
//   - error: domain.ErrNotFound if the account doesn't exist
func (r *Repository) Get(id string) (*domain.Account, error) {
	var acc domain.Account
	var tier, managerID sql.NullString

	err := r.accountsDB.QueryRow(
		"SELECT id, name, email, role, deposit_tier, manager_id FROM accounts WHERE id = ?",
		id,
	).Scan(&acc.ID, &acc.Name, &acc.Email, &acc.Role, &tier, &managerID)

	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("account %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}

	acc.DepositTier = domain.Tier(tier.String)
	acc.ManagerID = managerID.String
	return &acc, nil
}

// Create inserts a new account. Used by seeding and by the account signup
// handler; the deposit_tier and manager_id columns start empty and are filled
// in by the deposit and approval flows.
func (r *Repository) Create(acc *domain.Account) error {
	_, err := r.accountsDB.Exec(
		"INSERT INTO accounts (id, name, email, role) VALUES (?, ?, ?, ?)",
		acc.ID, acc.Name, acc.Email, acc.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", acc.ID, err)
	}

	r.log.Debug().Str("account", acc.ID).Str("role", string(acc.Role)).Msg("Created account")
	return nil
}

// ListManagers returns every account with the manager role.
// An empty slice is a valid result, not an error.
func (r *Repository) ListManagers() ([]domain.Account, error) {
	rows, err := r.accountsDB.Query(
		"SELECT id, name, email, role, deposit_tier, manager_id FROM accounts WHERE role = ?",
		domain.RoleManager,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query managers: %w", err)
	}
	defer rows.Close()

	var managers []domain.Account
	for rows.Next() {
		var acc domain.Account
		var tier, managerID sql.NullString
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.Role, &tier, &managerID); err != nil {
			return nil, fmt.Errorf("failed to scan manager: %w", err)
		}
		acc.DepositTier = domain.Tier(tier.String)
		acc.ManagerID = managerID.String
		managers = append(managers, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating managers: %w", err)
	}

	return managers, nil
}

// SetDepositTier stores the tier computed from a deposit amount.
func (r *Repository) SetDepositTier(accountID string, tier domain.Tier) error {
	_, err := r.accountsDB.Exec(
		"UPDATE accounts SET deposit_tier = ? WHERE id = ?",
		tier, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to set deposit tier for %s: %w", accountID, err)
	}

	r.log.Debug().Str("account", accountID).Str("tier", string(tier)).Msg("Set deposit tier")
	return nil
}

// AssignManagerIfAbsent sets the manager on a client account only when no
// manager is assigned yet. Returns the manager ID now in effect, so a rerun
// of the approval flow converges on the first assignment instead of
// reshuffling clients between managers.
//
// Returns:
//   - string: The manager ID assigned to the account after the call
//   - error: Error if the account doesn't exist or the query fails
func (r *Repository) AssignManagerIfAbsent(accountID, managerID string) (string, error) {
	_, err := r.accountsDB.Exec(
		"UPDATE accounts SET manager_id = ? WHERE id = ? AND (manager_id IS NULL OR manager_id = '')",
		managerID, accountID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to assign manager for %s: %w", accountID, err)
	}

	var effective sql.NullString
	err = r.accountsDB.QueryRow(
		"SELECT manager_id FROM accounts WHERE id = ?", accountID,
	).Scan(&effective)
	if err == sql.ErrNoRows {
		return "", domain.NotFoundf("account %s not found", accountID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read manager for %s: %w", accountID, err)
	}

	return effective.String, nil
}

// AddManagedAccount records that a manager oversees a client account.
// INSERT OR IGNORE gives set semantics: re-adding an existing pair is a no-op.
func (r *Repository) AddManagedAccount(managerID, accountID string) error {
	_, err := r.accountsDB.Exec(
		"INSERT OR IGNORE INTO managed_accounts (manager_id, account_id) VALUES (?, ?)",
		managerID, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to add managed account %s for manager %s: %w", accountID, managerID, err)
	}
	return nil
}

// ListManagedAccounts returns the client account IDs a manager oversees.
func (r *Repository) ListManagedAccounts(managerID string) ([]string, error) {
	rows, err := r.accountsDB.Query(
		"SELECT account_id FROM managed_accounts WHERE manager_id = ?",
		managerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query managed accounts for %s: %w", managerID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan managed account: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating managed accounts: %w", err)
	}

	return ids, nil
}

// EnsureChannel creates the communication channel between a client and a
// manager if one doesn't already exist, and returns the channel either way.
// The UNIQUE(client_id, manager_id) constraint plus INSERT OR IGNORE makes
// the call idempotent.
func (r *Repository) EnsureChannel(channelID, clientID, managerID string) (*domain.Channel, error) {
	_, err := r.accountsDB.Exec(
		"INSERT OR IGNORE INTO channels (id, client_id, manager_id, created_at) VALUES (?, ?, ?, ?)",
		channelID, clientID, managerID, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel for %s/%s: %w", clientID, managerID, err)
	}

	var ch domain.Channel
	var createdAt int64
	err = r.accountsDB.QueryRow(
		"SELECT id, client_id, manager_id, created_at FROM channels WHERE client_id = ? AND manager_id = ?",
		clientID, managerID,
	).Scan(&ch.ID, &ch.ClientID, &ch.ManagerID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel for %s/%s: %w", clientID, managerID, err)
	}
	ch.CreatedAt = time.Unix(createdAt, 0)

	return &ch, nil
}
