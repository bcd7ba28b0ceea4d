package approval

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/modules/accounts"

	_ "github.com/mattn/go-sqlite3"
)

func setupAccountsDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			email        TEXT NOT NULL,
			role         TEXT NOT NULL,
			deposit_tier TEXT,
			manager_id   TEXT
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE managed_accounts (
			manager_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			PRIMARY KEY (manager_id, account_id)
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE channels (
			id         TEXT PRIMARY KEY,
			client_id  TEXT NOT NULL,
			manager_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (client_id, manager_id)
		)
	`)
	require.NoError(t, err)

	return db
}

// MockStatusWriter is a mock deposit status writer for testing
type MockStatusWriter struct {
	mock.Mock
}

func (m *MockStatusWriter) UpdateStatus(accountID string, status domain.DepositStatus, reason string) error {
	args := m.Called(accountID, status, reason)
	return args.Error(0)
}

func seedAccount(t *testing.T, repo *accounts.Repository, id string, role domain.Role) {
	t.Helper()
	err := repo.Create(&domain.Account{ID: id, Name: id, Email: id + "@example.com", Role: role})
	require.NoError(t, err)
}

func TestApplyAcceptedAssignsManager(t *testing.T) {
	repo := accounts.NewRepository(setupAccountsDB(t), zerolog.Nop())
	seedAccount(t, repo, "client-1", domain.RoleClient)
	seedAccount(t, repo, "mgr-1", domain.RoleManager)

	statuses := new(MockStatusWriter)
	statuses.On("UpdateStatus", "client-1", domain.DepositStatusAccepted, "").Return(nil)

	svc := NewService(statuses, repo, zerolog.Nop())
	err := svc.Apply("client-1", domain.Verdict{Accepted: true})
	require.NoError(t, err)

	statuses.AssertExpectations(t)

	acc, err := repo.Get("client-1")
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", acc.ManagerID)

	managed, err := repo.ListManagedAccounts("mgr-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"client-1"}, managed)

	ch, err := repo.EnsureChannel("fresh-id", "client-1", "mgr-1")
	require.NoError(t, err)
	assert.NotEqual(t, "fresh-id", ch.ID, "channel should already exist from the apply run")
}

func TestApplyRejectedStillAssignsManager(t *testing.T) {
	repo := accounts.NewRepository(setupAccountsDB(t), zerolog.Nop())
	seedAccount(t, repo, "client-1", domain.RoleClient)
	seedAccount(t, repo, "mgr-1", domain.RoleManager)

	statuses := new(MockStatusWriter)
	statuses.On("UpdateStatus", "client-1", domain.DepositStatusRejected, "income bracket mismatch").Return(nil)

	svc := NewService(statuses, repo, zerolog.Nop())
	err := svc.Apply("client-1", domain.Verdict{
		Accepted:    false,
		Stage:       domain.StageIncome,
		Explanation: "income bracket mismatch",
	})
	require.NoError(t, err)

	acc, err := repo.Get("client-1")
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", acc.ManagerID)
}

func TestApplyIsIdempotent(t *testing.T) {
	repo := accounts.NewRepository(setupAccountsDB(t), zerolog.Nop())
	seedAccount(t, repo, "client-1", domain.RoleClient)
	seedAccount(t, repo, "mgr-1", domain.RoleManager)
	seedAccount(t, repo, "mgr-2", domain.RoleManager)

	statuses := new(MockStatusWriter)
	statuses.On("UpdateStatus", "client-1", domain.DepositStatusAccepted, "").Return(nil)

	svc := NewService(statuses, repo, zerolog.Nop())

	require.NoError(t, svc.Apply("client-1", domain.Verdict{Accepted: true}))
	first, err := repo.Get("client-1")
	require.NoError(t, err)

	// Rerunning the saga must not reshuffle the client to another manager
	// or duplicate the managed-account pair.
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Apply("client-1", domain.Verdict{Accepted: true}))
	}

	after, err := repo.Get("client-1")
	require.NoError(t, err)
	assert.Equal(t, first.ManagerID, after.ManagerID)

	managed, err := repo.ListManagedAccounts(first.ManagerID)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-1"}, managed)
}

func TestApplyNoManagersSkipsAssignment(t *testing.T) {
	repo := accounts.NewRepository(setupAccountsDB(t), zerolog.Nop())
	seedAccount(t, repo, "client-1", domain.RoleClient)

	statuses := new(MockStatusWriter)
	statuses.On("UpdateStatus", "client-1", domain.DepositStatusAccepted, "").Return(nil)

	svc := NewService(statuses, repo, zerolog.Nop())
	err := svc.Apply("client-1", domain.Verdict{Accepted: true})
	require.NoError(t, err)

	acc, err := repo.Get("client-1")
	require.NoError(t, err)
	assert.Empty(t, acc.ManagerID)
}

func TestApplyStatusWriteFailurePropagates(t *testing.T) {
	repo := accounts.NewRepository(setupAccountsDB(t), zerolog.Nop())

	statuses := new(MockStatusWriter)
	statuses.On("UpdateStatus", "missing", domain.DepositStatusAccepted, "").
		Return(domain.NotFoundf("deposit for account missing not found"))

	svc := NewService(statuses, repo, zerolog.Nop())
	err := svc.Apply("missing", domain.Verdict{Accepted: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
