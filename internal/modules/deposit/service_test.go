package deposit

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE deposits (
			account_id       TEXT PRIMARY KEY,
			full_name        TEXT NOT NULL,
			personal_id      TEXT NOT NULL,
			date_of_birth    TEXT NOT NULL,
			address          TEXT NOT NULL DEFAULT '',
			city             TEXT NOT NULL DEFAULT '',
			postal_code      TEXT NOT NULL DEFAULT '',
			income_bracket   TEXT NOT NULL,
			iban             TEXT NOT NULL DEFAULT '',
			bic              TEXT NOT NULL DEFAULT '',
			doc_personal_id    TEXT NOT NULL,
			doc_address_proof  TEXT NOT NULL,
			doc_bank_statement TEXT NOT NULL,
			doc_income_proof   TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			status_reason    TEXT NOT NULL DEFAULT '',
			available_funds  REAL NOT NULL DEFAULT 0 CHECK (available_funds >= 0),
			created_at       INTEGER NOT NULL,
			edited_at        INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

// MockBlobStore is a mock blob storage backend for testing
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockTierWriter is a mock tier writer for testing
type MockTierWriter struct {
	mock.Mock
}

func (m *MockTierWriter) SetDepositTier(accountID string, tier domain.Tier) error {
	args := m.Called(accountID, tier)
	return args.Error(0)
}

// MockFundsSeeder is a mock ledger funds seeder for testing
type MockFundsSeeder struct {
	mock.Mock
}

func (m *MockFundsSeeder) SeedFunds(accountID string, amount float64) error {
	args := m.Called(accountID, amount)
	return args.Error(0)
}

// MockVerificationEnqueuer is a mock work queue for testing
type MockVerificationEnqueuer struct {
	mock.Mock
}

func (m *MockVerificationEnqueuer) EnqueueVerification(accountID string) error {
	args := m.Called(accountID)
	return args.Error(0)
}

type testDeps struct {
	service  *Service
	blobs    *MockBlobStore
	tiers    *MockTierWriter
	funds    *MockFundsSeeder
	enqueuer *MockVerificationEnqueuer
}

func newTestService(t *testing.T) testDeps {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, zerolog.Nop())
	blobs := new(MockBlobStore)
	tiers := new(MockTierWriter)
	funds := new(MockFundsSeeder)
	enqueuer := new(MockVerificationEnqueuer)

	return testDeps{
		service:  NewService(repo, blobs, tiers, funds, enqueuer, zerolog.Nop()),
		blobs:    blobs,
		tiers:    tiers,
		funds:    funds,
		enqueuer: enqueuer,
	}
}

func validSubmission() Submission {
	docs := make(map[domain.DocumentKind]Document)
	for _, kind := range domain.RequiredDocuments {
		docs[kind] = Document{Filename: string(kind) + ".pdf", Content: []byte("fake pdf")}
	}
	return Submission{
		FullName:      "John Doe",
		PersonalID:    "X1234567",
		DateOfBirth:   "1990-03-15",
		Address:       "1 Main Street",
		City:          "Springfield",
		PostalCode:    "12345",
		IncomeBracket: domain.Bracket30kTo50k,
		IBAN:          "DE89370400440532013000",
		BIC:           "COBADEFFXXX",
		Amount:        6000,
		Documents:     docs,
	}
}

func TestSubmitHappyPath(t *testing.T) {
	deps := newTestService(t)

	deps.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	deps.tiers.On("SetDepositTier", "acc-1", domain.TierGold).Return(nil)
	deps.funds.On("SeedFunds", "acc-1", 6000.0).Return(nil)
	deps.enqueuer.On("EnqueueVerification", "acc-1").Return(nil)

	dep, err := deps.service.Submit(context.Background(), "acc-1", validSubmission())
	require.NoError(t, err)

	assert.Equal(t, domain.DepositStatusPending, dep.Status)
	assert.Equal(t, 6000.0, dep.AvailableFunds)
	assert.NotEmpty(t, dep.Documents.PersonalID)
	assert.Contains(t, dep.Documents.PersonalID, "deposits/acc-1/personal_id_")
	assert.Contains(t, dep.Documents.IncomeProof, ".pdf")

	deps.blobs.AssertNumberOfCalls(t, "Put", 4)
	deps.tiers.AssertExpectations(t)
	deps.funds.AssertExpectations(t)
	deps.enqueuer.AssertExpectations(t)

	// Record is readable back through the service.
	stored, err := deps.service.Get("acc-1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", stored.FullName)
	assert.Equal(t, domain.DepositStatusPending, stored.Status)
}

func TestSubmitBelowTierThresholdSkipsTierWrite(t *testing.T) {
	deps := newTestService(t)

	sub := validSubmission()
	sub.Amount = 500

	deps.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	deps.funds.On("SeedFunds", "acc-1", 500.0).Return(nil)
	deps.enqueuer.On("EnqueueVerification", "acc-1").Return(nil)

	_, err := deps.service.Submit(context.Background(), "acc-1", sub)
	require.NoError(t, err)

	deps.tiers.AssertNotCalled(t, "SetDepositTier", mock.Anything, mock.Anything)
}

func TestSubmitMissingDocument(t *testing.T) {
	deps := newTestService(t)

	sub := validSubmission()
	delete(sub.Documents, domain.DocumentBankStatement)

	_, err := deps.service.Submit(context.Background(), "acc-1", sub)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "bank_statement")

	// Nothing may be uploaded or queued for an invalid submission.
	deps.blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deps.enqueuer.AssertNotCalled(t, "EnqueueVerification", mock.Anything)
}

func TestSubmitUnsupportedExtension(t *testing.T) {
	deps := newTestService(t)

	sub := validSubmission()
	sub.Documents[domain.DocumentPersonalID] = Document{Filename: "id.docx", Content: []byte("x")}

	_, err := deps.service.Submit(context.Background(), "acc-1", sub)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), ".docx")
}

func TestSubmitInvalidBracket(t *testing.T) {
	deps := newTestService(t)

	sub := validSubmission()
	sub.IncomeBracket = "a lot"

	_, err := deps.service.Submit(context.Background(), "acc-1", sub)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmitNonPositiveAmount(t *testing.T) {
	deps := newTestService(t)

	sub := validSubmission()
	sub.Amount = 0

	_, err := deps.service.Submit(context.Background(), "acc-1", sub)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetNotFound(t *testing.T) {
	deps := newTestService(t)

	_, err := deps.service.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })
	repo := NewRepository(db, zerolog.Nop())

	deps := newTestServiceWith(t, repo)
	deps.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	deps.tiers.On("SetDepositTier", mock.Anything, mock.Anything).Return(nil)
	deps.funds.On("SeedFunds", mock.Anything, mock.Anything).Return(nil)
	deps.enqueuer.On("EnqueueVerification", mock.Anything).Return(nil)

	_, err := deps.service.Submit(context.Background(), "acc-1", validSubmission())
	require.NoError(t, err)

	err = repo.UpdateStatus("acc-1", domain.DepositStatusRejected, "identity check failed")
	require.NoError(t, err)

	stored, err := repo.Get("acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusRejected, stored.Status)
	assert.Equal(t, "identity check failed", stored.StatusReason)

	err = repo.UpdateStatus("missing", domain.DepositStatusAccepted, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func newTestServiceWith(t *testing.T, repo *Repository) testDeps {
	blobs := new(MockBlobStore)
	tiers := new(MockTierWriter)
	funds := new(MockFundsSeeder)
	enqueuer := new(MockVerificationEnqueuer)

	return testDeps{
		service:  NewService(repo, blobs, tiers, funds, enqueuer, zerolog.Nop()),
		blobs:    blobs,
		tiers:    tiers,
		funds:    funds,
		enqueuer: enqueuer,
	}
}
