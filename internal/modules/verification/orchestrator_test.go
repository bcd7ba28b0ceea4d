package verification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/custodianhq/custodian/internal/domain"
)

// MockTravelDocExtractor is a mock MRZ extraction client for testing
type MockTravelDocExtractor struct {
	mock.Mock
}

func (m *MockTravelDocExtractor) Extract(ctx context.Context, blobKey string) (*domain.TravelDocument, error) {
	args := m.Called(ctx, blobKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TravelDocument), args.Error(1)
}

// MockTextExtractor is a mock document-to-text client for testing
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, blobKey string) (string, error) {
	args := m.Called(ctx, blobKey)
	return args.String(0), args.Error(1)
}

// MockDocumentVerifier is a mock language-model verification client for testing
type MockDocumentVerifier struct {
	mock.Mock
}

func (m *MockDocumentVerifier) VerifyIdentity(ctx context.Context, documentText string, expected domain.IdentityFields) (*domain.IdentityVerdict, error) {
	args := m.Called(ctx, documentText, expected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityVerdict), args.Error(1)
}

func (m *MockDocumentVerifier) VerifyIncome(ctx context.Context, documentText, expectedName string, expectedBracket domain.SalaryBracket) (*domain.IncomeVerdict, error) {
	args := m.Called(ctx, documentText, expectedName, expectedBracket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IncomeVerdict), args.Error(1)
}

func (m *MockDocumentVerifier) VerifyBankStatement(ctx context.Context, documentText, expectedName, expectedAddress, expectedIBAN, expectedBIC string) (*domain.BankVerdict, error) {
	args := m.Called(ctx, documentText, expectedName, expectedAddress, expectedIBAN, expectedBIC)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankVerdict), args.Error(1)
}

func testDeposit() *domain.Deposit {
	return &domain.Deposit{
		AccountID:     "acc-1",
		FullName:      "John Doe",
		PersonalID:    "X1234567",
		DateOfBirth:   "1990-03-15",
		Address:       "1 Main Street",
		City:          "Springfield",
		PostalCode:    "12345",
		IncomeBracket: domain.Bracket30kTo50k,
		IBAN:          "DE89370400440532013000",
		BIC:           "COBADEFFXXX",
		Documents: domain.DocumentRefs{
			PersonalID:    "deposits/acc-1/personal_id_a",
			AddressProof:  "deposits/acc-1/address_proof_b",
			BankStatement: "deposits/acc-1/bank_statement_c",
			IncomeProof:   "deposits/acc-1/income_proof_d",
		},
	}
}

func matchingTravelDoc() *domain.TravelDocument {
	return &domain.TravelDocument{
		Status:         domain.ExtractionSuccess,
		Surname:        "DOE",
		GivenName:      "JOHN",
		DocumentNumber: "X1234567",
		BirthDateRaw:   "900315",
	}
}

func newTestOrchestrator(mrz *MockTravelDocExtractor, texts *MockTextExtractor, verifier *MockDocumentVerifier) *Orchestrator {
	return NewOrchestrator(mrz, texts, verifier, 5*time.Second, zerolog.Nop())
}

func TestRunAllStagesPass(t *testing.T) {
	mrz := new(MockTravelDocExtractor)
	texts := new(MockTextExtractor)
	verifier := new(MockDocumentVerifier)
	dep := testDeposit()

	mrz.On("Extract", mock.Anything, dep.Documents.PersonalID).Return(matchingTravelDoc(), nil)
	texts.On("Extract", mock.Anything, dep.Documents.IncomeProof).Return("payslip text", nil)
	texts.On("Extract", mock.Anything, dep.Documents.BankStatement).Return("statement text", nil)
	verifier.On("VerifyIncome", mock.Anything, "payslip text", dep.FullName, dep.IncomeBracket).
		Return(&domain.IncomeVerdict{AllFieldsMatch: true}, nil)
	verifier.On("VerifyBankStatement", mock.Anything, "statement text", dep.FullName, mock.Anything, dep.IBAN, dep.BIC).
		Return(&domain.BankVerdict{AllFieldsMatch: true}, nil)

	verdict := newTestOrchestrator(mrz, texts, verifier).Run(context.Background(), dep)

	assert.True(t, verdict.Accepted)
	mrz.AssertExpectations(t)
	verifier.AssertExpectations(t)
}

func TestRunIdentityFailureShortCircuits(t *testing.T) {
	mrz := new(MockTravelDocExtractor)
	texts := new(MockTextExtractor)
	verifier := new(MockDocumentVerifier)
	dep := testDeposit()
	dep.FullName = "Peter Smith" // Will not match the travel document

	mrz.On("Extract", mock.Anything, dep.Documents.PersonalID).Return(matchingTravelDoc(), nil)

	verdict := newTestOrchestrator(mrz, texts, verifier).Run(context.Background(), dep)

	assert.False(t, verdict.Accepted)
	assert.Equal(t, domain.StageIdentity, verdict.Stage)
	assert.Contains(t, verdict.Explanation, "name mismatch")

	// Later stages must never have been invoked.
	verifier.AssertNotCalled(t, "VerifyIncome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	verifier.AssertNotCalled(t, "VerifyBankStatement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	texts.AssertNotCalled(t, "Extract", mock.Anything, dep.Documents.IncomeProof)
	texts.AssertNotCalled(t, "Extract", mock.Anything, dep.Documents.BankStatement)
}

func TestRunIdentityAIFallbackOnExtractionFailure(t *testing.T) {
	mrz := new(MockTravelDocExtractor)
	texts := new(MockTextExtractor)
	verifier := new(MockDocumentVerifier)
	dep := testDeposit()

	mrz.On("Extract", mock.Anything, dep.Documents.PersonalID).
		Return(&domain.TravelDocument{Status: domain.ExtractionFailure}, nil)
	texts.On("Extract", mock.Anything, dep.Documents.PersonalID).Return("scanned id text", nil)
	verifier.On("VerifyIdentity", mock.Anything, "scanned id text", mock.Anything).
		Return(&domain.IdentityVerdict{NameMatch: true, IDMatch: true, DOBMatch: true, AllFieldsMatch: true}, nil)
	texts.On("Extract", mock.Anything, dep.Documents.IncomeProof).Return("payslip text", nil)
	texts.On("Extract", mock.Anything, dep.Documents.BankStatement).Return("statement text", nil)
	verifier.On("VerifyIncome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.IncomeVerdict{AllFieldsMatch: true}, nil)
	verifier.On("VerifyBankStatement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.BankVerdict{AllFieldsMatch: true}, nil)

	verdict := newTestOrchestrator(mrz, texts, verifier).Run(context.Background(), dep)

	assert.True(t, verdict.Accepted)
	verifier.AssertCalled(t, "VerifyIdentity", mock.Anything, "scanned id text", mock.Anything)
}

func TestRunIncomeRejectionCarriesExplanation(t *testing.T) {
	mrz := new(MockTravelDocExtractor)
	texts := new(MockTextExtractor)
	verifier := new(MockDocumentVerifier)
	dep := testDeposit()

	mrz.On("Extract", mock.Anything, dep.Documents.PersonalID).Return(matchingTravelDoc(), nil)
	texts.On("Extract", mock.Anything, dep.Documents.IncomeProof).Return("payslip text", nil)
	verifier.On("VerifyIncome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.IncomeVerdict{
			NameMatch:       true,
			BracketMatch:    false,
			AllFieldsMatch:  false,
			InferredBracket: domain.Bracket15kTo30k,
			Explanation:     "inferred bracket 15000-30000 does not match declared 30000-50000",
		}, nil)

	verdict := newTestOrchestrator(mrz, texts, verifier).Run(context.Background(), dep)

	assert.False(t, verdict.Accepted)
	assert.Equal(t, domain.StageIncome, verdict.Stage)
	assert.Contains(t, verdict.Explanation, "does not match declared")
	verifier.AssertNotCalled(t, "VerifyBankStatement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunExternalFailureRejectsAsUnavailable(t *testing.T) {
	mrz := new(MockTravelDocExtractor)
	texts := new(MockTextExtractor)
	verifier := new(MockDocumentVerifier)
	dep := testDeposit()

	mrz.On("Extract", mock.Anything, dep.Documents.PersonalID).
		Return(nil, domain.ExternalServicef("MRZ service returned status 503"))

	verdict := newTestOrchestrator(mrz, texts, verifier).Run(context.Background(), dep)

	assert.False(t, verdict.Accepted)
	assert.Equal(t, domain.StageIdentity, verdict.Stage)
	assert.Contains(t, verdict.Explanation, "verification unavailable")
}
