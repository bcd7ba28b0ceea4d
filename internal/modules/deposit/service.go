package deposit

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// allowedExtensions are the document formats the text extraction service
// handles. Anything else is rejected at intake rather than failing later
// inside the verification pipeline.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// TierWriter stores the tier a deposit amount qualifies for.
type TierWriter interface {
	SetDepositTier(accountID string, tier domain.Tier) error
}

// FundsSeeder initializes the account's ledger balance from the deposit
// amount.
type FundsSeeder interface {
	SeedFunds(accountID string, amount float64) error
}

// VerificationEnqueuer schedules the asynchronous verification run for an
// account's deposit.
type VerificationEnqueuer interface {
	EnqueueVerification(accountID string) error
}

// Document is one uploaded file in a deposit submission.
type Document struct {
	Filename string
	Content  []byte
}

// Submission carries the declared fields and uploaded documents of a
// deposit application.
type Submission struct {
	FullName      string
	PersonalID    string
	DateOfBirth   string
	Address       string
	City          string
	PostalCode    string
	IncomeBracket domain.SalaryBracket
	IBAN          string
	BIC           string
	Amount        float64
	Documents     map[domain.DocumentKind]Document
}

// Service implements deposit intake: it validates the submission, uploads
// the documents to blob storage, persists the pending record, seeds the
// ledger balance and schedules verification.
type Service struct {
	repo     *Repository
	blobs    domain.BlobStore
	tiers    TierWriter
	funds    FundsSeeder
	verifier VerificationEnqueuer
	log      zerolog.Logger
}

// NewService creates a new deposit intake service.
func NewService(
	repo *Repository,
	blobs domain.BlobStore,
	tiers TierWriter,
	funds FundsSeeder,
	verifier VerificationEnqueuer,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		tiers:    tiers,
		funds:    funds,
		verifier: verifier,
		log:      log.With().Str("service", "deposit").Logger(),
	}
}

// Submit processes a deposit application. On success the deposit record is
// persisted with pending status, the account's ledger is seeded with the
// deposit amount and a verification run is queued.
//
// Returns:
//   - *domain.Deposit: The persisted pending record
//   - error: domain.ErrValidation on a bad submission, domain.ErrInternal
//     on storage failures
func (s *Service) Submit(ctx context.Context, accountID string, sub Submission) (*domain.Deposit, error) {
	if err := s.validate(accountID, sub); err != nil {
		return nil, err
	}

	refs, err := s.uploadDocuments(ctx, accountID, sub.Documents)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dep := &domain.Deposit{
		AccountID:      accountID,
		FullName:       strings.TrimSpace(sub.FullName),
		PersonalID:     strings.TrimSpace(sub.PersonalID),
		DateOfBirth:    strings.TrimSpace(sub.DateOfBirth),
		Address:        strings.TrimSpace(sub.Address),
		City:           strings.TrimSpace(sub.City),
		PostalCode:     strings.TrimSpace(sub.PostalCode),
		IncomeBracket:  sub.IncomeBracket,
		IBAN:           strings.TrimSpace(sub.IBAN),
		BIC:            strings.TrimSpace(sub.BIC),
		Documents:      refs,
		Status:         domain.DepositStatusPending,
		AvailableFunds: sub.Amount,
		CreatedAt:      now,
		EditedAt:       now,
	}

	if err := s.repo.Upsert(dep); err != nil {
		return nil, domain.Internalf("failed to persist deposit: %v", err)
	}

	// Tier is only recorded when the amount clears the lowest threshold.
	if tier := domain.TierForAmount(sub.Amount); tier != "" {
		if err := s.tiers.SetDepositTier(accountID, tier); err != nil {
			return nil, domain.Internalf("failed to set deposit tier: %v", err)
		}
	}

	if err := s.funds.SeedFunds(accountID, sub.Amount); err != nil {
		return nil, domain.Internalf("failed to seed funds: %v", err)
	}

	if err := s.verifier.EnqueueVerification(accountID); err != nil {
		return nil, domain.Internalf("failed to enqueue verification: %v", err)
	}

	s.log.Info().
		Str("account", accountID).
		Float64("amount", sub.Amount).
		Msg("Deposit submitted")

	return dep, nil
}

// Get returns the deposit record for the given account.
func (s *Service) Get(accountID string) (*domain.Deposit, error) {
	return s.repo.Get(accountID)
}

func (s *Service) validate(accountID string, sub Submission) error {
	if accountID == "" {
		return domain.Validationf("account id is required")
	}
	if strings.TrimSpace(sub.FullName) == "" {
		return domain.Validationf("full name is required")
	}
	if strings.TrimSpace(sub.PersonalID) == "" {
		return domain.Validationf("personal id is required")
	}
	if strings.TrimSpace(sub.DateOfBirth) == "" {
		return domain.Validationf("date of birth is required")
	}
	if !domain.ValidSalaryBracket(sub.IncomeBracket) {
		return domain.Validationf("invalid income bracket %q", sub.IncomeBracket)
	}
	if sub.Amount <= 0 {
		return domain.Validationf("deposit amount must be positive, got %v", sub.Amount)
	}

	for _, kind := range domain.RequiredDocuments {
		doc, ok := sub.Documents[kind]
		if !ok || len(doc.Content) == 0 {
			return domain.Validationf("missing required document %s", kind)
		}
		ext := strings.ToLower(filepath.Ext(doc.Filename))
		if !allowedExtensions[ext] {
			return domain.Validationf("unsupported format %s for document %s", ext, kind)
		}
	}

	return nil
}

// uploadDocuments stores each file under deposits/{account}/{kind}_{uuid}{ext}
// and returns the resulting blob keys.
func (s *Service) uploadDocuments(ctx context.Context, accountID string, docs map[domain.DocumentKind]Document) (domain.DocumentRefs, error) {
	var refs domain.DocumentRefs

	for _, kind := range domain.RequiredDocuments {
		doc := docs[kind]
		ext := strings.ToLower(filepath.Ext(doc.Filename))
		key := fmt.Sprintf("deposits/%s/%s_%s%s", accountID, kind, uuid.NewString(), ext)

		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if _, err := s.blobs.Put(ctx, key, doc.Content, contentType); err != nil {
			return domain.DocumentRefs{}, domain.Internalf("failed to store document %s: %v", kind, err)
		}

		switch kind {
		case domain.DocumentPersonalID:
			refs.PersonalID = key
		case domain.DocumentAddressProof:
			refs.AddressProof = key
		case domain.DocumentBankStatement:
			refs.BankStatement = key
		case domain.DocumentIncomeProof:
			refs.IncomeProof = key
		}
	}

	return refs, nil
}
