package domain

import "context"

// BlobStore is the opaque document store. Keys are account-scoped relative
// paths; there is no transactional guarantee with the record databases.
type BlobStore interface {
	// Put stores data under key and returns the key it was stored at.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get retrieves the blob stored at key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// TravelDocExtractor is the MRZ/travel-document extraction service.
// A FAILURE status is a valid result, not an error; errors are reserved
// for transport and schema failures.
type TravelDocExtractor interface {
	Extract(ctx context.Context, blobKey string) (*TravelDocument, error)
}

// TextExtractor is the document-to-text extraction service. Supports PDF
// and common image formats; anything else fails with ErrUnsupportedFormat.
type TextExtractor interface {
	Extract(ctx context.Context, blobKey string) (string, error)
}

// DocumentVerifier is the language-model verification service. Each method
// fails loudly with ErrExternalService on transport or schema-parse failure
// instead of returning a best-guess verdict.
type DocumentVerifier interface {
	// VerifyIdentity is the AI fallback for the identity stage, used only
	// when machine extraction of the travel document failed upstream.
	VerifyIdentity(ctx context.Context, documentText string, expected IdentityFields) (*IdentityVerdict, error)

	// VerifyIncome checks payslip text against the expected employee name
	// and declared salary bracket.
	VerifyIncome(ctx context.Context, documentText, expectedName string, expectedBracket SalaryBracket) (*IncomeVerdict, error)

	// VerifyBankStatement checks statement text for the expected name,
	// address, IBAN and BIC, tolerating fuzzy ordering.
	VerifyBankStatement(ctx context.Context, documentText, expectedName, expectedAddress, expectedIBAN, expectedBIC string) (*BankVerdict, error)
}

// NavProvider supplies the latest per-share price for an instrument.
type NavProvider interface {
	// LatestNav returns the current NAV for the instrument. Callers fall
	// back to a position's stored reference NAV when this fails.
	LatestNav(instrumentID string) (float64, error)
}
