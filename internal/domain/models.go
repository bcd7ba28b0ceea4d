// Package domain provides core domain models and types.
package domain

import "time"

// DepositStatus represents the verification state of a deposit record.
type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "pending"
	DepositStatusAccepted DepositStatus = "accepted"
	DepositStatusRejected DepositStatus = "rejected"
)

// Tier is the coarse account classification derived from deposit size.
type Tier string

const (
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// Deposit tier thresholds.
const (
	TierThresholdSilver   = 1000.0
	TierThresholdGold     = 5000.0
	TierThresholdPlatinum = 25000.0
)

// TierForAmount returns the tier a deposit amount qualifies for,
// or empty string when no tier applies.
func TierForAmount(amount float64) Tier {
	switch {
	case amount >= TierThresholdPlatinum:
		return TierPlatinum
	case amount >= TierThresholdGold:
		return TierGold
	case amount >= TierThresholdSilver:
		return TierSilver
	default:
		return ""
	}
}

// DocumentKind identifies one of the four required KYC documents.
type DocumentKind string

const (
	DocumentPersonalID    DocumentKind = "personal_id"
	DocumentAddressProof  DocumentKind = "address_proof"
	DocumentBankStatement DocumentKind = "bank_statement"
	DocumentIncomeProof   DocumentKind = "income_proof"
)

// RequiredDocuments lists the document kinds every submission must include.
var RequiredDocuments = []DocumentKind{
	DocumentPersonalID,
	DocumentAddressProof,
	DocumentBankStatement,
	DocumentIncomeProof,
}

// DocumentRefs holds the blob store keys of the uploaded documents.
type DocumentRefs struct {
	PersonalID    string `json:"personal_id"`
	AddressProof  string `json:"address_proof"`
	BankStatement string `json:"bank_statement"`
	IncomeProof   string `json:"income_proof"`
}

// Get returns the blob key for a document kind.
func (d DocumentRefs) Get(kind DocumentKind) string {
	switch kind {
	case DocumentPersonalID:
		return d.PersonalID
	case DocumentAddressProof:
		return d.AddressProof
	case DocumentBankStatement:
		return d.BankStatement
	case DocumentIncomeProof:
		return d.IncomeProof
	default:
		return ""
	}
}

// SalaryBracket is one of the six fixed annual income bands a submitter
// declares and the income verifier infers from payslip text.
type SalaryBracket string

const (
	BracketUnder15k  SalaryBracket = "0-15000"
	Bracket15kTo30k  SalaryBracket = "15000-30000"
	Bracket30kTo50k  SalaryBracket = "30000-50000"
	Bracket50kTo75k  SalaryBracket = "50000-75000"
	Bracket75kTo100k SalaryBracket = "75000-100000"
	BracketOver100k  SalaryBracket = "100000+"
)

// SalaryBrackets lists all valid bands in ascending order.
var SalaryBrackets = []SalaryBracket{
	BracketUnder15k,
	Bracket15kTo30k,
	Bracket30kTo50k,
	Bracket50kTo75k,
	Bracket75kTo100k,
	BracketOver100k,
}

// ValidSalaryBracket reports whether s is one of the fixed bands.
func ValidSalaryBracket(s SalaryBracket) bool {
	for _, b := range SalaryBrackets {
		if b == s {
			return true
		}
	}
	return false
}

// Deposit is the per-account deposit record. Created once by intake,
// its status is owned by the verification workflow and its available
// funds by the ledger.
type Deposit struct {
	AccountID      string        `json:"account_id"`
	FullName       string        `json:"full_name"`
	PersonalID     string        `json:"personal_id"`
	DateOfBirth    string        `json:"date_of_birth"`
	Address        string        `json:"address"`
	City           string        `json:"city"`
	PostalCode     string        `json:"postal_code"`
	IncomeBracket  SalaryBracket `json:"income_bracket"`
	IBAN           string        `json:"iban"`
	BIC            string        `json:"bic"`
	Documents      DocumentRefs  `json:"documents"`
	Status         DepositStatus `json:"status"`
	StatusReason   string        `json:"status_reason,omitempty"`
	AvailableFunds float64       `json:"available_funds"`
	CreatedAt      time.Time     `json:"created_at"`
	EditedAt       time.Time     `json:"edited_at"`
}

// Role distinguishes client accounts from relationship managers.
type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
)

// Account is the platform account record. The core only owns depositTier
// and managerId; everything else belongs to external collaborators.
type Account struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	DepositTier Tier     `json:"deposit_tier,omitempty"`
	ManagerID   string   `json:"manager_id,omitempty"`
	ManagedIDs  []string `json:"managed_ids,omitempty"`
}

// Channel is a bidirectional communication channel between a client and
// their relationship manager. At most one per (client, manager) pair.
type Channel struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	ManagerID string    `json:"manager_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Position is a held quantity of one instrument belonging to one account.
// At most one position per instrument within an account's list.
type Position struct {
	AccountID    string    `json:"account_id"`
	InstrumentID string    `json:"instrument_id"`
	DisplayName  string    `json:"display_name"`
	Shares       float64   `json:"shares"`
	ReferenceNav float64   `json:"reference_nav"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// TransactionKind classifies ledger-affecting actions.
type TransactionKind string

const (
	TransactionDeposit TransactionKind = "DEPOSIT"
	TransactionBuy     TransactionKind = "BUY"
	TransactionSell    TransactionKind = "SELL"
)

// Transaction is one append-only audit trail entry. Never mutated or deleted.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    string          `json:"account_id"`
	Kind         TransactionKind `json:"kind"`
	Amount       float64         `json:"amount"`
	InstrumentID string          `json:"instrument_id,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ExtractionStatus is the travel-document extraction service outcome.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "SUCCESS"
	ExtractionFailure ExtractionStatus = "FAILURE"
)

// TravelDocument holds the machine-extracted fields of a travel document.
// BirthDateRaw is free text in a heterogeneous format.
type TravelDocument struct {
	Status         ExtractionStatus `json:"status"`
	Surname        string           `json:"surname"`
	GivenName      string           `json:"given_name"`
	DocumentNumber string           `json:"document_number"`
	BirthDateRaw   string           `json:"birth_date_raw"`
}

// IdentityFields are the declared values the identity stage checks against.
type IdentityFields struct {
	FullName    string
	PersonalID  string
	DateOfBirth string
}

// IdentityVerdict is the identity stage outcome, from either the
// deterministic checker or the AI fallback.
type IdentityVerdict struct {
	NameMatch      bool     `json:"name_match"`
	IDMatch        bool     `json:"id_match"`
	DOBMatch       bool     `json:"dob_match"`
	AllFieldsMatch bool     `json:"all_fields_match"`
	Explanations   []string `json:"explanations"`
}

// IncomeVerdict is the income verification stage outcome.
type IncomeVerdict struct {
	NameMatch        bool          `json:"name_match"`
	PayDateOldEnough bool          `json:"pay_date_old_enough"`
	NetPayDetected   bool          `json:"net_pay_detected"`
	InferredBracket  SalaryBracket `json:"inferred_bracket"`
	BracketMatch     bool          `json:"bracket_match"`
	AllFieldsMatch   bool          `json:"all_fields_match"`
	Explanation      string        `json:"explanation"`
}

// BankVerdict is the bank statement verification stage outcome.
type BankVerdict struct {
	NameFound      bool   `json:"name_found"`
	AddressFound   bool   `json:"address_found"`
	IBANFound      bool   `json:"iban_found"`
	BICFound       bool   `json:"bic_found"`
	AllFieldsMatch bool   `json:"all_fields_match"`
	Explanation    string `json:"explanation"`
}

// Stage identifies one step of the verification pipeline.
type Stage string

const (
	StageIdentity Stage = "identity"
	StageIncome   Stage = "income"
	StageBank     Stage = "bank_statement"
)

// Verdict is the terminal outcome of a verification run: the decision
// plus the explanation of the stage that decided it.
type Verdict struct {
	Accepted    bool   `json:"accepted"`
	Stage       Stage  `json:"stage"`
	Explanation string `json:"explanation"`
}
