// Package verifier provides the client for the language-model verification
// service. Each task sends document text plus expected field values with a
// task-specific instruction template and parses a strict structured verdict.
//
// Transport failures, non-200 responses and schema mismatches are all
// pipeline-fatal (domain.ErrExternalService): the client never fabricates a
// pass/fail verdict when the service misbehaves.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// Template identifiers for the three verification tasks.
const (
	templateIdentity = "identity_cross_check"
	templateIncome   = "income_verification"
	templateBank     = "bank_statement_verification"
)

// Client for the language-model verification service
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// Compile-time check
var _ domain.DocumentVerifier = (*Client)(nil)

// NewClient creates a new verification client
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "verifier").Logger(),
	}
}

// verifyRequest is the generic request envelope: a template id plus
// task-specific structured inputs.
type verifyRequest struct {
	TemplateID string                 `json:"template_id"`
	Inputs     map[string]interface{} `json:"inputs"`
}

func (c *Client) post(ctx context.Context, req verifyRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.Internalf("failed to encode verification request: %v", err)
	}

	url := fmt.Sprintf("%s/verify", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Internalf("failed to build verification request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.ExternalServicef("verification request failed (%s): %v", req.TemplateID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalServicef("verification service returned status %d (%s)", resp.StatusCode, req.TemplateID)
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return domain.ExternalServicef("failed to decode verification response (%s): %v", req.TemplateID, err)
	}

	return nil
}

// identityResponse mirrors the strict identity verdict schema. Pointer
// fields let schema violations (missing keys) be detected instead of
// silently defaulting to false.
type identityResponse struct {
	NameMatch      *bool    `json:"name_match"`
	IDMatch        *bool    `json:"id_match"`
	DOBMatch       *bool    `json:"dob_match"`
	AllFieldsMatch *bool    `json:"all_fields_match"`
	Explanations   []string `json:"explanations"`
}

// VerifyIdentity runs the AI identity fallback over extracted document text.
func (c *Client) VerifyIdentity(ctx context.Context, documentText string, expected domain.IdentityFields) (*domain.IdentityVerdict, error) {
	var out identityResponse
	err := c.post(ctx, verifyRequest{
		TemplateID: templateIdentity,
		Inputs: map[string]interface{}{
			"document_text":          documentText,
			"expected_full_name":     expected.FullName,
			"expected_personal_id":   expected.PersonalID,
			"expected_date_of_birth": expected.DateOfBirth,
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.NameMatch == nil || out.IDMatch == nil || out.DOBMatch == nil || out.AllFieldsMatch == nil {
		return nil, domain.ExternalServicef("identity verdict missing required fields")
	}

	return &domain.IdentityVerdict{
		NameMatch:      *out.NameMatch,
		IDMatch:        *out.IDMatch,
		DOBMatch:       *out.DOBMatch,
		AllFieldsMatch: *out.AllFieldsMatch,
		Explanations:   out.Explanations,
	}, nil
}

type incomeResponse struct {
	NameMatch        *bool   `json:"name_match"`
	PayDateOldEnough *bool   `json:"pay_date_old_enough"`
	NetPayDetected   *bool   `json:"net_pay_detected"`
	InferredBracket  *string `json:"inferred_bracket"`
	BracketMatch     *bool   `json:"bracket_match"`
	AllFieldsMatch   *bool   `json:"all_fields_match"`
	Explanation      string  `json:"explanation"`
}

// VerifyIncome checks payslip text against the expected employee name and
// declared salary bracket. The service annualizes a monthly net figure
// before inferring the bracket.
func (c *Client) VerifyIncome(ctx context.Context, documentText, expectedName string, expectedBracket domain.SalaryBracket) (*domain.IncomeVerdict, error) {
	var out incomeResponse
	err := c.post(ctx, verifyRequest{
		TemplateID: templateIncome,
		Inputs: map[string]interface{}{
			"document_text":    documentText,
			"expected_name":    expectedName,
			"expected_bracket": string(expectedBracket),
			"bracket_options":  domain.SalaryBrackets,
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.NameMatch == nil || out.PayDateOldEnough == nil || out.NetPayDetected == nil ||
		out.InferredBracket == nil || out.BracketMatch == nil || out.AllFieldsMatch == nil {
		return nil, domain.ExternalServicef("income verdict missing required fields")
	}

	inferred := domain.SalaryBracket(*out.InferredBracket)
	if inferred != "" && !domain.ValidSalaryBracket(inferred) {
		return nil, domain.ExternalServicef("income verdict has unknown bracket %q", inferred)
	}

	return &domain.IncomeVerdict{
		NameMatch:        *out.NameMatch,
		PayDateOldEnough: *out.PayDateOldEnough,
		NetPayDetected:   *out.NetPayDetected,
		InferredBracket:  inferred,
		BracketMatch:     *out.BracketMatch,
		AllFieldsMatch:   *out.AllFieldsMatch,
		Explanation:      out.Explanation,
	}, nil
}

type bankResponse struct {
	NameFound      *bool  `json:"name_found"`
	AddressFound   *bool  `json:"address_found"`
	IBANFound      *bool  `json:"iban_found"`
	BICFound       *bool  `json:"bic_found"`
	AllFieldsMatch *bool  `json:"all_fields_match"`
	Explanation    string `json:"explanation"`
}

// VerifyBankStatement checks statement text for the expected holder fields.
// Address components may appear in any order; minor formatting variance is
// tolerated by the service.
func (c *Client) VerifyBankStatement(ctx context.Context, documentText, expectedName, expectedAddress, expectedIBAN, expectedBIC string) (*domain.BankVerdict, error) {
	var out bankResponse
	err := c.post(ctx, verifyRequest{
		TemplateID: templateBank,
		Inputs: map[string]interface{}{
			"document_text":    documentText,
			"expected_name":    expectedName,
			"expected_address": expectedAddress,
			"expected_iban":    expectedIBAN,
			"expected_bic":     expectedBIC,
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.NameFound == nil || out.AddressFound == nil || out.IBANFound == nil ||
		out.BICFound == nil || out.AllFieldsMatch == nil {
		return nil, domain.ExternalServicef("bank statement verdict missing required fields")
	}

	return &domain.BankVerdict{
		NameFound:      *out.NameFound,
		AddressFound:   *out.AddressFound,
		IBANFound:      *out.IBANFound,
		BICFound:       *out.BICFound,
		AllFieldsMatch: *out.AllFieldsMatch,
		Explanation:    out.Explanation,
	}, nil
}
