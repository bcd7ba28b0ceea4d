// Package mrz provides the client for the travel-document extraction service.
// The service reads the machine-readable zone of an uploaded identity
// document and returns structured holder fields.
package mrz

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

// Client for the MRZ extraction service
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Compile-time check
var _ domain.TravelDocExtractor = (*Client)(nil)

// NewClient creates a new MRZ extraction client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "mrz").Logger(),
	}
}

type extractRequest struct {
	BlobKey string `json:"blob_key"`
}

type extractResponse struct {
	Status         *string `json:"status"`
	Surname        string  `json:"surname"`
	GivenName      string  `json:"given_name"`
	DocumentNumber string  `json:"document_number"`
	BirthDateRaw   string  `json:"birth_date_raw"`
}

// Extract runs MRZ extraction on the document stored at blobKey.
// A FAILURE status is a legitimate result (the caller switches to the AI
// fallback); transport and schema failures are ErrExternalService.
func (c *Client) Extract(ctx context.Context, blobKey string) (*domain.TravelDocument, error) {
	body, err := json.Marshal(extractRequest{BlobKey: blobKey})
	if err != nil {
		return nil, domain.Internalf("failed to encode MRZ request: %v", err)
	}

	url := fmt.Sprintf("%s/extract", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Internalf("failed to build MRZ request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.ExternalServicef("MRZ service request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ExternalServicef("MRZ service returned status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.ExternalServicef("failed to decode MRZ response: %v", err)
	}
	if out.Status == nil {
		return nil, domain.ExternalServicef("MRZ response missing status field")
	}

	status := domain.ExtractionStatus(*out.Status)
	if status != domain.ExtractionSuccess && status != domain.ExtractionFailure {
		return nil, domain.ExternalServicef("MRZ response has unknown status %q", *out.Status)
	}

	c.log.Debug().Str("blob", blobKey).Str("status", string(status)).Msg("MRZ extraction completed")

	return &domain.TravelDocument{
		Status:         status,
		Surname:        out.Surname,
		GivenName:      out.GivenName,
		DocumentNumber: out.DocumentNumber,
		BirthDateRaw:   out.BirthDateRaw,
	}, nil
}
