// Package docext provides the client for the document-to-text extraction
// service. It turns stored PDF or image documents into plain text for the
// AI verification stages.
package docext

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

// Client for the document-to-text extraction service
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Compile-time check
var _ domain.TextExtractor = (*Client)(nil)

// NewClient creates a new text extraction client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "docext").Logger(),
	}
}

type extractRequest struct {
	BlobKey string `json:"blob_key"`
}

type extractResponse struct {
	Text *string `json:"text"`
}

// Extract returns the plain text content of the document stored at blobKey.
// The service supports PDF and common image formats; anything else maps to
// ErrUnsupportedFormat. Transport and schema failures map to
// ErrExternalService.
func (c *Client) Extract(ctx context.Context, blobKey string) (string, error) {
	body, err := json.Marshal(extractRequest{BlobKey: blobKey})
	if err != nil {
		return "", domain.Internalf("failed to encode extraction request: %v", err)
	}

	url := fmt.Sprintf("%s/extract", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.Internalf("failed to build extraction request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.ExternalServicef("text extraction request failed: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode
	case http.StatusUnsupportedMediaType:
		return "", fmt.Errorf("%w: blob %s", domain.ErrUnsupportedFormat, blobKey)
	default:
		return "", domain.ExternalServicef("text extraction returned status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.ExternalServicef("failed to decode extraction response: %v", err)
	}
	if out.Text == nil {
		return "", domain.ExternalServicef("extraction response missing text field")
	}

	c.log.Debug().Str("blob", blobKey).Int("chars", len(*out.Text)).Msg("Text extracted")
	return *out.Text, nil
}
