// Package navfeed provides the client for the fund price service. It
// returns the latest per-share NAV for an instrument; callers fall back
// to stored reference NAVs when the feed is unavailable.
package navfeed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// Client for the NAV price feed
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Compile-time check
var _ domain.NavProvider = (*Client)(nil)

// NewClient creates a new NAV feed client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "navfeed").Logger(),
	}
}

type navResponse struct {
	InstrumentID string  `json:"instrument_id"`
	Nav          float64 `json:"nav"`
}

// LatestNav returns the current NAV for the instrument. Every failure mode
// is ErrExternalService; the portfolio layer falls back to the position's
// reference NAV rather than failing the operation.
func (c *Client) LatestNav(instrumentID string) (float64, error) {
	if instrumentID == "" {
		return 0, domain.Validationf("instrument id is required")
	}

	reqURL := fmt.Sprintf("%s/nav/%s", c.baseURL, url.PathEscape(instrumentID))
	resp, err := c.client.Get(reqURL)
	if err != nil {
		return 0, domain.ExternalServicef("NAV feed request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, domain.ExternalServicef("NAV feed has no price for %s", instrumentID)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, domain.ExternalServicef("NAV feed returned status %d", resp.StatusCode)
	}

	var out navResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, domain.ExternalServicef("failed to decode NAV response: %v", err)
	}
	if out.Nav <= 0 {
		return 0, domain.ExternalServicef("NAV feed returned non-positive price %v for %s", out.Nav, instrumentID)
	}

	c.log.Debug().Str("instrument", instrumentID).Float64("nav", out.Nav).Msg("NAV fetched")

	return out.Nav, nil
}
