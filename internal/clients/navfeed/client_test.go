package navfeed

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/domain"
)

func TestLatestNav(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nav/fund-abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"instrument_id":"fund-abc","nav":104.25}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	nav, err := client.LatestNav("fund-abc")
	require.NoError(t, err)
	assert.Equal(t, 104.25, nav)
}

func TestLatestNav_UnknownInstrument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	_, err := client.LatestNav("fund-missing")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestLatestNav_NonPositivePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"instrument_id":"fund-abc","nav":0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	_, err := client.LatestNav("fund-abc")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestLatestNav_ServiceDown(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop())

	_, err := client.LatestNav("fund-abc")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}
