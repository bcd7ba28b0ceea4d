// Package handlers provides HTTP handlers for portfolio valuation views.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/modules/valuation"
)

// Handler provides HTTP handlers for valuation endpoints
type Handler struct {
	service *valuation.Service
	log     zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(service *valuation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "valuation").Logger(),
	}
}

// RegisterRoutes registers all valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuation", func(r chi.Router) {
		r.Get("/{accountID}/summary", h.HandleSummary)
		r.Get("/{accountID}/quick-stats", h.HandleQuickStats)
		r.Get("/managers/{managerID}/rollup", h.HandleManagerRollup)
	})
}

// HandleSummary handles GET /api/valuation/{accountID}/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	summary, err := h.service.Summarize(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to compute summary")
		http.Error(w, "Failed to compute summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
}

// HandleQuickStats handles GET /api/valuation/{accountID}/quick-stats
func (h *Handler) HandleQuickStats(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	stats, err := h.service.QuickStats(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to compute quick stats")
		http.Error(w, "Failed to compute quick stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

// HandleManagerRollup handles GET /api/valuation/managers/{managerID}/rollup
func (h *Handler) HandleManagerRollup(w http.ResponseWriter, r *http.Request) {
	managerID := chi.URLParam(r, "managerID")

	rollup, err := h.service.RollupForManager(managerID)
	if err != nil {
		h.log.Error().Err(err).Str("manager", managerID).Msg("Failed to compute rollup")
		http.Error(w, "Failed to compute rollup", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rollup)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
