// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/modules/ledger"
)

// Handler provides HTTP handlers for ledger endpoints
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// AddFundsRequest is the body of POST /api/ledger/{accountID}/funds
type AddFundsRequest struct {
	Amount float64 `json:"amount"`
}

// BuyRequest is the body of POST /api/ledger/{accountID}/buy
type BuyRequest struct {
	InstrumentID   string  `json:"instrument_id"`
	DisplayName    string  `json:"display_name"`
	AmountInvested float64 `json:"amount_invested"`
	Nav            float64 `json:"nav"`
}

// SellRequest is the body of POST /api/ledger/{accountID}/sell
type SellRequest struct {
	InstrumentID     string  `json:"instrument_id"`
	RedemptionAmount float64 `json:"redemption_amount"`
}

// HandleAddFunds handles POST /api/ledger/{accountID}/funds
func (h *Handler) HandleAddFunds(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req AddFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	balance, err := h.service.AddFunds(accountID, req.Amount)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to add funds")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]float64{"available_funds": balance})
}

// HandleBuy handles POST /api/ledger/{accountID}/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pos, err := h.service.Buy(accountID, req.InstrumentID, req.DisplayName, req.AmountInvested, req.Nav)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Str("instrument", req.InstrumentID).Msg("Buy failed")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, pos)
}

// HandleSell handles POST /api/ledger/{accountID}/sell
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	balance, err := h.service.Sell(accountID, req.InstrumentID, req.RedemptionAmount)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Str("instrument", req.InstrumentID).Msg("Sell failed")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]float64{"available_funds": balance})
}

// HandleGetFunds handles GET /api/ledger/{accountID}/funds
func (h *Handler) HandleGetFunds(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	balance, err := h.service.GetAvailableFunds(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to get funds")
		http.Error(w, "Failed to get funds", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]float64{"available_funds": balance})
}

// HandleGetPositions handles GET /api/ledger/{accountID}/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	positions, err := h.service.GetPositions(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to get positions")
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	writeJSON(w, positions)
}

// HandleGetTransactions handles GET /api/ledger/{accountID}/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	txs, err := h.service.GetTransactions(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to get transactions")
		http.Error(w, "Failed to get transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	writeJSON(w, txs)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
