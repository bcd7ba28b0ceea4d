// Package handlers provides HTTP handlers for deposit intake and status.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/modules/deposit"
)

// maxUploadBytes bounds the multipart form size. Four scanned documents fit
// comfortably; anything larger is a client error.
const maxUploadBytes = 32 << 20

// Handler provides HTTP handlers for deposit endpoints
type Handler struct {
	service *deposit.Service
	log     zerolog.Logger
}

// NewHandler creates a new deposit handler
func NewHandler(service *deposit.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "deposit").Logger(),
	}
}

// HandleSubmit handles POST /api/deposits/{accountID}
// Expects a multipart form with the declared fields plus one file part per
// required document kind.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		http.Error(w, "Invalid deposit amount", http.StatusBadRequest)
		return
	}

	sub := deposit.Submission{
		FullName:      r.FormValue("full_name"),
		PersonalID:    r.FormValue("personal_id"),
		DateOfBirth:   r.FormValue("date_of_birth"),
		Address:       r.FormValue("address"),
		City:          r.FormValue("city"),
		PostalCode:    r.FormValue("postal_code"),
		IncomeBracket: domain.SalaryBracket(r.FormValue("income_bracket")),
		IBAN:          r.FormValue("iban"),
		BIC:           r.FormValue("bic"),
		Amount:        amount,
		Documents:     make(map[domain.DocumentKind]deposit.Document),
	}

	for _, kind := range domain.RequiredDocuments {
		file, header, err := r.FormFile(string(kind))
		if err != nil {
			http.Error(w, "Missing document: "+string(kind), http.StatusBadRequest)
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, "Failed to read document: "+string(kind), http.StatusBadRequest)
			return
		}
		sub.Documents[kind] = deposit.Document{
			Filename: header.Filename,
			Content:  content,
		}
	}

	dep, err := h.service.Submit(r.Context(), accountID, sub)
	if err != nil {
		h.log.Error().Err(err).Str("account", accountID).Msg("Failed to submit deposit")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dep)
}

// HandleGet handles GET /api/deposits/{accountID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	dep, err := h.service.Get(accountID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Error().Err(err).Str("account", accountID).Msg("Failed to get deposit")
		}
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dep)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
