package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/work"
)

// WorkHandlers handles manual work-trigger endpoints
type WorkHandlers struct {
	processor *work.Processor
	log       zerolog.Logger
}

// NewWorkHandlers creates new work handlers
func NewWorkHandlers(processor *work.Processor, log zerolog.Logger) *WorkHandlers {
	return &WorkHandlers{
		processor: processor,
		log:       log.With().Str("handler", "work").Logger(),
	}
}

// RunWorkResponse is the body of POST /api/work/{typeID}/{subject}/run
type RunWorkResponse struct {
	TypeID  string `json:"type_id"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

// HandleRunWork handles POST /api/work/{typeID}/{subject}/run.
// Runs the work type synchronously, bypassing the queue, and reports
// the outcome to the caller.
func (h *WorkHandlers) HandleRunWork(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "typeID")
	subject := chi.URLParam(r, "subject")

	if err := h.processor.ExecuteNow(typeID, subject); err != nil {
		h.log.Error().Err(err).Str("type", typeID).Str("subject", subject).Msg("Manual work run failed")
		status := http.StatusUnprocessableEntity
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RunWorkResponse{TypeID: typeID, Subject: subject, Status: "completed"})
}
