package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all deposit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/deposits/{accountID}", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/", h.HandleGet)
	})
}
