package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger/{accountID}", func(r chi.Router) {
		r.Get("/funds", h.HandleGetFunds)
		r.Post("/funds", h.HandleAddFunds)
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
		r.Get("/positions", h.HandleGetPositions)
		r.Get("/transactions", h.HandleGetTransactions)
	})
}
