package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adwatch/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP. It holds the usecase port to execute business logic and a logger
// for structured logging. Routes are registered on a chi.Router for
// convenient method handling.
type Handler struct {
	svc    port.AdUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. It accepts a
// usecase implementation and a logger. The returned Handler registers
// handlers for each endpoint on a new chi.Router.
func NewHandler(svc port.AdUseCase, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ads", func(r chi.Router) {
			r.Post("/", h.handleCreateAd)
			r.Get("/", h.handleListAds)
			r.Get("/{id}", h.handleGetAd)
			r.Patch("/{id}", h.handleEditAd)
			r.Delete("/{id}", h.handleDeleteAd)
			r.Post("/{id}/events/{kind}", h.handleRecordEvent)
		})
		r.Get("/history", h.handleListHistory)
		r.Get("/stats/overview", h.handleStatsOverview)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// writeJSON encodes v with the proper content type. Encoding failures are
// logged; the status line has already been sent by then.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		http.Error(w, "ad not found", http.StatusNotFound)
	case errors.Is(err, port.ErrTransientConflict):
		http.Error(w, "conflicting concurrent updates, retry", http.StatusConflict)
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
