package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"adwatch/internal/core/domain"
)

type historyResponse struct {
	ID         uuid.UUID         `json:"id"`
	AdID       *uuid.UUID        `json:"ad_id"`
	ActionType domain.ActionType `json:"action_type"`
	AdTitle    string            `json:"ad_title"`
	AdDesc     string            `json:"ad_description"`
	AdImage    string            `json:"ad_image"`
	Clicks     int64             `json:"clicks"`
	CreatedAt  time.Time         `json:"created_at"`
}

// handleListHistory returns the audit trail, newest entries first. An
// optional `limit` query parameter caps the page size (default 100).
func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.svc.ListHistory(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse{
			ID:         e.ID,
			AdID:       e.AdID,
			ActionType: e.ActionType,
			AdTitle:    e.AdTitle,
			AdDesc:     e.AdDesc,
			AdImage:    e.AdImage,
			Clicks:     e.Clicks,
			CreatedAt:  e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleStatsOverview returns active/paused ad counts per type, the
// aggregate behind the management dashboard.
func (h *Handler) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.StatusOverview(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, counts)
}
