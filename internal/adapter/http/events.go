package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"adwatch/internal/core/domain"
)

type eventResponse struct {
	Counted  bool  `json:"counted"`
	NewValue int64 `json:"new_value"`
}

// handleRecordEvent records a click or impression against an ad. Events
// against a paused ad are accepted and reported with counted=false; the
// counter does not move. The ad-serving surface treats both outcomes as
// success.
func (h *Handler) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	id := h.adID(w, r)
	if id == nil {
		return
	}
	kind := domain.CounterKind(chi.URLParam(r, "kind"))
	switch kind {
	case "click":
		kind = domain.CounterClicks
	case "impression":
		kind = domain.CounterImpressions
	default:
		http.Error(w, "unknown event kind", http.StatusBadRequest)
		return
	}
	res, err := h.svc.RecordEvent(r.Context(), *id, kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, eventResponse{Counted: res.Counted, NewValue: res.NewValue})
}
