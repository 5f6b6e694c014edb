package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// optInt64 distinguishes an absent JSON field from an explicit null from a
// number. Absent leaves the limit unchanged; null removes it.
type optInt64 struct {
	set   bool
	value *int64
}

func (o *optInt64) UnmarshalJSON(b []byte) error {
	o.set = true
	if string(b) == "null" {
		o.value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v < 0 {
		return errNegativeLimit
	}
	o.value = &v
	return nil
}

var errNegativeLimit = errors.New("limit must be non-negative")

type editAdRequest struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	ImageURL       *string        `json:"image_url"`
	RedirectURL    *string        `json:"redirect_url"`
	Status         *domain.Status `json:"status"`
	MaxClicks      optInt64       `json:"max_clicks"`
	MaxImpressions optInt64       `json:"max_impressions"`
}

// handleEditAd applies an operator edit: content fields, limit changes
// (explicit null clears a limit) and manual status toggles. The response
// carries the post-reconcile state, so pausing an ad or removing the
// limit that paused it is reflected immediately.
func (h *Handler) handleEditAd(w http.ResponseWriter, r *http.Request) {
	id := h.adID(w, r)
	if id == nil {
		return
	}
	var req editAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != nil && *req.Status != domain.StatusActive && *req.Status != domain.StatusPaused {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	ad, err := h.svc.ApplyEdit(r.Context(), *id, port.AdEdit{
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		RedirectURL:    req.RedirectURL,
		Status:         req.Status,
		MaxClicks:      port.OptionalInt64{Set: req.MaxClicks.set, Value: req.MaxClicks.value},
		MaxImpressions: port.OptionalInt64{Set: req.MaxImpressions.set, Value: req.MaxImpressions.value},
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAdResponse(ad))
}
