package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

type createAdRequest struct {
	Type           domain.AdType `json:"type"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	ImageURL       string        `json:"image_url"`
	RedirectURL    string        `json:"redirect_url"`
	MaxClicks      *int64        `json:"max_clicks"`
	MaxImpressions *int64        `json:"max_impressions"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
}

type adResponse struct {
	ID             uuid.UUID          `json:"id"`
	Type           domain.AdType      `json:"type"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	ImageURL       string             `json:"image_url"`
	RedirectURL    string             `json:"redirect_url"`
	Status         domain.Status      `json:"status"`
	PauseReason    domain.PauseReason `json:"pause_reason"`
	Clicks         int64              `json:"clicks"`
	Impressions    int64              `json:"impressions"`
	MaxClicks      *int64             `json:"max_clicks"`
	MaxImpressions *int64             `json:"max_impressions"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func toAdResponse(ad *domain.Ad) adResponse {
	return adResponse{
		ID:             ad.ID,
		Type:           ad.Type,
		Title:          ad.Title,
		Description:    ad.Description,
		ImageURL:       ad.ImageURL,
		RedirectURL:    ad.RedirectURL,
		Status:         ad.Status,
		PauseReason:    ad.PauseReason,
		Clicks:         ad.Clicks,
		Impressions:    ad.Impressions,
		MaxClicks:      ad.MaxClicks,
		MaxImpressions: ad.MaxImpressions,
		StartDate:      ad.StartDate,
		EndDate:        ad.EndDate,
		CreatedAt:      ad.CreatedAt,
		UpdatedAt:      ad.UpdatedAt,
	}
}

// adID extracts and parses the {id} path parameter. A nil return means
// the response has already been written.
func (h *Handler) adID(w http.ResponseWriter, r *http.Request) *uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid ad id", http.StatusBadRequest)
		return nil
	}
	return &id
}

// handleCreateAd creates a new ad from a form submission. The ad starts
// active; creation is audited as "added".
func (h *Handler) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	var req createAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Type != domain.TypeBanner && req.Type != domain.TypeInterstitial {
		http.Error(w, "invalid ad type", http.StatusBadRequest)
		return
	}
	ad, err := h.svc.CreateAd(r.Context(), port.NewAd{
		Type:           req.Type,
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		RedirectURL:    req.RedirectURL,
		MaxClicks:      req.MaxClicks,
		MaxImpressions: req.MaxImpressions,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toAdResponse(ad))
}

// handleListAds returns ads, optionally filtered by `type` and `status`
// query parameters.
func (h *Handler) handleListAds(w http.ResponseWriter, r *http.Request) {
	var filter port.AdFilter
	if t := r.URL.Query().Get("type"); t != "" {
		typ := domain.AdType(t)
		if typ != domain.TypeBanner && typ != domain.TypeInterstitial {
			http.Error(w, "invalid type filter", http.StatusBadRequest)
			return
		}
		filter.Type = &typ
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.Status(s)
		if st != domain.StatusActive && st != domain.StatusPaused {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filter.Status = &st
	}
	ads, err := h.svc.ListAds(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]adResponse, 0, len(ads))
	for i := range ads {
		out = append(out, toAdResponse(&ads[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleGetAd returns one ad by id.
func (h *Handler) handleGetAd(w http.ResponseWriter, r *http.Request) {
	id := h.adID(w, r)
	if id == nil {
		return
	}
	ad, err := h.svc.GetAd(r.Context(), *id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAdResponse(ad))
}

// handleDeleteAd removes an ad. The audit snapshot is taken before the
// row disappears.
func (h *Handler) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	id := h.adID(w, r)
	if id == nil {
		return
	}
	if err := h.svc.DeleteAd(r.Context(), *id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
