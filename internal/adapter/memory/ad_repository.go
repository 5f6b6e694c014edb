package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// AdRepository is a mutex-guarded in-memory implementation of
// port.AdRepository. It mirrors the conditional-update semantics of the
// postgres adapter so the reconciler behaves identically against either.
type AdRepository struct {
	mu      sync.Mutex
	ads     map[uuid.UUID]domain.Ad
	history []domain.HistoryEntry
}

// NewAdRepository returns an empty in-memory store.
func NewAdRepository() *AdRepository {
	return &AdRepository{ads: make(map[uuid.UUID]domain.Ad)}
}

func (r *AdRepository) CreateAd(_ context.Context, ad *domain.Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	r.ads[ad.ID] = cloneAd(*ad)
	return nil
}

func (r *AdRepository) GetAd(_ context.Context, id uuid.UUID) (*domain.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	ad = cloneAd(ad)
	return &ad, nil
}

func (r *AdRepository) ListAds(_ context.Context, filter port.AdFilter) ([]domain.Ad, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ad, 0, len(r.ads))
	for _, ad := range r.ads {
		if filter.Type != nil && ad.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && ad.Status != *filter.Status {
			continue
		}
		out = append(out, cloneAd(ad))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *AdRepository) DeleteAd(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ads[id]; !ok {
		return port.ErrNotFound
	}
	delete(r.ads, id)
	// Keep history rows but detach them, like the FK does in postgres.
	for i := range r.history {
		if r.history[i].AdID != nil && *r.history[i].AdID == id {
			r.history[i].AdID = nil
		}
	}
	return nil
}

func (r *AdRepository) IncrementCounter(_ context.Context, id uuid.UUID, kind domain.CounterKind) (port.IncrementResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return port.IncrementResult{}, port.ErrNotFound
	}
	if ad.Status != domain.StatusActive {
		value := ad.Clicks
		if kind == domain.CounterImpressions {
			value = ad.Impressions
		}
		return port.IncrementResult{NewValue: value}, nil
	}
	var value int64
	if kind == domain.CounterImpressions {
		ad.Impressions++
		value = ad.Impressions
	} else {
		ad.Clicks++
		value = ad.Clicks
	}
	ad.UpdatedAt = time.Now().UTC()
	r.ads[id] = ad
	return port.IncrementResult{NewValue: value, Counted: true}, nil
}

func (r *AdRepository) UpdateStatus(_ context.Context, snapshot *domain.Ad, status domain.Status, reason domain.PauseReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[snapshot.ID]
	if !ok {
		return port.ErrNotFound
	}
	if ad.Status != snapshot.Status || ad.PauseReason != snapshot.PauseReason ||
		ad.Clicks != snapshot.Clicks || ad.Impressions != snapshot.Impressions ||
		!limitEq(ad.MaxClicks, snapshot.MaxClicks) || !limitEq(ad.MaxImpressions, snapshot.MaxImpressions) {
		return port.ErrConflict
	}
	ad.Status = status
	ad.PauseReason = reason
	ad.UpdatedAt = time.Now().UTC()
	r.ads[snapshot.ID] = ad
	return nil
}

func (r *AdRepository) UpdateFields(_ context.Context, in *domain.Ad, prevStatus domain.Status, prevReason domain.PauseReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[in.ID]
	if !ok {
		return port.ErrNotFound
	}
	if ad.Status != prevStatus || ad.PauseReason != prevReason {
		return port.ErrConflict
	}
	ad.Title = in.Title
	ad.Description = in.Description
	ad.ImageURL = in.ImageURL
	ad.RedirectURL = in.RedirectURL
	ad.Status = in.Status
	ad.PauseReason = in.PauseReason
	ad.MaxClicks = cloneLimit(in.MaxClicks)
	ad.MaxImpressions = cloneLimit(in.MaxImpressions)
	ad.UpdatedAt = time.Now().UTC()
	r.ads[in.ID] = ad
	return nil
}

func (r *AdRepository) AppendHistory(_ context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.history = append(r.history, *entry)
	return nil
}

func (r *AdRepository) ListHistory(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]domain.HistoryEntry, len(r.history))
	copy(out, r.history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out[:limit], nil
}

func (r *AdRepository) StatusOverview(_ context.Context) ([]port.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType := map[domain.AdType]*port.StatusCounts{}
	for _, ad := range r.ads {
		c, ok := byType[ad.Type]
		if !ok {
			c = &port.StatusCounts{Type: ad.Type}
			byType[ad.Type] = c
		}
		if ad.Status == domain.StatusActive {
			c.Active++
		} else {
			c.Paused++
		}
	}
	out := make([]port.StatusCounts, 0, len(byType))
	for _, c := range byType {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func cloneAd(ad domain.Ad) domain.Ad {
	ad.MaxClicks = cloneLimit(ad.MaxClicks)
	ad.MaxImpressions = cloneLimit(ad.MaxImpressions)
	return ad
}

func cloneLimit(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func limitEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
