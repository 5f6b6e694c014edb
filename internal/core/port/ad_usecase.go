package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"adwatch/internal/core/domain"
)

// AdUseCase is the primary port into the lifecycle engine. The HTTP layer
// and any embedded caller talk to the engine only through this interface.
type AdUseCase interface {
	// RecordEvent increments the click or impression counter for the ad
	// and triggers a reconcile check. Events against a paused ad are a
	// successful no-op (Counted=false); the counter does not move.
	RecordEvent(ctx context.Context, id uuid.UUID, kind domain.CounterKind) (IncrementResult, error)

	// ApplyEdit applies an operator edit: limit changes and/or a manual
	// status toggle. A successful edit is audited and immediately
	// reconciled, so raising a limit can reactivate a limits-paused ad in
	// the same call.
	ApplyEdit(ctx context.Context, id uuid.UUID, edit AdEdit) (*domain.Ad, error)

	// CreateAd stores a new active ad and audits it as "added".
	CreateAd(ctx context.Context, in NewAd) (*domain.Ad, error)

	// DeleteAd audits the ad as "deleted" (snapshot taken before removal)
	// and then removes it.
	DeleteAd(ctx context.Context, id uuid.UUID) error

	GetAd(ctx context.Context, id uuid.UUID) (*domain.Ad, error)
	ListAds(ctx context.Context, filter AdFilter) ([]domain.Ad, error)
	ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	StatusOverview(ctx context.Context) ([]StatusCounts, error)

	// Subscribe registers a callback invoked after every committed status
	// transition. Callbacks must be fast; they run on the reconciling
	// goroutine.
	Subscribe(fn TransitionFunc)
}

// TransitionFunc receives committed status transitions.
type TransitionFunc func(adID uuid.UUID, from, to domain.Status, reason domain.PauseReason)

// NewAd carries the fields an external form submits on creation.
type NewAd struct {
	Type           domain.AdType
	Title          string
	Description    string
	ImageURL       string
	RedirectURL    string
	MaxClicks      *int64
	MaxImpressions *int64
	StartDate      time.Time
	EndDate        time.Time
}

// OptionalInt64 distinguishes "leave unchanged" (Set=false) from "set to
// NULL" (Set=true, Value=nil) from "set to a value". The original manager
// conflated undefined, null and absent; edits here are always explicit.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

// AdEdit is a partial operator edit. Nil / unset fields stay untouched.
type AdEdit struct {
	Title          *string
	Description    *string
	ImageURL       *string
	RedirectURL    *string
	Status         *domain.Status
	MaxClicks      OptionalInt64
	MaxImpressions OptionalInt64
}
