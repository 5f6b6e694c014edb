package port

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"adwatch/internal/core/domain"
)

var (
	// ErrNotFound is returned when the referenced ad does not exist.
	ErrNotFound = errors.New("ad not found")
	// ErrConflict is returned by UpdateStatus when the stored record no
	// longer matches the snapshot the caller read.
	ErrConflict = errors.New("concurrent modification")
	// ErrTransientConflict is surfaced by the reconciler once its bounded
	// retries are exhausted.
	ErrTransientConflict = errors.New("reconcile retries exhausted")
)

// IncrementResult reports the outcome of a counter increment. Counted is
// false when the ad was not active; NewValue then carries the unchanged
// counter value.
type IncrementResult struct {
	NewValue int64
	Counted  bool
}

// AdFilter narrows ListAds. Nil fields match everything.
type AdFilter struct {
	Type   *domain.AdType
	Status *domain.Status
}

// StatusCounts aggregates ads per type and status for the overview.
type StatusCounts struct {
	Type   domain.AdType `json:"type"`
	Active int64         `json:"active"`
	Paused int64         `json:"paused"`
}

// AdRepository is the outbound persistence port. Implementations must be
// safe for concurrent use; all cross-caller safety comes from the storage
// primitives below, never from a process-local lock.
type AdRepository interface {
	CreateAd(ctx context.Context, ad *domain.Ad) error
	GetAd(ctx context.Context, id uuid.UUID) (*domain.Ad, error)
	ListAds(ctx context.Context, filter AdFilter) ([]domain.Ad, error)
	DeleteAd(ctx context.Context, id uuid.UUID) error

	// IncrementCounter adds one to the named counter iff the ad is active.
	// Concurrent increments never lose updates: N calls against an active
	// ad raise the counter by exactly N.
	IncrementCounter(ctx context.Context, id uuid.UUID, kind domain.CounterKind) (IncrementResult, error)

	// UpdateStatus applies status/pause_reason iff the stored counters,
	// limits, status and pause_reason still equal those of the snapshot
	// (compare-and-set). Returns ErrConflict when the record moved
	// underneath the caller.
	UpdateStatus(ctx context.Context, snapshot *domain.Ad, status domain.Status, reason domain.PauseReason) error

	// UpdateFields applies operator edits (limits, manual status toggle,
	// content fields) iff the stored status and pause_reason still equal
	// prevStatus/prevReason, the values the caller's snapshot was read
	// with (compare-and-set). Returns ErrConflict when a concurrent
	// transition moved them; the caller re-reads and re-applies the edit.
	// Counters are never written through this path.
	UpdateFields(ctx context.Context, ad *domain.Ad, prevStatus domain.Status, prevReason domain.PauseReason) error

	// AppendHistory stores one audit entry. Entries are never updated or
	// deleted through this port.
	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error
	ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error)

	// StatusOverview returns active/paused counts per ad type.
	StatusOverview(ctx context.Context) ([]StatusCounts, error)
}
