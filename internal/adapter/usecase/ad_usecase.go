package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// AdService implements port.AdUseCase. It owns the write paths of the ad
// lifecycle: every mutation lands an audit entry, and every mutation that
// can change the reconciliation outcome is followed by a reconcile pass.
type AdService struct {
	repo       port.AdRepository
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewAdService creates the service around a repository and reconciler.
func NewAdService(repo port.AdRepository, rec *Reconciler, logger *slog.Logger) *AdService {
	return &AdService{repo: repo, reconciler: rec, logger: logger}
}

// RecordEvent increments the requested counter and, when the increment
// counted, runs an immediate reconcile so a threshold crossing pauses the
// ad right away. A reconcile failure never fails the event: the periodic
// sweep will catch up.
func (s *AdService) RecordEvent(ctx context.Context, id uuid.UUID, kind domain.CounterKind) (port.IncrementResult, error) {
	if !kind.Valid() {
		return port.IncrementResult{}, fmt.Errorf("unknown counter %q", kind)
	}
	res, err := s.repo.IncrementCounter(ctx, id, kind)
	if err != nil {
		return res, err
	}
	if res.Counted {
		if err := s.reconciler.Reconcile(ctx, id); err != nil {
			s.logger.Error("post-event reconcile failed",
				slog.String("ad_id", id.String()), slog.Any("error", err))
		}
	}
	return res, nil
}

// ApplyEdit applies operator edits. A status toggle is applied literally:
// pausing sets reason "manual" (sticky), activating clears the reason.
// The write is conditional on the snapshot's status and pause_reason: if
// a concurrent session or the reconciler transitioned the ad between the
// read and the write, the whole edit is re-read and re-applied, so an
// unrelated field edit never drags a stale status along with it. The edit
// is audited, announced if it toggled the status, and then reconciled,
// so removing a limit reactivates a limits-paused ad within the same
// call, and activating an ad that still exceeds a limit pauses it again
// immediately.
func (s *AdService) ApplyEdit(ctx context.Context, id uuid.UUID, edit port.AdEdit) (*domain.Ad, error) {
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		ad, err := s.repo.GetAd(ctx, id)
		if err != nil {
			return nil, err
		}
		from, fromReason := ad.Status, ad.PauseReason

		if edit.Title != nil {
			ad.Title = *edit.Title
		}
		if edit.Description != nil {
			ad.Description = *edit.Description
		}
		if edit.ImageURL != nil {
			ad.ImageURL = *edit.ImageURL
		}
		if edit.RedirectURL != nil {
			ad.RedirectURL = *edit.RedirectURL
		}
		if edit.MaxClicks.Set {
			ad.MaxClicks = edit.MaxClicks.Value
		}
		if edit.MaxImpressions.Set {
			ad.MaxImpressions = edit.MaxImpressions.Value
		}
		if edit.Status != nil {
			switch *edit.Status {
			case domain.StatusPaused:
				ad.Status = domain.StatusPaused
				ad.PauseReason = domain.ReasonManual
			case domain.StatusActive:
				ad.Status = domain.StatusActive
				ad.PauseReason = domain.ReasonNone
			default:
				return nil, fmt.Errorf("unknown status %q", *edit.Status)
			}
		}

		err = s.repo.UpdateFields(ctx, ad, from, fromReason)
		if errors.Is(err, port.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.record(ctx, *ad, domain.ActionUpdated)
		if ad.Status != from {
			s.reconciler.announce(ad.ID, from, ad.Status, ad.PauseReason)
		}
		if err = s.reconciler.Reconcile(ctx, id); err != nil {
			return nil, err
		}
		return s.repo.GetAd(ctx, id)
	}
	return nil, fmt.Errorf("edit ad %s: %w", id, port.ErrTransientConflict)
}

// CreateAd stores a new ad. Ads are born active with no pause reason.
func (s *AdService) CreateAd(ctx context.Context, in port.NewAd) (*domain.Ad, error) {
	ad := &domain.Ad{
		ID:             uuid.New(),
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		ImageURL:       in.ImageURL,
		RedirectURL:    in.RedirectURL,
		Status:         domain.StatusActive,
		PauseReason:    domain.ReasonNone,
		MaxClicks:      in.MaxClicks,
		MaxImpressions: in.MaxImpressions,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	}
	if err := s.repo.CreateAd(ctx, ad); err != nil {
		return nil, err
	}
	s.record(ctx, *ad, domain.ActionAdded)
	return ad, nil
}

// DeleteAd audits first, then deletes: the snapshot must be taken while
// the record still exists.
func (s *AdService) DeleteAd(ctx context.Context, id uuid.UUID) error {
	ad, err := s.repo.GetAd(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, *ad, domain.ActionDeleted)
	return s.repo.DeleteAd(ctx, id)
}

func (s *AdService) GetAd(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	return s.repo.GetAd(ctx, id)
}

func (s *AdService) ListAds(ctx context.Context, filter port.AdFilter) ([]domain.Ad, error) {
	return s.repo.ListAds(ctx, filter)
}

func (s *AdService) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	return s.repo.ListHistory(ctx, limit)
}

func (s *AdService) StatusOverview(ctx context.Context) ([]port.StatusCounts, error) {
	return s.repo.StatusOverview(ctx)
}

// Subscribe registers a transition callback with the reconciler, which is
// the single place transitions are committed and announced from.
func (s *AdService) Subscribe(fn port.TransitionFunc) {
	s.reconciler.Subscribe(fn)
}

// record appends an audit entry. Audit writes are at-least-once and never
// roll back the mutation they describe; a failed write is logged.
func (s *AdService) record(ctx context.Context, ad domain.Ad, action domain.ActionType) {
	entry := domain.HistoryFromAd(ad, action)
	if err := s.repo.AppendHistory(ctx, &entry); err != nil {
		s.logger.Error("history write failed",
			slog.String("ad_id", ad.ID.String()),
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}
