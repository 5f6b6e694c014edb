package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// maxReconcileAttempts bounds the compare-and-set retry loop. Each retry
// re-reads the record, so a stale decision is never applied.
const maxReconcileAttempts = 3

// Reconciler drives status transitions. It is triggered after counter
// increments and operator edits, and periodically by the sweep. Overlapping
// calls for the same ad are safe: only the caller whose snapshot still
// matches the stored row commits, everyone else re-reads and re-decides.
type Reconciler struct {
	repo     port.AdRepository
	notifier port.Notifier
	logger   *slog.Logger

	// SweepConcurrency caps in-flight per-ad work during ReconcileAll.
	SweepConcurrency int
	// OpTimeout bounds each per-ad reconcile during the sweep so one
	// stuck ad cannot stall the rest.
	OpTimeout time.Duration

	mu   sync.Mutex
	subs []port.TransitionFunc
}

// NewReconciler wires a reconciler over the repository and notifier.
func NewReconciler(repo port.AdRepository, notifier port.Notifier, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:             repo,
		notifier:         notifier,
		logger:           logger,
		SweepConcurrency: 8,
		OpTimeout:        5 * time.Second,
	}
}

// Subscribe registers a callback for committed transitions.
func (r *Reconciler) Subscribe(fn port.TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

func (r *Reconciler) announce(adID uuid.UUID, from, to domain.Status, reason domain.PauseReason) {
	r.mu.Lock()
	subs := make([]port.TransitionFunc, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()
	for _, fn := range subs {
		fn(adID, from, to, reason)
	}
}

// Reconcile re-derives the ad's status from its counters and limits and
// commits the transition if one is due. An ad that disappeared is treated
// as done. Returns ErrTransientConflict (wrapped) when the conditional
// update kept losing to concurrent writers.
func (r *Reconciler) Reconcile(ctx context.Context, id uuid.UUID) error {
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		ad, err := r.repo.GetAd(ctx, id)
		if errors.Is(err, port.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		decision := domain.Decide(*ad)
		if !decision.Changed {
			return nil
		}

		err = r.repo.UpdateStatus(ctx, ad, decision.Status, decision.Reason)
		if errors.Is(err, port.ErrConflict) {
			continue
		}
		if errors.Is(err, port.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		r.afterTransition(ctx, ad, decision)
		return nil
	}
	return fmt.Errorf("reconcile ad %s: %w", id, port.ErrTransientConflict)
}

// afterTransition records and announces a committed transition. Audit and
// notification are best effort: the status change is the durable fact.
func (r *Reconciler) afterTransition(ctx context.Context, before *domain.Ad, decision domain.Decision) {
	after := *before
	after.Status = decision.Status
	after.PauseReason = decision.Reason

	entry := domain.HistoryFromAd(after, domain.ActionUpdated)
	if err := r.repo.AppendHistory(ctx, &entry); err != nil {
		r.logger.Error("history write failed",
			slog.String("ad_id", before.ID.String()), slog.Any("error", err))
	}

	if decision.Status == domain.StatusPaused && decision.Reason == domain.ReasonLimits {
		msg := fmt.Sprintf("ad %q paused: usage limit reached (clicks %d, impressions %d)",
			after.Title, after.Clicks, after.Impressions)
		if err := r.notifier.Emit(ctx, after.ID, after.Title, msg); err != nil {
			r.logger.Warn("notification failed",
				slog.String("ad_id", after.ID.String()), slog.Any("error", err))
		}
	}

	r.logger.Info("status transition",
		slog.String("ad_id", after.ID.String()),
		slog.String("from", string(before.Status)),
		slog.String("to", string(after.Status)),
		slog.String("reason", string(after.PauseReason)))

	r.announce(after.ID, before.Status, after.Status, after.PauseReason)
}

// ReconcileAll sweeps every ad through Reconcile. Per-ad work fans out
// concurrently with a bounded limit and its own timeout; individual
// failures are logged and do not stop the sweep. The returned error
// reports only the inability to list ads.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	ads, err := r.repo.ListAds(ctx, port.AdFilter{})
	if err != nil {
		return fmt.Errorf("list ads for sweep: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.SweepConcurrency)
	for _, ad := range ads {
		id := ad.ID
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, r.OpTimeout)
			defer cancel()
			if err := r.Reconcile(opCtx, id); err != nil {
				r.logger.Error("sweep reconcile failed",
					slog.String("ad_id", id.String()), slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// RunSweep blocks, reconciling all ads every interval until ctx is
// cancelled. A pass that cannot even list the ads (storage down) is
// retried within the tick with doubling backoff before giving up until
// the next one. Transitions themselves are single atomic updates, so
// cancellation at any point never leaves one half-applied.
func (r *Reconciler) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepWithBackoff(ctx)
		}
	}
}

func (r *Reconciler) sweepWithBackoff(ctx context.Context) {
	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := r.ReconcileAll(ctx)
		if err == nil {
			return
		}
		r.logger.Error("sweep failed",
			slog.Int("attempt", attempt), slog.Any("error", err))
		if attempt == maxReconcileAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
