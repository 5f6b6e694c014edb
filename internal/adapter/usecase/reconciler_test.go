package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"adwatch/internal/adapter/memory"
	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// conflictingRepo wraps the memory repository and fails UpdateStatus with
// ErrConflict a configured number of times before letting it through.
type conflictingRepo struct {
	*memory.AdRepository
	conflicts atomic.Int32
	attempts  atomic.Int32
}

func (r *conflictingRepo) UpdateStatus(ctx context.Context, snapshot *domain.Ad, status domain.Status, reason domain.PauseReason) error {
	r.attempts.Add(1)
	if r.conflicts.Add(-1) >= 0 {
		return port.ErrConflict
	}
	return r.AdRepository.UpdateStatus(ctx, snapshot, status, reason)
}

func newConflictingReconciler(t *testing.T, conflicts int32) (*Reconciler, *conflictingRepo, *domain.Ad) {
	t.Helper()
	repo := &conflictingRepo{AdRepository: memory.NewAdRepository()}
	repo.conflicts.Store(conflicts)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewReconciler(repo, &recordingNotifier{}, logger)

	maxClicks := int64(1)
	ad := &domain.Ad{
		ID:          uuid.New(),
		Type:        domain.TypeInterstitial,
		Title:       "conflicted",
		Status:      domain.StatusActive,
		PauseReason: domain.ReasonNone,
		Clicks:      1,
		MaxClicks:   &maxClicks,
	}
	require.NoError(t, repo.CreateAd(context.Background(), ad))
	return rec, repo, ad
}

// TestReconcileRetriesOnConflict loses the CAS once and commits on the
// re-read.
func TestReconcileRetriesOnConflict(t *testing.T) {
	rec, repo, ad := newConflictingReconciler(t, 1)

	require.NoError(t, rec.Reconcile(context.Background(), ad.ID))
	require.Equal(t, int32(2), repo.attempts.Load())

	got, err := repo.GetAd(context.Background(), ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)
	require.Equal(t, domain.ReasonLimits, got.PauseReason)
}

// TestReconcileBoundedRetries surfaces ErrTransientConflict once the
// retry budget is spent, instead of spinning or silently dropping the
// transition.
func TestReconcileBoundedRetries(t *testing.T) {
	rec, repo, ad := newConflictingReconciler(t, 100)

	err := rec.Reconcile(context.Background(), ad.ID)
	require.ErrorIs(t, err, port.ErrTransientConflict)
	require.Equal(t, int32(maxReconcileAttempts), repo.attempts.Load())
}

// TestReconcileDeletedAdIsDone treats a vanished ad as nothing to do.
func TestReconcileDeletedAdIsDone(t *testing.T) {
	repo := memory.NewAdRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewReconciler(repo, &recordingNotifier{}, logger)

	require.NoError(t, rec.Reconcile(context.Background(), uuid.New()))
}

// flakyListRepo fails ListAds a configured number of times before
// delegating, simulating storage coming back mid-sweep.
type flakyListRepo struct {
	*memory.AdRepository
	failures atomic.Int32
}

var errStorageDown = errors.New("storage unavailable")

func (r *flakyListRepo) ListAds(ctx context.Context, filter port.AdFilter) ([]domain.Ad, error) {
	if r.failures.Add(-1) >= 0 {
		return nil, errStorageDown
	}
	return r.AdRepository.ListAds(ctx, filter)
}

// TestSweepBacksOffAndRecovers verifies a sweep pass retries listing
// failures within the tick and still reconciles once storage recovers.
func TestSweepBacksOffAndRecovers(t *testing.T) {
	repo := &flakyListRepo{AdRepository: memory.NewAdRepository()}
	repo.failures.Store(2)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewReconciler(repo, &recordingNotifier{}, logger)
	ctx := context.Background()

	over := int64(1)
	ad := &domain.Ad{
		ID:          uuid.New(),
		Type:        domain.TypeBanner,
		Status:      domain.StatusActive,
		PauseReason: domain.ReasonNone,
		Clicks:      1,
		MaxClicks:   &over,
	}
	require.NoError(t, repo.CreateAd(ctx, ad))

	rec.sweepWithBackoff(ctx)

	got, err := repo.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)
	require.Equal(t, domain.ReasonLimits, got.PauseReason)
}

// TestReconcileAllSweepsEveryAd pauses each over-limit ad in one pass.
func TestReconcileAllSweepsEveryAd(t *testing.T) {
	repo := memory.NewAdRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewReconciler(repo, &recordingNotifier{}, logger)
	ctx := context.Background()

	over := int64(5)
	var overIDs []uuid.UUID
	for i := 0; i < 20; i++ {
		ad := &domain.Ad{
			ID:          uuid.New(),
			Type:        domain.TypeBanner,
			Status:      domain.StatusActive,
			PauseReason: domain.ReasonNone,
		}
		if i%2 == 0 {
			ad.Clicks = 5
			ad.MaxClicks = &over
			overIDs = append(overIDs, ad.ID)
		}
		require.NoError(t, repo.CreateAd(ctx, ad))
	}

	require.NoError(t, rec.ReconcileAll(ctx))

	for _, id := range overIDs {
		got, err := repo.GetAd(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPaused, got.Status, "ad %s", id)
	}
	paused := domain.StatusPaused
	pausedAds, err := repo.ListAds(ctx, port.AdFilter{Status: &paused})
	require.NoError(t, err)
	require.Len(t, pausedAds, len(overIDs))
}
