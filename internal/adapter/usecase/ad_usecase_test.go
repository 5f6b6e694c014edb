package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"adwatch/internal/adapter/memory"
	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// recordingNotifier captures emitted notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Emit(_ context.Context, _ uuid.UUID, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, message)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestService() (*AdService, *memory.AdRepository, *recordingNotifier) {
	repo := memory.NewAdRepository()
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewReconciler(repo, notifier, logger)
	svc := NewAdService(repo, rec, logger)
	return svc, repo, notifier
}

func createAd(t *testing.T, svc *AdService, maxClicks, maxImpressions *int64) *domain.Ad {
	t.Helper()
	ad, err := svc.CreateAd(context.Background(), port.NewAd{
		Type:           domain.TypeBanner,
		Title:          "Spring Sale",
		Description:    "desc",
		ImageURL:       "https://example.com/banner.png",
		RedirectURL:    "https://example.com",
		MaxClicks:      maxClicks,
		MaxImpressions: maxImpressions,
	})
	require.NoError(t, err)
	return ad
}

func limit(v int64) *int64 { return &v }

// countHistory tallies audit entries per action type.
func countHistory(t *testing.T, repo *memory.AdRepository, action domain.ActionType) int {
	t.Helper()
	entries, err := repo.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.ActionType == action {
			n++
		}
	}
	return n
}

// TestThresholdCrossing walks the canonical scenario: max_clicks=3, three
// clicks pause the ad with one audit entry, a fourth click is a counted
// no-op.
func TestThresholdCrossing(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(3), nil)

	for i := 0; i < 3; i++ {
		res, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
		require.NoError(t, err)
		require.True(t, res.Counted)
	}

	got, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Clicks)
	require.Equal(t, domain.StatusPaused, got.Status)
	require.Equal(t, domain.ReasonLimits, got.PauseReason)
	require.Equal(t, 1, countHistory(t, repo, domain.ActionUpdated))
	require.Equal(t, 1, notifier.count())

	// Fourth click: success, but nothing moves.
	res, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
	require.NoError(t, err)
	require.False(t, res.Counted)
	require.Equal(t, int64(3), res.NewValue)
	require.Equal(t, 1, countHistory(t, repo, domain.ActionUpdated))
}

// TestConcurrentEventsExactCount fires 100 concurrent clicks with no
// limit in reach and expects an exact sum.
func TestConcurrentEventsExactCount(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(1000), nil)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks); err != nil {
				t.Errorf("record event: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetAd(ctx, ad.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Clicks != n {
		t.Fatalf("clicks = %d, want %d", got.Clicks, n)
	}
}

// TestConcurrentThresholdSingleTransition races concurrent clicks into a
// limit and expects exactly one committed pause transition.
func TestConcurrentThresholdSingleTransition(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()

	const m = 50
	ad := createAd(t, svc, limit(m), nil)

	var wg sync.WaitGroup
	wg.Add(m)
	for i := 0; i < m; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks); err != nil {
				t.Errorf("record event: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetAd(ctx, ad.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Clicks != m {
		t.Fatalf("clicks = %d, want %d", got.Clicks, m)
	}
	if got.Status != domain.StatusPaused || got.PauseReason != domain.ReasonLimits {
		t.Fatalf("status = %s/%s, want paused/limits", got.Status, got.PauseReason)
	}
	if n := countHistory(t, repo, domain.ActionUpdated); n != 1 {
		t.Fatalf("transition audit entries = %d, want exactly 1", n)
	}
	if n := notifier.count(); n != 1 {
		t.Fatalf("notifications = %d, want exactly 1", n)
	}

	// Events after the crossing never move the counter.
	for i := 0; i < 10; i++ {
		res, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
		if err != nil {
			t.Fatalf("record event: %v", err)
		}
		if res.Counted {
			t.Fatal("event counted against a paused ad")
		}
	}
	got, err = svc.GetAd(ctx, ad.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Clicks != m {
		t.Fatalf("clicks = %d after extra events, want %d", got.Clicks, m)
	}
}

// TestManualPauseIsSticky verifies no amount of events or reconciling
// reactivates a manual pause.
func TestManualPauseIsSticky(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(100), nil)

	paused := domain.StatusPaused
	_, err := svc.ApplyEdit(ctx, ad.ID, port.AdEdit{Status: &paused})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		res, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
		require.NoError(t, err)
		require.False(t, res.Counted)
	}
	require.NoError(t, svc.reconciler.ReconcileAll(ctx))

	got, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)
	require.Equal(t, domain.ReasonManual, got.PauseReason)

	// Explicit resume is the only way out.
	active := domain.StatusActive
	resumed, err := svc.ApplyEdit(ctx, ad.ID, port.AdEdit{Status: &active})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, resumed.Status)
	require.Equal(t, domain.ReasonNone, resumed.PauseReason)
}

// TestLimitRemovalReactivates pauses an ad on its click limit, removes
// the limit and expects reactivation within the same edit.
func TestLimitRemovalReactivates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(2), nil)

	for i := 0; i < 2; i++ {
		_, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
		require.NoError(t, err)
	}
	got, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)

	// Remove the limit (explicit null).
	edited, err := svc.ApplyEdit(ctx, ad.ID, port.AdEdit{
		MaxClicks: port.OptionalInt64{Set: true, Value: nil},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, edited.Status)
	require.Equal(t, domain.ReasonNone, edited.PauseReason)
	require.Nil(t, edited.MaxClicks)
}

// TestSweepCatchesOutOfBandEdit raises a limit behind the engine's back
// and lets the sweep reconcile the drift.
func TestSweepCatchesOutOfBandEdit(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(1), nil)

	_, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
	require.NoError(t, err)
	got, err := svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)

	// Raw save bypassing ApplyEdit, as a collaborator outside the event
	// path would do.
	got.MaxClicks = limit(10)
	require.NoError(t, repo.UpdateFields(ctx, got, got.Status, got.PauseReason))

	require.NoError(t, svc.reconciler.ReconcileAll(ctx))

	got, err = svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, got.Status)
	require.Equal(t, domain.ReasonNone, got.PauseReason)
}

// TestManualResumeOverExceededLimitRepauses: resuming an ad that still
// exceeds its limit re-pauses it in the same call.
func TestManualResumeOverExceededLimitRepauses(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(1), nil)

	_, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
	require.NoError(t, err)

	active := domain.StatusActive
	got, err := svc.ApplyEdit(ctx, ad.ID, port.AdEdit{Status: &active})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaused, got.Status)
	require.Equal(t, domain.ReasonLimits, got.PauseReason)
}

// TestAuditCompleteness checks every lifecycle mutation lands exactly one
// history entry with non-decreasing timestamps.
func TestAuditCompleteness(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	ad := createAd(t, svc, limit(1), nil)

	_, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks) // pause transition
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAd(ctx, ad.ID))

	require.Equal(t, 1, countHistory(t, repo, domain.ActionAdded))
	require.Equal(t, 1, countHistory(t, repo, domain.ActionUpdated))
	require.Equal(t, 1, countHistory(t, repo, domain.ActionDeleted))

	entries, err := repo.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// ListHistory returns newest first.
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt),
			"history timestamps must be non-decreasing per ad")
	}
	// Delete snapshot was captured before removal.
	require.Equal(t, domain.ActionDeleted, entries[0].ActionType)
	require.Equal(t, "Spring Sale", entries[0].AdTitle)
	require.Equal(t, int64(1), entries[0].Clicks)
}

// TestSubscribe delivers committed transitions to registered callbacks.
func TestSubscribe(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	type transition struct {
		from, to domain.Status
		reason   domain.PauseReason
	}
	var (
		mu   sync.Mutex
		seen []transition
	)
	svc.Subscribe(func(_ uuid.UUID, from, to domain.Status, reason domain.PauseReason) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, transition{from, to, reason})
	})

	ad := createAd(t, svc, limit(1), nil)
	_, err := svc.RecordEvent(ctx, ad.ID, domain.CounterClicks)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.Equal(t, transition{domain.StatusActive, domain.StatusPaused, domain.ReasonLimits}, seen[0])
}

// TestRecordEventUnknownAd surfaces NotFound to the caller.
func TestRecordEventUnknownAd(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.RecordEvent(context.Background(), uuid.New(), domain.CounterClicks)
	require.ErrorIs(t, err, port.ErrNotFound)
}
