package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adwatch/internal/core/domain"
	"adwatch/internal/core/port"
)

// AdRepository implements port.AdRepository using pgxpool for PostgreSQL.
// Counter increments and status transitions are single UPDATE statements,
// so their atomicity comes from the database and holds across processes.
type AdRepository struct {
	pool *pgxpool.Pool
}

// NewAdRepository returns a new repository instance.
func NewAdRepository(pool *pgxpool.Pool) *AdRepository {
	return &AdRepository{pool: pool}
}

const adColumns = `id, type, title, description, image_url, redirect_url,
	status, pause_reason, clicks, impressions, max_clicks, max_impressions,
	start_date, end_date, created_at, updated_at`

func scanAd(row pgx.Row) (*domain.Ad, error) {
	var ad domain.Ad
	err := row.Scan(
		&ad.ID, &ad.Type, &ad.Title, &ad.Description, &ad.ImageURL, &ad.RedirectURL,
		&ad.Status, &ad.PauseReason, &ad.Clicks, &ad.Impressions, &ad.MaxClicks, &ad.MaxImpressions,
		&ad.StartDate, &ad.EndDate, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// CreateAd inserts the ad and fills in the database-assigned timestamps.
func (r *AdRepository) CreateAd(ctx context.Context, ad *domain.Ad) error {
	return r.pool.QueryRow(ctx, `INSERT INTO ads
	(id, type, title, description, image_url, redirect_url, status, pause_reason,
	 clicks, impressions, max_clicks, max_impressions, start_date, end_date, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
	RETURNING created_at, updated_at`,
		ad.ID, ad.Type, ad.Title, ad.Description, ad.ImageURL, ad.RedirectURL,
		ad.Status, ad.PauseReason, ad.Clicks, ad.Impressions, ad.MaxClicks, ad.MaxImpressions,
		ad.StartDate, ad.EndDate,
	).Scan(&ad.CreatedAt, &ad.UpdatedAt)
}

// GetAd returns an ad by id.
func (r *AdRepository) GetAd(ctx context.Context, id uuid.UUID) (*domain.Ad, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id)
	return scanAd(row)
}

// ListAds returns ads matching the filter, newest first.
func (r *AdRepository) ListAds(ctx context.Context, filter port.AdFilter) ([]domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE 1=1`
	args := []any{}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Ad, error) {
		ad, err := scanAd(row)
		if err != nil {
			return domain.Ad{}, err
		}
		return *ad, nil
	})
}

// DeleteAd removes the ad. History rows keep their snapshot; the foreign
// key nulls out ad_id.
func (r *AdRepository) DeleteAd(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrNotFound
	}
	return nil
}

// IncrementCounter bumps the counter in one statement, guarded on the ad
// still being active. Concurrent callers serialize on the row inside the
// database, so no increment is ever lost.
func (r *AdRepository) IncrementCounter(ctx context.Context, id uuid.UUID, kind domain.CounterKind) (port.IncrementResult, error) {
	column := "clicks"
	if kind == domain.CounterImpressions {
		column = "impressions"
	}
	var res port.IncrementResult
	query := fmt.Sprintf(`UPDATE ads SET %s = %s + 1, updated_at = now()
	WHERE id = $1 AND status = 'active' RETURNING %s`, column, column, column)
	err := r.pool.QueryRow(ctx, query, id).Scan(&res.NewValue)
	if err == nil {
		res.Counted = true
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return res, err
	}
	// Not active, or gone. Re-read to tell the two apart and report the
	// unchanged value.
	ad, err := r.GetAd(ctx, id)
	if err != nil {
		return res, err
	}
	if kind == domain.CounterImpressions {
		res.NewValue = ad.Impressions
	} else {
		res.NewValue = ad.Clicks
	}
	return res, nil
}

// UpdateStatus is the compare-and-set transition. The WHERE clause pins
// every field the decision was computed from; zero rows affected means the
// record moved and the caller must re-read and re-decide.
func (r *AdRepository) UpdateStatus(ctx context.Context, snapshot *domain.Ad, status domain.Status, reason domain.PauseReason) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ads
	SET status = $1, pause_reason = $2, updated_at = now()
	WHERE id = $3
	  AND status = $4 AND pause_reason = $5
	  AND clicks = $6 AND impressions = $7
	  AND max_clicks IS NOT DISTINCT FROM $8
	  AND max_impressions IS NOT DISTINCT FROM $9`,
		status, reason,
		snapshot.ID,
		snapshot.Status, snapshot.PauseReason,
		snapshot.Clicks, snapshot.Impressions,
		snapshot.MaxClicks, snapshot.MaxImpressions,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a vanished ad from a concurrent write.
		if _, err = r.GetAd(ctx, snapshot.ID); errors.Is(err, port.ErrNotFound) {
			return port.ErrNotFound
		}
		return port.ErrConflict
	}
	return nil
}

// UpdateFields writes operator-editable fields. Counters are excluded;
// those go through IncrementCounter. The WHERE clause pins status and
// pause_reason to the snapshot the edit was computed from, so an edit
// racing a concurrent transition (manual pause from another session, a
// limits pause from the reconciler) can never write a stale status back.
func (r *AdRepository) UpdateFields(ctx context.Context, ad *domain.Ad, prevStatus domain.Status, prevReason domain.PauseReason) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ads
	SET title = $1, description = $2, image_url = $3, redirect_url = $4,
	    status = $5, pause_reason = $6, max_clicks = $7, max_impressions = $8,
	    updated_at = now()
	WHERE id = $9 AND status = $10 AND pause_reason = $11`,
		ad.Title, ad.Description, ad.ImageURL, ad.RedirectURL,
		ad.Status, ad.PauseReason, ad.MaxClicks, ad.MaxImpressions,
		ad.ID, prevStatus, prevReason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a vanished ad from a concurrent transition.
		if _, err = r.GetAd(ctx, ad.ID); errors.Is(err, port.ErrNotFound) {
			return port.ErrNotFound
		}
		return port.ErrConflict
	}
	return nil
}

// AppendHistory inserts one audit row.
func (r *AdRepository) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO ad_history
	(id, ad_id, action_type, ad_title, ad_description, ad_image, clicks, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.ID, entry.AdID, entry.ActionType, entry.AdTitle, entry.AdDesc, entry.AdImage,
		entry.Clicks, entry.CreatedAt,
	)
	return err
}

// ListHistory returns the newest audit entries, most recent first.
func (r *AdRepository) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, ad_id, action_type, ad_title,
	ad_description, ad_image, clicks, created_at
	FROM ad_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryEntry, error) {
		var e domain.HistoryEntry
		err := row.Scan(&e.ID, &e.AdID, &e.ActionType, &e.AdTitle, &e.AdDesc, &e.AdImage, &e.Clicks, &e.CreatedAt)
		return e, err
	})
}

// StatusOverview aggregates active/paused counts per type.
func (r *AdRepository) StatusOverview(ctx context.Context) ([]port.StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `SELECT type,
	count(*) FILTER (WHERE status = 'active'),
	count(*) FILTER (WHERE status = 'paused')
	FROM ads GROUP BY type ORDER BY type`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.StatusCounts, error) {
		var c port.StatusCounts
		err := row.Scan(&c.Type, &c.Active, &c.Paused)
		return c, err
	})
}
