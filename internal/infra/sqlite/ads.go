package sqlite

import (
	"context"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Ad Operations ──────────────────────────────────────────────────────────

const adColumns = `id, title, reward_cents, daily_limit, min_watch_percentage, is_active, created_at`

func scanAd(s rowScanner) (*domain.Ad, error) {
	var (
		a         domain.Ad
		reward    int64
		active    int
		createdAt string
	)
	if err := s.Scan(&a.ID, &a.Title, &reward, &a.DailyLimit, &a.MinWatchPercentage, &active, &createdAt); err != nil {
		return nil, err
	}
	a.RewardBase = domain.FromCents(reward)
	a.IsActive = active == 1
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// CreateAd inserts an ad placement.
func (q *Queries) CreateAd(ctx context.Context, a *domain.Ad) error {
	ts := now()
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO ads (id, title, reward_cents, daily_limit, min_watch_percentage, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, domain.ToCents(a.RewardBase), a.DailyLimit, a.MinWatchPercentage, boolInt(a.IsActive), ts)
	if err != nil {
		return mapErr(err)
	}
	a.CreatedAt = parseTime(ts)
	return nil
}

// GetAd retrieves an ad by id.
func (q *Queries) GetAd(ctx context.Context, id string) (*domain.Ad, error) {
	a, err := scanAd(q.q.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, domain.ErrAdNotFound
	}
	return a, err
}

// ListAds returns ads, oldest first.
func (q *Queries) ListAds(ctx context.Context, activeOnly bool) ([]domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := q.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []domain.Ad
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *a)
	}
	return ads, rows.Err()
}

// SetAdActive toggles an ad.
func (q *Queries) SetAdActive(ctx context.Context, id string, active bool) error {
	res, err := q.q.ExecContext(ctx, `UPDATE ads SET is_active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrAdNotFound)
}

// ─── Ad View Operations ─────────────────────────────────────────────────────

// InsertAdView appends a view event. Seq is the next slot for the
// (user, ad, day) triple; a concurrent writer taking the same slot gets
// domain.ErrDuplicate.
func (q *Queries) InsertAdView(ctx context.Context, v *domain.AdView) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO ad_views (id, user_id, ad_id, day, seq, duration_watched,
			completion_percentage, reward_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.UserID, v.AdID, v.Day, v.Seq, v.DurationWatched, v.CompletionPercentage,
		domain.ToCents(v.RewardEarned), formatTime(v.CreatedAt))
	return mapErr(err)
}

// CountAdViewsOnDay counts a user's views of one ad on one day.
func (q *Queries) CountAdViewsOnDay(ctx context.Context, userID, adID, day string) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ad_views WHERE user_id = ? AND ad_id = ? AND day = ?
	`, userID, adID, day).Scan(&n)
	return n, err
}

// AdViewTotals counts a user's views and their rewarded sum, on one day or
// across all days when day is empty.
func (q *Queries) AdViewTotals(ctx context.Context, userID, day string) (views int, rewardCents int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(reward_cents), 0) FROM ad_views WHERE user_id = ?`
	args := []any{userID}
	if day != "" {
		query += ` AND day = ?`
		args = append(args, day)
	}
	err = q.q.QueryRowContext(ctx, query, args...).Scan(&views, &rewardCents)
	return
}

// AdViewDays lists the distinct days a user watched at least one ad, newest first.
func (q *Queries) AdViewDays(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT DISTINCT day FROM ad_views WHERE user_id = ? ORDER BY day DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
