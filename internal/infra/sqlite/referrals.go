package sqlite

import (
	"context"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Referral Operations ────────────────────────────────────────────────────

// InsertReferral records a referral. The unique referred_id makes a second
// registration for the same user fail with domain.ErrDuplicate.
func (q *Queries) InsertReferral(ctx context.Context, r *domain.Referral) error {
	ts := now()
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_id, referral_code, reward_cents,
			new_user_bonus_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ReferrerID, r.ReferredID, r.ReferralCode, domain.ToCents(r.RewardAmount),
		domain.ToCents(r.NewUserBonus), ts)
	if err != nil {
		return mapErr(err)
	}
	r.CreatedAt = parseTime(ts)
	return nil
}

// GetReferralByReferred returns the referral that brought a user in.
func (q *Queries) GetReferralByReferred(ctx context.Context, referredID string) (*domain.Referral, error) {
	var (
		r             domain.Referral
		reward, bonus int64
		createdAt     string
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT id, referrer_id, referred_id, referral_code, reward_cents, new_user_bonus_cents, created_at
		FROM referrals WHERE referred_id = ?
	`, referredID).Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.ReferralCode, &reward, &bonus, &createdAt)
	if isNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.RewardAmount = domain.FromCents(reward)
	r.NewUserBonus = domain.FromCents(bonus)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// CountReferrals counts referrals made by a user since a time.
// The zero time counts all of them.
func (q *Queries) CountReferrals(ctx context.Context, referrerID string, since time.Time) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM referrals WHERE referrer_id = ? AND created_at >= ?
	`, referrerID, formatTime(since)).Scan(&n)
	return n, err
}

// ReferralRow is a referral joined with the referred user's profile.
type ReferralRow struct {
	domain.Referral
	ReferredName        string
	ReferredEarnedCents int64
}

// ListReferrals returns a user's referrals, newest first.
func (q *Queries) ListReferrals(ctx context.Context, referrerID string) ([]ReferralRow, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT r.id, r.referrer_id, r.referred_id, r.referral_code, r.reward_cents,
			r.new_user_bonus_cents, r.created_at,
			u.username, u.first_name, u.last_name, u.total_earned_cents
		FROM referrals r JOIN users u ON u.telegram_id = r.referred_id
		WHERE r.referrer_id = ?
		ORDER BY r.created_at DESC
	`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReferralRow
	for rows.Next() {
		var (
			row                   ReferralRow
			reward, bonus         int64
			createdAt             string
			username, first, last string
		)
		if err := rows.Scan(&row.ID, &row.ReferrerID, &row.ReferredID, &row.ReferralCode, &reward, &bonus,
			&createdAt, &username, &first, &last, &row.ReferredEarnedCents); err != nil {
			return nil, err
		}
		row.RewardAmount = domain.FromCents(reward)
		row.NewUserBonus = domain.FromCents(bonus)
		row.CreatedAt = parseTime(createdAt)
		row.ReferredName = domain.User{TelegramID: row.ReferredID, Username: username, FirstName: first, LastName: last}.DisplayName()
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReferrerRanking lists every user with at least one referral, ordered by
// referral count and then referral earnings.
func (q *Queries) ReferrerRanking(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT u.telegram_id, u.username, u.first_name, u.last_name, COUNT(r.id) AS cnt,
			COALESCE((SELECT SUM(amount_cents) FROM ledger_entries l
				WHERE l.user_id = u.telegram_id AND l.type = 'refer_add'), 0) AS earned
		FROM referrals r JOIN users u ON u.telegram_id = r.referrer_id
		GROUP BY u.telegram_id
		ORDER BY cnt DESC, earned DESC, u.telegram_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var (
			e                     domain.LeaderboardEntry
			username, first, last string
			earned                int64
		)
		if err := rows.Scan(&e.UserID, &username, &first, &last, &e.Referrals, &earned); err != nil {
			return nil, err
		}
		e.Name = domain.User{TelegramID: e.UserID, Username: username, FirstName: first, LastName: last}.DisplayName()
		e.Earnings = domain.FromCents(earned)
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}
