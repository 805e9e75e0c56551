package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/takax-network/takax/internal/domain"
)

// ─── User Operations ────────────────────────────────────────────────────────

const userColumns = `telegram_id, username, first_name, last_name, balance_cents, total_earned_cents,
	referral_code, referred_by_code, status, ban_reason, team_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u                   domain.User
		balance, earned     int64
		status              string
		createdAt, updatedAt string
	)
	err := s.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &balance, &earned,
		&u.ReferralCode, &u.ReferredByCode, &status, &u.BanReason, &u.TeamID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.Balance = domain.FromCents(balance)
	u.TotalEarned = domain.FromCents(earned)
	u.Status = domain.AccountStatus(status)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// CreateUser inserts a new user with a zero balance.
// Returns domain.ErrDuplicate if the id or referral code exists.
func (q *Queries) CreateUser(ctx context.Context, u *domain.User) error {
	ts := now()
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, referral_code,
			referred_by_code, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.TelegramID, u.Username, u.FirstName, u.LastName, u.ReferralCode,
		u.ReferredByCode, string(u.Status), ts, ts)
	if err != nil {
		return mapErr(err)
	}
	u.CreatedAt = parseTime(ts)
	u.UpdatedAt = u.CreatedAt
	return nil
}

// GetUser retrieves a user by Telegram id.
func (q *Queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return u, err
}

// GetUserByReferralCode resolves a referral code to its owner.
func (q *Queries) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidReferralCode
	}
	return u, err
}

// GetUserByUsername finds a user by Telegram username, ignoring a leading @.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimPrefix(username, "@")
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE LIMIT 1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return u, err
}

// UpdateProfile refreshes the Telegram profile fields of a user.
func (q *Queries) UpdateProfile(ctx context.Context, id, username, firstName, lastName string) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET username = ?, first_name = ?, last_name = ?, updated_at = ?
		WHERE telegram_id = ?
	`, username, firstName, lastName, now(), id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrUserNotFound)
}

// SetReferredBy records the referral code a user signed up with.
// The code is immutable: returns domain.ErrAlreadyReferred if one is set.
func (q *Queries) SetReferredBy(ctx context.Context, id, code string) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET referred_by_code = ?, updated_at = ?
		WHERE telegram_id = ? AND referred_by_code = ''
	`, code, now(), id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrAlreadyReferred)
}

// SetUserStatus changes the moderation status of a user.
func (q *Queries) SetUserStatus(ctx context.Context, id string, status domain.AccountStatus, reason string) error {
	if status == domain.StatusActive {
		reason = ""
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET status = ?, ban_reason = ?, updated_at = ? WHERE telegram_id = ?
	`, string(status), reason, now(), id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrUserNotFound)
}

// SetUserTeam sets or clears (teamID "") the team of a user.
func (q *Queries) SetUserTeam(ctx context.Context, id, teamID string) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE users SET team_id = ?, updated_at = ? WHERE telegram_id = ?
	`, teamID, now(), id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrUserNotFound)
}

// UserFilter selects users for the admin list.
type UserFilter struct {
	Search string
	Status domain.AccountStatus
	Limit  int
	Offset int
}

// ListUsers returns a page of users, newest first, and the total match count.
func (q *Queries) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int, error) {
	where := []string{"1=1"}
	var args []any
	if f.Search != "" {
		where = append(where, "(username LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR telegram_id LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like, like)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	rows, err := q.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// AllUserIDs lists every user id, for batch jobs such as reconciliation.
func (q *Queries) AllUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
