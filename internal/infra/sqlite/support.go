package sqlite

import (
	"context"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Notification Operations ────────────────────────────────────────────────

// InsertNotification stores an in-app notification.
func (q *Queries) InsertNotification(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = parseTime(now())
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, boolInt(n.IsRead), formatTime(n.CreatedAt))
	return mapErr(err)
}

// ListNotifications returns a user's notifications, newest first.
func (q *Queries) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, user_id, title, message, type, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := q.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			read      int
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &read, &createdAt); err != nil {
			return nil, err
		}
		n.IsRead = read == 1
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationsRead marks every notification of a user as read.
func (q *Queries) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := q.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ─── Support Ticket Operations ──────────────────────────────────────────────

// InsertTicket stores a support ticket.
func (q *Queries) InsertTicket(ctx context.Context, t *domain.SupportTicket) error {
	ts := now()
	if t.Category == "" {
		t.Category = "general"
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if t.Status == "" {
		t.Status = "pending"
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO support_tickets (id, user_id, subject, message, image, category, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Subject, t.Message, t.Image, t.Category, t.Priority, t.Status, ts)
	if err != nil {
		return mapErr(err)
	}
	t.CreatedAt = parseTime(ts)
	return nil
}

// ListTickets returns a user's tickets, newest first.
func (q *Queries) ListTickets(ctx context.Context, userID string) ([]domain.SupportTicket, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, user_id, subject, message, image, category, priority, status, created_at
		FROM support_tickets WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SupportTicket
	for rows.Next() {
		var (
			t         domain.SupportTicket
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Message, &t.Image, &t.Category,
			&t.Priority, &t.Status, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Admin Audit Log ────────────────────────────────────────────────────────

// LogAdminAction appends to the moderation audit log.
func (q *Queries) LogAdminAction(ctx context.Context, adminID, kind, details string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO admin_actions (admin_id, kind, details, created_at) VALUES (?, ?, ?, ?)
	`, adminID, kind, details, now())
	return err
}

// ListAdminActions returns the most recent audit entries.
func (q *Queries) ListAdminActions(ctx context.Context, limit int) ([]domain.AdminAction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, admin_id, kind, details, created_at FROM admin_actions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AdminAction
	for rows.Next() {
		var (
			a         domain.AdminAction
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.AdminID, &a.Kind, &a.Details, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Dashboard ──────────────────────────────────────────────────────────────

// Dashboard collects the admin overview counters. Active users are those
// with a ledger entry since activeSince.
func (q *Queries) Dashboard(ctx context.Context, activeSince time.Time) (*domain.Dashboard, error) {
	var (
		d                        domain.Dashboard
		withdrawn, pending, paid int64
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM ledger_entries WHERE created_at >= ?),
			(SELECT COUNT(*) FROM users WHERE status <> 'active'),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM withdrawals WHERE status <> 'rejected'),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE is_active = 1),
			(SELECT COUNT(*) FROM task_submissions WHERE status = 'pending'),
			(SELECT COUNT(*) FROM teams),
			(SELECT COUNT(*) FROM teams WHERE is_banned = 0),
			(SELECT COALESCE(SUM(total_earned_cents), 0) FROM users)
	`, formatTime(activeSince)).Scan(&d.TotalUsers, &d.ActiveUsers, &d.BannedUsers, &withdrawn,
		&d.PendingWithdrawals, &pending, &d.TotalTasks, &d.ActiveTasks, &d.PendingReviews,
		&d.TotalTeams, &d.ActiveTeams, &paid)
	if err != nil {
		return nil, err
	}
	d.TotalWithdrawalAmount = domain.FromCents(withdrawn)
	d.PendingWithdrawalAmount = domain.FromCents(pending)
	d.TotalRewardsPaid = domain.FromCents(paid)
	return &d, nil
}
