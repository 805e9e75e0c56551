package sqlite

import (
	"context"
	"strings"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Withdrawal Operations ──────────────────────────────────────────────────

const withdrawalColumns = `w.id, w.user_id, w.amount_cents, w.fee_cents, w.net_cents, w.method, w.account,
	w.status, w.reason, w.processed_by, w.created_at, w.updated_at`

func scanWithdrawal(s rowScanner, extra ...any) (*domain.Withdrawal, error) {
	var (
		w                    domain.Withdrawal
		amount, fee, net     int64
		status               string
		createdAt, updatedAt string
	)
	dest := []any{&w.ID, &w.UserID, &amount, &fee, &net, &w.Method, &w.Account,
		&status, &w.Reason, &w.ProcessedBy, &createdAt, &updatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	w.Amount = domain.FromCents(amount)
	w.Fee = domain.FromCents(fee)
	w.NetAmount = domain.FromCents(net)
	w.Status = domain.WithdrawalStatus(status)
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

// InsertWithdrawal stores a new withdrawal request.
func (q *Queries) InsertWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	ts := now()
	if w.Status == "" {
		w.Status = domain.WithdrawalPending
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO withdrawals (id, user_id, amount_cents, fee_cents, net_cents, method, account,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.UserID, domain.ToCents(w.Amount), domain.ToCents(w.Fee), domain.ToCents(w.NetAmount),
		w.Method, w.Account, string(w.Status), ts, ts)
	if err != nil {
		return mapErr(err)
	}
	w.CreatedAt = parseTime(ts)
	w.UpdatedAt = w.CreatedAt
	return nil
}

// GetWithdrawal retrieves a withdrawal by id.
func (q *Queries) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	w, err := scanWithdrawal(q.q.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = ?`, id))
	if isNoRows(err) {
		return nil, domain.ErrWithdrawalNotFound
	}
	return w, err
}

// TransitionWithdrawal moves a withdrawal from one status to the next.
// The update only matches while the row is still in from, so two admins
// reviewing the same request cannot both win.
func (q *Queries) TransitionWithdrawal(ctx context.Context, id string, from, to domain.WithdrawalStatus, reason, adminID string) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE withdrawals SET status = ?, reason = ?, processed_by = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), reason, adminID, now(), id, string(from))
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrInvalidTransition)
}

// ListUserWithdrawals returns a page of a user's withdrawals, newest first,
// with the total count. An empty status matches all.
func (q *Queries) ListUserWithdrawals(ctx context.Context, userID string, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, int, error) {
	cond := `w.user_id = ?`
	args := []any{userID}
	if status != "" {
		cond += ` AND w.status = ?`
		args = append(args, string(status))
	}
	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM withdrawals w WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.q.QueryContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE `+cond+`
		ORDER BY w.created_at DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *w)
	}
	return out, total, rows.Err()
}

// WithdrawalSummary aggregates a user's withdrawals, optionally of one status.
func (q *Queries) WithdrawalSummary(ctx context.Context, userID string, status domain.WithdrawalStatus) (*domain.WithdrawalSummary, error) {
	cond := `user_id = ?`
	args := []any{userID}
	if status != "" {
		cond += ` AND status = ?`
		args = append(args, string(status))
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount_cents), 0), COALESCE(SUM(fee_cents), 0),
			COALESCE(SUM(net_cents), 0)
		FROM withdrawals WHERE `+cond+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := &domain.WithdrawalSummary{StatusCounts: map[domain.WithdrawalStatus]int{
		domain.WithdrawalCompleted:  0,
		domain.WithdrawalProcessing: 0,
		domain.WithdrawalPending:    0,
		domain.WithdrawalRejected:   0,
	}}
	var amount, fee, net int64
	for rows.Next() {
		var (
			st         string
			n          int
			a, f, netC int64
		)
		if err := rows.Scan(&st, &n, &a, &f, &netC); err != nil {
			return nil, err
		}
		sum.StatusCounts[domain.WithdrawalStatus(st)] = n
		sum.TotalWithdrawals += n
		amount += a
		fee += f
		net += netC
	}
	sum.TotalAmount = domain.FromCents(amount)
	sum.TotalFees = domain.FromCents(fee)
	sum.TotalNet = domain.FromCents(net)
	return sum, rows.Err()
}

// AdminWithdrawal is a withdrawal enriched with its owner's names.
type AdminWithdrawal struct {
	domain.Withdrawal
	User     string `json:"user"`
	Username string `json:"username"`
}

// ListWithdrawalsByStatus returns withdrawals in a status for review, oldest first.
func (q *Queries) ListWithdrawalsByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]AdminWithdrawal, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+withdrawalColumns+`,
			COALESCE(u.username, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM withdrawals w LEFT JOIN users u ON u.telegram_id = w.user_id
		WHERE w.status = ? ORDER BY w.created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminWithdrawal
	for rows.Next() {
		var username, first, last string
		w, err := scanWithdrawal(rows, &username, &first, &last)
		if err != nil {
			return nil, err
		}
		aw := AdminWithdrawal{Withdrawal: *w, User: "Unknown User", Username: "N/A"}
		if name := strings.TrimSpace(first + " " + last); name != "" {
			aw.User = name
		}
		if username != "" {
			aw.Username = username
		}
		out = append(out, aw)
	}
	return out, rows.Err()
}
