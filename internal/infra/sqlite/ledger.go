package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// ApplyMutation writes one ledger entry and moves the user's balance by the
// same amount. It is only available inside a transaction so the two writes
// can never diverge.
//
// Returns domain.ErrDuplicate when the idempotency key was already applied,
// domain.ErrInsufficientBalance when a debit would overdraw the balance.
func (tx *Tx) ApplyMutation(ctx context.Context, m domain.Mutation) (*domain.LedgerEntry, error) {
	cents := domain.ToCents(m.Delta)
	ts := now()

	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, amount_cents, type, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.UserID, cents, string(m.Type), m.Reason, m.Key, ts)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	earned := int64(0)
	if m.Type.Earning() {
		earned = cents
	}
	if cents < 0 {
		res, err = tx.tx.ExecContext(ctx, `
			UPDATE users SET balance_cents = balance_cents + ?, updated_at = ?
			WHERE telegram_id = ? AND balance_cents >= ?
		`, cents, ts, m.UserID, -cents)
		if err != nil {
			return nil, fmt.Errorf("debit balance: %w", err)
		}
		if err := affectedOne(res, domain.ErrInsufficientBalance); err != nil {
			return nil, err
		}
	} else {
		res, err = tx.tx.ExecContext(ctx, `
			UPDATE users SET balance_cents = balance_cents + ?,
				total_earned_cents = total_earned_cents + ?, updated_at = ?
			WHERE telegram_id = ?
		`, cents, earned, ts, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("credit balance: %w", err)
		}
		if err := affectedOne(res, domain.ErrUserNotFound); err != nil {
			return nil, err
		}
	}

	return &domain.LedgerEntry{
		ID:             id,
		UserID:         m.UserID,
		Amount:         domain.FromCents(cents),
		Type:           m.Type,
		Reason:         m.Reason,
		IdempotencyKey: m.Key,
		CreatedAt:      parseTime(ts),
	}, nil
}

// HasLedgerKey reports whether a mutation with this key was applied.
func (q *Queries) HasLedgerKey(ctx context.Context, key string) (bool, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = ?`, key).Scan(&n)
	return n > 0, err
}

// ListLedger returns a user's most recent ledger entries.
func (q *Queries) ListLedger(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, type, reason, idempotency_key, created_at
		FROM ledger_entries WHERE user_id = ?
		ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			cents   int64
			typ, ts string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &cents, &typ, &e.Reason, &e.IdempotencyKey, &ts); err != nil {
			return nil, err
		}
		e.Amount = domain.FromCents(cents)
		e.Type = domain.EntryType(typ)
		e.CreatedAt = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerBalance is a stored balance next to the sum of its history.
type LedgerBalance struct {
	UserID       string
	BalanceCents int64
	LedgerCents  int64
	EarnedCents  int64
	LedgerEarned int64
}

// Consistent reports whether balance and totals match the history.
func (b LedgerBalance) Consistent() bool {
	return b.BalanceCents == b.LedgerCents && b.EarnedCents == b.LedgerEarned
}

// GetLedgerBalance compares a user's stored balance with their history.
func (q *Queries) GetLedgerBalance(ctx context.Context, userID string) (*LedgerBalance, error) {
	b := LedgerBalance{UserID: userID}
	err := q.q.QueryRowContext(ctx, `
		SELECT u.balance_cents, u.total_earned_cents,
			COALESCE((SELECT SUM(amount_cents) FROM ledger_entries WHERE user_id = u.telegram_id), 0),
			COALESCE((SELECT SUM(amount_cents) FROM ledger_entries WHERE user_id = u.telegram_id
				AND type IN ('task_add', 'ad_add', 'refer_add', 'bonus_add', 'team_add')), 0)
		FROM users u WHERE u.telegram_id = ?
	`, userID).Scan(&b.BalanceCents, &b.EarnedCents, &b.LedgerCents, &b.LedgerEarned)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &b, nil
}

// SumLedger totals a user's entries of the given types since a time.
// No types means all earning types.
func (q *Queries) SumLedger(ctx context.Context, userID string, since time.Time, types ...domain.EntryType) (int64, error) {
	if len(types) == 0 {
		types = []domain.EntryType{domain.EntryTaskAdd, domain.EntryAdAdd, domain.EntryReferAdd, domain.EntryBonusAdd, domain.EntryTeamAdd}
	}
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		WHERE user_id = ? AND created_at >= ? AND type IN (` + placeholders(len(types)) + `)`
	args := []any{userID, formatTime(since)}
	for _, t := range types {
		args = append(args, string(t))
	}
	var total int64
	err := q.q.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}
