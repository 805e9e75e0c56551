package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Ledger Mutator ─────────────────────────────────────────────────────────
// The only path that changes a balance. Apply runs inside the caller's
// transaction: the history row and the balance move commit together, and a
// key already applied is reported instead of credited again.

// MutationWriter applies one mutation within an open transaction.
// *sqlite.Tx implements it.
type MutationWriter interface {
	ApplyMutation(ctx context.Context, m domain.Mutation) (*domain.LedgerEntry, error)
}

// BalanceReader exposes stored balances next to their history.
// *sqlite.DB implements it.
type BalanceReader interface {
	GetLedgerBalance(ctx context.Context, userID string) (*sqlite.LedgerBalance, error)
	AllUserIDs(ctx context.Context) ([]string, error)
}

// Ledger applies mutations and checks balances against history.
type Ledger struct {
	log *logrus.Entry
}

// NewLedger creates a ledger mutator.
func NewLedger(log *logrus.Entry) *Ledger {
	return &Ledger{log: log}
}

// Apply writes m through w. It returns applied=false with a nil error when
// the key was already applied; any other failure must abort the caller's
// transaction.
func (l *Ledger) Apply(ctx context.Context, w MutationWriter, m domain.Mutation) (entry *domain.LedgerEntry, applied bool, err error) {
	if err := m.Validate(); err != nil {
		return nil, false, err
	}
	m.Delta = domain.Round2(m.Delta)

	entry, err = w.ApplyMutation(ctx, m)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		observability.LedgerDuplicates.WithLabelValues(string(m.Type)).Inc()
		observability.Entry(ctx, l.log).WithField("key", m.Key).Debug("ledger key already applied")
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("apply %s: %w", m.Key, err)
	}

	observability.LedgerEntries.WithLabelValues(string(m.Type)).Inc()
	observability.LedgerAmount.WithLabelValues(string(m.Type)).Add(m.Delta.Abs().InexactFloat64())
	return entry, true, nil
}

// Mismatch is a user whose balance disagrees with their history.
type Mismatch struct {
	UserID  string
	Balance int64
	Ledger  int64
	Earned  int64
	Total   int64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("user %s: balance %s, ledger %s, total_earned %s, earned entries %s",
		m.UserID, domain.FromCents(m.Balance).StringFixed(2), domain.FromCents(m.Ledger).StringFixed(2),
		domain.FromCents(m.Earned).StringFixed(2), domain.FromCents(m.Total).StringFixed(2))
}

// Reconcile compares one user's balance with the sum of their history.
// It returns nil when they agree.
func (l *Ledger) Reconcile(ctx context.Context, r BalanceReader, userID string) (*Mismatch, error) {
	b, err := r.GetLedgerBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b.Consistent() {
		return nil, nil
	}
	observability.LedgerMismatches.Inc()
	m := &Mismatch{UserID: userID, Balance: b.BalanceCents, Ledger: b.LedgerCents,
		Earned: b.EarnedCents, Total: b.LedgerEarned}
	l.log.WithFields(logrus.Fields{"user_id": userID, "balance": b.BalanceCents, "ledger": b.LedgerCents}).
		Error("balance does not match ledger")
	return m, nil
}

// ReconcileAll checks every user and returns the mismatches.
func (l *Ledger) ReconcileAll(ctx context.Context, r BalanceReader) ([]Mismatch, int, error) {
	ids, err := r.AllUserIDs(ctx)
	if err != nil {
		return nil, 0, err
	}
	var out []Mismatch
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, 0, err
		}
		m, err := l.Reconcile(ctx, r, id)
		if err != nil {
			return out, 0, fmt.Errorf("reconcile %s: %w", id, err)
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, len(ids), nil
}
