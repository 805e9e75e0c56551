package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Withdrawals ────────────────────────────────────────────────────────────

// WithdrawalRequest asks for a payout.
type WithdrawalRequest struct {
	UserID  string
	Amount  decimal.Decimal
	Method  string
	Account string
}

// RequestWithdrawal debits the amount and records a pending withdrawal in
// one transaction. The debit is conditional on the balance, so two racing
// requests can never overdraw.
func (s *Service) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (*domain.Withdrawal, error) {
	if err := requireID("userId", req.UserID); err != nil {
		return nil, err
	}
	if err := requireID("account", req.Account); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.WithMessage(domain.ErrValidation, "Amount must be positive")
	}
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))

	var w *domain.Withdrawal
	err := s.onLane(ctx, "withdrawal.request", req.UserID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			user, err := tx.GetUser(ctx, req.UserID)
			if err != nil {
				return err
			}
			if d := rewards.CheckWithdrawal(user, req.Amount, req.Method, s.cfg.Withdrawals); !d.Allowed {
				return s.reject(ctx, "withdrawal", d)
			}
			fee, net := rewards.WithdrawalFee(req.Amount, s.cfg.FeePercent)
			w = &domain.Withdrawal{
				ID:        uuid.NewString(),
				UserID:    req.UserID,
				Amount:    domain.Round2(req.Amount),
				Fee:       fee,
				NetAmount: net,
				Method:    req.Method,
				Account:   strings.TrimSpace(req.Account),
				Status:    domain.WithdrawalPending,
			}
			if err := tx.InsertWithdrawal(ctx, w); err != nil {
				return err
			}
			_, _, err = s.ledger.Apply(ctx, tx, domain.Mutation{
				UserID: req.UserID,
				Delta:  w.Amount.Neg(),
				Type:   domain.EntryWithdrawalRequest,
				Reason: fmt.Sprintf("Withdrawal via %s", w.Method),
				Key:    domain.WithdrawalRequestKey(w.ID),
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	observability.Entry(ctx, s.log).WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"amount":        w.Amount.String(),
		"method":        w.Method,
	}).Info("withdrawal requested")
	s.notify.Emit(notify.WithdrawalRequested(w))
	return w, nil
}

// Pagination describes one page of a list.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// WithdrawalHistory is one page of a user's withdrawals.
type WithdrawalHistory struct {
	Withdrawals []domain.Withdrawal       `json:"withdrawals"`
	Summary     *domain.WithdrawalSummary `json:"summary"`
	Pagination  Pagination                `json:"pagination"`
}

// WithdrawalHistory lists a user's withdrawals newest first. An empty or
// "all" status means every status.
func (s *Service) WithdrawalHistory(ctx context.Context, userID, status string, limit, offset int) (*WithdrawalHistory, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	st := domain.WithdrawalStatus(status)
	if status == "all" {
		st = ""
	}
	return timed("withdrawal.history", func() (*WithdrawalHistory, error) {
		list, total, err := s.db.ListUserWithdrawals(ctx, userID, st, limit, offset)
		if err != nil {
			return nil, err
		}
		sum, err := s.db.WithdrawalSummary(ctx, userID, st)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []domain.Withdrawal{}
		}
		return &WithdrawalHistory{
			Withdrawals: list,
			Summary:     sum,
			Pagination:  Pagination{Total: total, Limit: limit, Offset: offset, HasMore: offset+limit < total},
		}, nil
	})
}

// ListWithdrawals returns withdrawals in a status for review, pending by
// default.
func (s *Service) ListWithdrawals(ctx context.Context, status string) ([]sqlite.AdminWithdrawal, error) {
	if status == "" {
		status = string(domain.WithdrawalPending)
	}
	list, err := s.db.ListWithdrawalsByStatus(ctx, domain.WithdrawalStatus(status))
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []sqlite.AdminWithdrawal{}
	}
	return list, nil
}

// ReviewWithdrawal moves a withdrawal along its lifecycle. Rejecting it
// refunds the full amount exactly once.
func (s *Service) ReviewWithdrawal(ctx context.Context, adminID, id, action, reason string) (*domain.Withdrawal, error) {
	if err := requireID("withdrawalId", id); err != nil {
		return nil, err
	}
	next, err := domain.ParseWithdrawalAction(strings.ToLower(strings.TrimSpace(action)))
	if err != nil {
		return nil, domain.WithMessage(err, "Invalid action")
	}
	current, err := s.db.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}

	var w *domain.Withdrawal
	err = s.onLane(ctx, "withdrawal.review", current.UserID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			cur, err := tx.GetWithdrawal(ctx, id)
			if err != nil {
				return err
			}
			if !cur.Status.CanTransition(next) {
				return domain.WithMessage(domain.ErrInvalidTransition,
					fmt.Sprintf("Cannot move withdrawal from %s to %s", cur.Status, next))
			}
			if err := tx.TransitionWithdrawal(ctx, id, cur.Status, next, reason, adminID); err != nil {
				return err
			}
			if next == domain.WithdrawalRejected {
				if _, _, err := s.ledger.Apply(ctx, tx, domain.Mutation{
					UserID: cur.UserID,
					Delta:  cur.Amount,
					Type:   domain.EntryWithdrawalRefund,
					Reason: "Withdrawal rejected: refund",
					Key:    domain.WithdrawalRefundKey(id),
				}); err != nil {
					return err
				}
			}
			if err := tx.LogAdminAction(ctx, adminID, "withdrawal_management",
				fmt.Sprintf("%s withdrawal %s (%s)", next, id, cur.Amount.StringFixed(2))); err != nil {
				return err
			}
			w, err = tx.GetWithdrawal(ctx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	label := "Approved"
	switch next {
	case domain.WithdrawalRejected:
		label = "Rejected"
	case domain.WithdrawalProcessing:
		label = "Processing"
	}
	s.notify.Emit(notify.WithdrawalReviewed(w, label, reason))
	return w, nil
}
