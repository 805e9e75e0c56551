package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Balance Ledger ─────────────────────────────────────────────────────────
// Every balance change is one LedgerEntry, written in the same transaction
// as the balance increment. A user's balance always equals the sum of their
// entry amounts.

// EntryType is the business reason for a ledger entry.
type EntryType string

const (
	EntryTaskAdd           EntryType = "task_add"
	EntryAdAdd             EntryType = "ad_add"
	EntryReferAdd          EntryType = "refer_add"
	EntryBonusAdd          EntryType = "bonus_add"
	EntryTeamAdd           EntryType = "team_add"
	EntryWithdrawalRequest EntryType = "withdrawal_request"
	EntryWithdrawalRefund  EntryType = "withdrawal_refund"
)

// Earning reports whether entries of this type count toward total_earned.
// Refunds return previously earned coins and are excluded.
func (t EntryType) Earning() bool {
	switch t {
	case EntryTaskAdd, EntryAdAdd, EntryReferAdd, EntryBonusAdd, EntryTeamAdd:
		return true
	}
	return false
}

// LedgerEntry is a single balance history row.
type LedgerEntry struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Type           EntryType       `json:"type"`
	Reason         string          `json:"reason"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Mutation is a requested balance change. Key identifies the business action
// and is applied at most once.
type Mutation struct {
	UserID string
	Delta  decimal.Decimal
	Type   EntryType
	Reason string
	Key    string
}

// Validate rejects mutations that could never be applied.
func (m Mutation) Validate() error {
	if m.UserID == "" || m.Key == "" || m.Type == "" {
		return fmt.Errorf("%w: mutation needs user, type and key", ErrValidation)
	}
	if Round2(m.Delta).IsZero() {
		return fmt.Errorf("%w: zero-amount mutation", ErrValidation)
	}
	if m.Type.Earning() && m.Delta.IsNegative() {
		return fmt.Errorf("%w: earning entry must be positive", ErrValidation)
	}
	return nil
}

// TaskRewardKey identifies the credit for one task submission.
func TaskRewardKey(submissionID string) string { return "task:" + submissionID }

// AdRewardKey identifies the credit for one ad view.
func AdRewardKey(viewID string) string { return "ad:" + viewID }

// ReferrerRewardKey identifies the referrer's bonus for a referred user.
func ReferrerRewardKey(referredID string) string { return "referral:" + referredID + ":referrer" }

// WelcomeBonusKey identifies the new user's welcome bonus.
func WelcomeBonusKey(referredID string) string { return "referral:" + referredID + ":welcome" }

// FirstTaskBonusKey identifies the referrer's first-task milestone bonus.
func FirstTaskBonusKey(referredID string) string { return "referral:" + referredID + ":first_task" }

// MonthlyBonusKey identifies a tier monthly bonus; month is "2006-01".
func MonthlyBonusKey(userID, month string) string { return "tier_monthly:" + userID + ":" + month }

// WithdrawalRequestKey identifies the debit of a withdrawal request.
func WithdrawalRequestKey(id string) string { return "withdrawal:" + id + ":request" }

// WithdrawalRefundKey identifies the refund of a rejected withdrawal.
func WithdrawalRefundKey(id string) string { return "withdrawal:" + id + ":refund" }

// ChallengeRewardKey identifies one member's share of a team challenge reward.
func ChallengeRewardKey(teamID, challenge, period, userID string) string {
	return "team_challenge:" + teamID + ":" + challenge + ":" + period + ":" + userID
}

// ─── Withdrawal Types ───────────────────────────────────────────────────────

// WithdrawalStatus is the processing state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
)

// ParseWithdrawalAction maps an admin action to a target status.
// "approved" is accepted as a synonym for completed.
func ParseWithdrawalAction(action string) (WithdrawalStatus, error) {
	switch action {
	case "approved", "approve", string(WithdrawalCompleted):
		return WithdrawalCompleted, nil
	case "rejected", "reject":
		return WithdrawalRejected, nil
	case string(WithdrawalProcessing):
		return WithdrawalProcessing, nil
	}
	return "", fmt.Errorf("%w: unknown withdrawal action %q", ErrValidation, action)
}

// Terminal reports whether the status can no longer change.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected
}

// CanTransition reports whether a withdrawal may move from s to next.
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalPending:
		return next == WithdrawalProcessing || next == WithdrawalCompleted || next == WithdrawalRejected
	case WithdrawalProcessing:
		return next == WithdrawalCompleted || next == WithdrawalRejected
	}
	return false
}

// Withdrawal is a payout request. The amount is debited when the request is
// created and credited back if an admin rejects it.
type Withdrawal struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Fee         decimal.Decimal  `json:"fee"`
	NetAmount   decimal.Decimal  `json:"net_amount"`
	Method      string           `json:"method"`
	Account     string           `json:"account"`
	Status      WithdrawalStatus `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	ProcessedBy string           `json:"processed_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// WithdrawalSummary aggregates a user's full withdrawal history.
type WithdrawalSummary struct {
	TotalWithdrawals int                      `json:"total_withdrawals"`
	TotalAmount      decimal.Decimal          `json:"total_amount"`
	TotalFees        decimal.Decimal          `json:"total_fees"`
	TotalNet         decimal.Decimal          `json:"total_net"`
	StatusCounts     map[WithdrawalStatus]int `json:"status_counts"`
}
