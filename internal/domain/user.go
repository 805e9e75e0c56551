// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring: users, tasks, ads, referrals, teams,
// withdrawals and the balance ledger that ties them together.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ─── User Types ─────────────────────────────────────────────────────────────

// AccountStatus is the moderation state of a user.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusBanned    AccountStatus = "banned"
	StatusSuspended AccountStatus = "suspended"
)

// User is a Mini App account keyed by its Telegram id.
// Created on first authentication, never deleted.
type User struct {
	TelegramID     string          `json:"telegram_id"`
	Username       string          `json:"username"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	ReferralCode   string          `json:"referral_code"`
	ReferredByCode string          `json:"referred_by_code,omitempty"`
	Status         AccountStatus   `json:"status"`
	BanReason      string          `json:"ban_reason,omitempty"`
	TeamID         string          `json:"team_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsBanned reports whether the user may not earn or withdraw.
// Suspension blocks the same actions as a ban.
func (u User) IsBanned() bool {
	return u.Status == StatusBanned || u.Status == StatusSuspended
}

// DisplayName picks the best human-readable name for notifications.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return "User " + u.TelegramID
}

// DefaultReferralCode derives the initial referral code from a Telegram id:
// "TAKAX" followed by the last six digits.
func DefaultReferralCode(telegramID string) string {
	tail := telegramID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return "TAKAX" + tail
}

// UserAction is an admin moderation command.
type UserAction string

const (
	ActionBan     UserAction = "ban"
	ActionUnban   UserAction = "unban"
	ActionSuspend UserAction = "suspend"
)

// StatusFor maps a moderation action to the resulting account status.
func (a UserAction) StatusFor() (AccountStatus, error) {
	switch a {
	case ActionBan:
		return StatusBanned, nil
	case ActionUnban:
		return StatusActive, nil
	case ActionSuspend:
		return StatusSuspended, nil
	}
	return "", fmt.Errorf("%w: unknown user action %q", ErrValidation, a)
}

// UserStats is the per-user dashboard aggregate.
type UserStats struct {
	Coins            decimal.Decimal `json:"coins"`
	TotalEarned      decimal.Decimal `json:"totalEarned"`
	TeamMembers      int             `json:"teamMembers"`
	TasksCompleted   int             `json:"tasksCompleted"`
	PendingTasks     int             `json:"pendingTasks"`
	RejectedTasks    int             `json:"rejectedTasks"`
	AdsWatched       int             `json:"adsWatched"`
	Referrals        int             `json:"referrals"`
	TeamEarnings     decimal.Decimal `json:"teamEarnings"`
	ReferralEarnings decimal.Decimal `json:"referralEarnings"`
	TodayEarnings    decimal.Decimal `json:"todayEarnings"`
}

// Notification is an in-app message shown in the Mini App banner area.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"` // "success", "info", "warning"
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportTicket is a user-submitted help request.
type SupportTicket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Image     string    `json:"image,omitempty"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminAction is one row of the moderation audit log.
type AdminAction struct {
	ID        int64     `json:"id"`
	AdminID   string    `json:"admin_id"`
	Kind      string    `json:"kind"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalUsers              int             `json:"totalUsers"`
	ActiveUsers             int             `json:"activeUsers"`
	BannedUsers             int             `json:"bannedUsers"`
	TotalWithdrawalAmount   decimal.Decimal `json:"totalWithdrawalAmount"`
	PendingWithdrawals      int             `json:"pendingWithdrawals"`
	PendingWithdrawalAmount decimal.Decimal `json:"pendingWithdrawalAmount"`
	TotalTasks              int             `json:"totalTasks"`
	ActiveTasks             int             `json:"activeTasks"`
	PendingReviews          int             `json:"pendingReviews"`
	TotalTeams              int             `json:"totalTeams"`
	ActiveTeams             int             `json:"activeTeams"`
	TotalRewardsPaid        decimal.Decimal `json:"totalRewardsPaid"`
}
