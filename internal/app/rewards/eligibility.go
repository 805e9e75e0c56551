// Package rewards holds the pure reward rules: who may earn, how much, and
// how a reward becomes a ledger mutation.
package rewards

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Eligibility Evaluator ──────────────────────────────────────────────────
// Each check reads facts already loaded by the caller and decides. The first
// failing rule wins; nothing here touches storage.

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

// Allow is the passing decision.
func Allow() Decision { return Decision{Allowed: true} }

func deny(reason string, err error) Decision {
	return Decision{Reason: reason, Err: err}
}

// CheckTask decides whether user may submit task today.
func CheckTask(user *domain.User, task *domain.Task, todayCount int, proof domain.Proof) Decision {
	if !task.IsActive {
		return deny("task_inactive", domain.ErrTaskInactive)
	}
	if user.IsBanned() {
		return deny("user_banned", domain.ErrUserBanned)
	}
	if todayCount >= task.DailyLimit {
		return deny("daily_limit", domain.WithMessage(domain.ErrDailyLimit,
			fmt.Sprintf("Daily limit reached for this task (%d per day)", task.DailyLimit)))
	}
	req := task.Requirements
	if req.ProofRequired && !proof.Has(req.ProofType) {
		return deny("proof_missing", domain.WithMessage(domain.ErrProofRequired, proofMessage(req.ProofType)))
	}
	return Allow()
}

func proofMessage(pt domain.ProofType) string {
	switch pt {
	case domain.ProofUsername:
		return "Username is required for this task"
	case domain.ProofScreenshot:
		return "Screenshot proof is required for this task"
	case domain.ProofText:
		return "Text proof is required for this task"
	}
	return domain.ErrProofRequired.Error()
}

// CheckAd decides whether user may be rewarded for another view of ad today.
func CheckAd(user *domain.User, ad *domain.Ad, todayCount int) Decision {
	if !ad.IsActive {
		return deny("ad_inactive", domain.ErrAdInactive)
	}
	if user.IsBanned() {
		return deny("user_banned", domain.ErrUserBanned)
	}
	if todayCount >= ad.DailyLimit {
		return deny("daily_limit", domain.WithMessage(domain.ErrDailyLimit, "Daily ad limit reached"))
	}
	return Allow()
}

// WithdrawalPolicy bounds withdrawal requests.
type WithdrawalPolicy struct {
	Minimum decimal.Decimal
	Methods []string
}

// CheckWithdrawal decides whether user may withdraw amount via method.
func CheckWithdrawal(user *domain.User, amount decimal.Decimal, method string, p WithdrawalPolicy) Decision {
	if user.IsBanned() {
		return deny("user_banned", domain.ErrUserBanned)
	}
	if amount.LessThan(p.Minimum) {
		return deny("below_minimum", domain.WithMessage(domain.ErrBelowMinimum,
			fmt.Sprintf("Minimum withdrawal is %s", p.Minimum.StringFixed(2))))
	}
	if domain.Round2(amount).GreaterThan(user.Balance) {
		return deny("insufficient_balance", domain.ErrInsufficientBalance)
	}
	if !methodAllowed(method, p.Methods) {
		return deny("invalid_method", domain.ErrInvalidMethod)
	}
	return Allow()
}

func methodAllowed(method string, methods []string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// CheckReferral decides whether referred may be credited to referrer.
// referrer is nil when the code matched nobody.
func CheckReferral(referrer, referred *domain.User, alreadyReferred bool) Decision {
	if referrer == nil {
		return deny("invalid_code", domain.ErrInvalidReferralCode)
	}
	if alreadyReferred {
		return deny("already_referred", domain.ErrAlreadyReferred)
	}
	if referrer.TelegramID == referred.TelegramID {
		return deny("self_referral", domain.ErrSelfReferral)
	}
	if referrer.IsBanned() {
		return deny("referrer_banned", domain.ErrUserBanned)
	}
	return Allow()
}

// CheckTeamJoin decides whether user may take a seat in team.
func CheckTeamJoin(user *domain.User, team *domain.Team) Decision {
	if user.IsBanned() {
		return deny("user_banned", domain.ErrUserBanned)
	}
	if user.TeamID != "" {
		return deny("already_in_team", domain.ErrAlreadyInTeam)
	}
	if team.IsBanned {
		return deny("team_banned", domain.ErrTeamBanned)
	}
	if team.MemberCount >= domain.MaxTeamMembers {
		return deny("team_full", domain.ErrTeamFull)
	}
	return Allow()
}

// CheckTeamCreate decides whether user may found a team called name.
func CheckTeamCreate(user *domain.User, name string) Decision {
	if user.IsBanned() {
		return deny("user_banned", domain.ErrUserBanned)
	}
	if user.TeamID != "" {
		return deny("already_in_team", domain.ErrAlreadyInTeam)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < domain.MinTeamName || n > domain.MaxTeamName {
		return deny("team_name", domain.ErrTeamName)
	}
	return Allow()
}
