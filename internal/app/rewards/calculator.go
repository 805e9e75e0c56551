package rewards

import (
	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Reward Calculator ──────────────────────────────────────────────────────

// halfWatchPercentage earns half the ad reward when the full threshold is missed.
const halfWatchPercentage = 50

var two = decimal.NewFromInt(2)

// TaskOutcome is the review status and immediate reward of a submission.
type TaskOutcome struct {
	Status domain.SubmissionStatus
	Reward decimal.Decimal
}

// AutoApproves reports whether a task skips manual review: either it is
// configured to, or it is cheap and demands no proof.
func AutoApproves(task *domain.Task) bool {
	req := task.Requirements
	return req.AutoApprove || (task.RewardAmount.LessThan(domain.AutoApproveCeiling) && !req.ProofRequired)
}

// TaskReward decides the status and immediate reward of a new submission.
func TaskReward(task *domain.Task) TaskOutcome {
	if AutoApproves(task) {
		return TaskOutcome{Status: domain.SubmissionApproved, Reward: domain.Round2(task.RewardAmount)}
	}
	return TaskOutcome{Status: domain.SubmissionPending, Reward: decimal.Zero}
}

// AdReward pays the full base for a completed watch at or above the ad's
// threshold, half for at least 50%, nothing otherwise.
func AdReward(ad *domain.Ad, completed bool, pct int) decimal.Decimal {
	switch {
	case completed && pct >= ad.MinWatchPercentage:
		return domain.Round2(ad.RewardBase)
	case pct >= halfWatchPercentage:
		return domain.Round2(ad.RewardBase.Div(two))
	}
	return decimal.Zero
}

// ReferralReward is what one registration pays.
type ReferralReward struct {
	Referrer decimal.Decimal
	NewUser  decimal.Decimal
	Tier     domain.Tier
}

// ReferralRewards prices a registration. The referrer earns the bonus of
// the tier they hold before this referral is counted.
func ReferralRewards(referrerCount int, s domain.ReferralSchedule) ReferralReward {
	tier := TierFor(referrerCount)
	return ReferralReward{
		Referrer: domain.Round2(tier.BonusPerReferral),
		NewUser:  domain.Round2(s.NewUserBonus),
		Tier:     tier,
	}
}

// MonthlyBonus is the tier's monthly bonus for a referral count.
func MonthlyBonus(referralCount int) decimal.Decimal {
	return domain.Round2(TierFor(referralCount).MonthlyBonus)
}

// WithdrawalFee splits amount into fee and net for a percentage fee.
func WithdrawalFee(amount, feePercent decimal.Decimal) (fee, net decimal.Decimal) {
	amount = domain.Round2(amount)
	fee = domain.Round2(amount.Mul(feePercent).Div(decimal.NewFromInt(100)))
	return fee, amount.Sub(fee)
}

// SplitReward divides a team reward evenly between members, rounding each
// share to cents.
func SplitReward(total decimal.Decimal, members int) decimal.Decimal {
	if members <= 0 {
		return decimal.Zero
	}
	return domain.Round2(total.Div(decimal.NewFromInt(int64(members))))
}
