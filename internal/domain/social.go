package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Referral Types ─────────────────────────────────────────────────────────
// A user can be referred exactly once, never by themselves.

// Referral links a referrer to the user they brought in.
type Referral struct {
	ID           string          `json:"id"`
	ReferrerID   string          `json:"referrer_id"`
	ReferredID   string          `json:"referred_id"`
	ReferralCode string          `json:"referral_code"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	NewUserBonus decimal.Decimal `json:"new_user_bonus"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ReferralSchedule is the single authoritative referral payout table used by
// every entry point that can register a referral.
type ReferralSchedule struct {
	NewUserBonus   decimal.Decimal `json:"new_user_bonus"`
	FirstTaskBonus decimal.Decimal `json:"first_task_bonus"`
}

// DefaultReferralSchedule returns the consolidated payout defaults.
// The referrer's own bonus comes from their tier.
func DefaultReferralSchedule() ReferralSchedule {
	return ReferralSchedule{
		NewUserBonus:   Coins(1.0),
		FirstTaskBonus: Coins(3.0),
	}
}

// ─── Tier Types ─────────────────────────────────────────────────────────────

// Tier is a referral-count bracket.
type Tier struct {
	Name             string          `json:"name"`
	MinReferrals     int             `json:"min_referrals"`
	MaxReferrals     *int            `json:"max_referrals"`
	BonusPerReferral decimal.Decimal `json:"bonus_per_referral"`
	MonthlyBonus     decimal.Decimal `json:"monthly_bonus"`
	Color            string          `json:"color"`
	Benefits         []string        `json:"benefits"`
}

func intPtr(n int) *int { return &n }

// Tiers returns the tier table ordered by threshold.
func Tiers() []Tier {
	return []Tier{
		{
			Name: "Bronze", MinReferrals: 0, MaxReferrals: intPtr(4),
			BonusPerReferral: Coins(2.0), MonthlyBonus: decimal.Zero, Color: "#CD7F32",
			Benefits: []string{"Basic referral rewards", "Access to referral tools"},
		},
		{
			Name: "Silver", MinReferrals: 5, MaxReferrals: intPtr(14),
			BonusPerReferral: Coins(2.5), MonthlyBonus: Coins(5.0), Color: "#C0C0C0",
			Benefits: []string{"Increased referral rewards", "Monthly bonus", "Priority support"},
		},
		{
			Name: "Gold", MinReferrals: 15, MaxReferrals: intPtr(49),
			BonusPerReferral: Coins(3.0), MonthlyBonus: Coins(15.0), Color: "#FFD700",
			Benefits: []string{"Higher referral rewards", "Larger monthly bonus", "Exclusive challenges", "VIP support"},
		},
		{
			Name: "Diamond", MinReferrals: 50,
			BonusPerReferral: Coins(4.0), MonthlyBonus: Coins(50.0), Color: "#B9F2FF",
			Benefits: []string{"Maximum referral rewards", "Premium monthly bonus", "All exclusive features", "Personal account manager"},
		},
	}
}

// TierProgress describes how far a user is from the next tier.
type TierProgress struct {
	Current    int     `json:"current"`
	Target     int     `json:"target"`
	Percentage float64 `json:"percentage"`
	Remaining  int     `json:"remaining"`
}

// ─── Team Types ─────────────────────────────────────────────────────────────

// MaxTeamMembers caps team size.
const MaxTeamMembers = 4

// Team name length bounds.
const (
	MinTeamName = 3
	MaxTeamName = 30
)

// Team is a group of up to four users who earn together.
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LeaderID       string    `json:"leader_id"`
	InvitationCode string    `json:"invitation_code"`
	MemberCount    int       `json:"member_count"`
	Division       string    `json:"division"`
	IsBanned       bool      `json:"is_banned"`
	CreatedAt      time.Time `json:"created_at"`
}

// Team member roles.
const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// TeamMember is a user's membership in a team.
type TeamMember struct {
	TeamID   string    `json:"team_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// TeamStats aggregates member earnings from the ledger.
type TeamStats struct {
	MemberCount           int             `json:"member_count"`
	TotalTaskEarnings     decimal.Decimal `json:"total_task_earnings"`
	TotalReferralEarnings decimal.Decimal `json:"total_referral_earnings"`
}

// TeamInvite records an invitation sent by a member.
type TeamInvite struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	InviterID string    `json:"inviter_id"`
	Method    string    `json:"method"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// LeaderboardEntry is one row of the referral leaderboard.
type LeaderboardEntry struct {
	Rank      int             `json:"rank"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Referrals int             `json:"referrals"`
	Earnings  decimal.Decimal `json:"earnings"`
}
