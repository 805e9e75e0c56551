package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Message Builders ───────────────────────────────────────────────────────
// Channel texts end with hashtags so the activity channel stays searchable.

// AdChatThreshold is the smallest ad reward announced in the channel.
var AdChatThreshold = domain.Coins(5.0)

func coins(d decimal.Decimal) string { return domain.Round2(d).String() }

// TaskCompleted announces an auto-approved or approved submission.
func TaskCompleted(userID string, task *domain.Task, reward decimal.Decimal) Event {
	return Event{
		UserID:  userID,
		Title:   "Task Completed!",
		Message: fmt.Sprintf("You earned %s TakaX coins for completing %q", coins(reward), task.Title),
		Type:    TypeSuccess,
		Chat: fmt.Sprintf("✅ Task completed!\n\nUser: %s\nTask: %s\nReward: %s TakaX coins\nType: %s\n\n#TaskCompleted #TakaX",
			userID, task.Title, coins(reward), task.TaskType),
	}
}

// TaskSubmitted announces a submission waiting for review.
func TaskSubmitted(userID string, task *domain.Task) Event {
	return Event{
		UserID:  userID,
		Title:   "Task Submitted",
		Message: fmt.Sprintf("Your submission for %q is under review. You'll be notified when approved.", task.Title),
		Type:    TypeInfo,
		Chat: fmt.Sprintf("📋 Task submitted for review!\n\nUser: %s\nTask: %s\nPotential reward: %s TakaX coins\nType: %s\n\n#TaskSubmitted #TakaX",
			userID, task.Title, coins(task.RewardAmount), task.TaskType),
	}
}

// TaskRejected tells a user their submission was declined.
func TaskRejected(userID string, task *domain.Task, note string) Event {
	msg := fmt.Sprintf("Your submission for %q was not approved.", task.Title)
	if note != "" {
		msg += " " + note
	}
	return Event{UserID: userID, Title: "Task Rejected", Message: msg, Type: TypeWarning}
}

// AdCompleted announces a rewarded view. Small rewards stay out of the
// channel.
func AdCompleted(userID string, ad *domain.Ad, reward decimal.Decimal, seconds int) Event {
	ev := Event{
		UserID:  userID,
		Title:   "Ad Reward",
		Message: fmt.Sprintf("You earned %s TakaX coins for watching %q", coins(reward), ad.Title),
		Type:    TypeSuccess,
	}
	if reward.GreaterThanOrEqual(AdChatThreshold) {
		ev.Chat = fmt.Sprintf("🎬 Ad completed!\n\nUser: %s\nAd: %s\nReward: %s TakaX coins\nWatch time: %ds\n\n#AdCompleted #TakaX",
			userID, ad.Title, coins(reward), seconds)
	}
	return ev
}

// ReferralSuccess returns the referrer notice and the new user's welcome.
func ReferralSuccess(referrerID, referredID string, referrerReward, welcome decimal.Decimal, totalReferrals int) []Event {
	events := []Event{{
		UserID:  referrerID,
		Title:   "Referral Bonus!",
		Message: fmt.Sprintf("You earned %s TakaX coins for referring user %s!", coins(referrerReward), referredID),
		Type:    TypeSuccess,
		Chat: fmt.Sprintf("🎉 New referral success!\n\nReferrer: User %s\nNew user: User %s\nReward: %s TakaX coins\nTotal referrals: %d\n\n#NewReferral #TakaX",
			referrerID, referredID, coins(referrerReward), totalReferrals),
	}}
	if welcome.IsPositive() {
		events = append(events, Event{
			UserID:  referredID,
			Title:   "Welcome Bonus!",
			Message: fmt.Sprintf("You received %s TakaX coins as a welcome bonus!", coins(welcome)),
			Type:    TypeSuccess,
		})
	}
	return events
}

// FirstTaskBonus tells a referrer their referral finished a first task.
func FirstTaskBonus(referrerID, referredID string, reward decimal.Decimal) Event {
	return Event{
		UserID:  referrerID,
		Title:   "Referral Milestone!",
		Message: fmt.Sprintf("User %s completed their first task. You earned %s TakaX coins!", referredID, coins(reward)),
		Type:    TypeSuccess,
	}
}

// MonthlyBonusClaimed confirms a tier monthly bonus.
func MonthlyBonusClaimed(userID, tier string, reward decimal.Decimal) Event {
	return Event{
		UserID:  userID,
		Title:   "Monthly Bonus!",
		Message: fmt.Sprintf("You received your %s tier monthly bonus of %s TakaX coins!", tier, coins(reward)),
		Type:    TypeSuccess,
		Chat: fmt.Sprintf("💰 Monthly bonus claimed!\n\nUser: %s\nBonus: %s TakaX coins\nTier: %s\n\n#MonthlyBonus #TakaX",
			userID, coins(reward), tier),
	}
}

// TeamCreated confirms a new team to its leader and announces it.
func TeamCreated(team *domain.Team) Event {
	return Event{
		UserID:  team.LeaderID,
		Title:   "Team Created!",
		Message: fmt.Sprintf("Your team %q has been created successfully. Share code %s to invite members.", team.Name, team.InvitationCode),
		Type:    TypeSuccess,
		Chat: fmt.Sprintf("🎉 New team created!\n\nTeam: %s\nCode: %s\nLeader: User %s\nMembers: 1/%d\n\n#TeamCreated #TakaX",
			team.Name, team.InvitationCode, team.LeaderID, domain.MaxTeamMembers),
	}
}

// TeamJoined returns the joiner's confirmation and the leader's notice.
func TeamJoined(team *domain.Team, userID string) []Event {
	return []Event{
		{
			UserID:  userID,
			Title:   "Joined Team!",
			Message: fmt.Sprintf("You have successfully joined team %q. Start earning together!", team.Name),
			Type:    TypeSuccess,
		},
		{
			UserID:  team.LeaderID,
			Title:   "New Team Member!",
			Message: fmt.Sprintf("User %s has joined your team %q.", userID, team.Name),
			Type:    TypeInfo,
		},
	}
}

// MemberRemoved announces a leader removing a member.
func MemberRemoved(team *domain.Team, targetID, leaderID string) Event {
	return Event{
		UserID:  targetID,
		Title:   "Removed From Team",
		Message: fmt.Sprintf("You have been removed from team %q.", team.Name),
		Type:    TypeWarning,
		Chat: fmt.Sprintf("👋 Member removed from team!\n\nTeam: %s\nRemoved: User %s\nBy: Leader %s\n\n#MemberRemoved #TakaX",
			team.Name, targetID, leaderID),
	}
}

// LeadershipTransferred announces a new team leader.
func LeadershipTransferred(team *domain.Team, newLeaderID, formerLeaderID string) Event {
	return Event{
		UserID:  newLeaderID,
		Title:   "You Are Team Leader!",
		Message: fmt.Sprintf("You are now the leader of team %q.", team.Name),
		Type:    TypeSuccess,
		Chat: fmt.Sprintf("👑 Leadership transferred!\n\nTeam: %s\nNew leader: User %s\nFormer leader: User %s\n\n#LeadershipChange #TakaX",
			team.Name, newLeaderID, formerLeaderID),
	}
}

// MemberLeft announces a member leaving.
func MemberLeft(team *domain.Team, userID string) Event {
	return Event{
		Chat: fmt.Sprintf("👋 Member left team!\n\nTeam: %s\nLeft: User %s\n\n#MemberLeft #TakaX", team.Name, userID),
	}
}

// ChallengeJoined announces a team entering a challenge.
func ChallengeJoined(challengeID, teamID, userID string) Event {
	return Event{
		Chat: fmt.Sprintf("🎯 User joined team challenge!\n\nChallenge: %s\nTeam: %s\nUser: %s\n\n#ChallengeJoined #TakaX",
			challengeID, teamID, userID),
	}
}

// ChallengeProgress announces recomputed challenge progress.
func ChallengeProgress(challengeID, teamID string, progress, target int) Event {
	return Event{
		Chat: fmt.Sprintf("📈 Challenge progress updated!\n\nChallenge: %s\nTeam: %s\nProgress: %d/%d\n\n#ProgressUpdate #TakaX",
			challengeID, teamID, progress, target),
	}
}

// ChallengeCompleted announces a paid-out challenge and credits each member.
func ChallengeCompleted(challengeID, teamID string, reward, share decimal.Decimal, memberIDs []string) []Event {
	events := []Event{{
		Chat: fmt.Sprintf("🏆 Team challenge completed!\n\nChallenge: %s\nTeam: %s\nReward: %s coins\n\n#ChallengeCompleted #TakaX",
			challengeID, teamID, coins(reward)),
	}}
	for _, id := range memberIDs {
		events = append(events, Event{
			UserID:  id,
			Title:   "Challenge Completed!",
			Message: fmt.Sprintf("Your team completed a challenge. You earned %s TakaX coins!", coins(share)),
			Type:    TypeSuccess,
		})
	}
	return events
}

// WithdrawalRequested confirms a payout request.
func WithdrawalRequested(w *domain.Withdrawal) Event {
	return Event{
		UserID:  w.UserID,
		Title:   "Withdrawal Requested",
		Message: fmt.Sprintf("Your withdrawal of $%s via %s is pending review.", w.Amount.StringFixed(2), w.Method),
		Type:    TypeInfo,
	}
}

// WithdrawalReviewed tells a user an admin decided their withdrawal.
func WithdrawalReviewed(w *domain.Withdrawal, action, reason string) Event {
	var msg string
	typ := TypeSuccess
	switch w.Status {
	case domain.WithdrawalRejected:
		typ = TypeWarning
		if reason == "" {
			reason = "Please contact support for details."
		}
		msg = fmt.Sprintf("Your withdrawal of $%s has been rejected. %s", w.Amount.StringFixed(2), reason)
	case domain.WithdrawalProcessing:
		typ = TypeInfo
		msg = fmt.Sprintf("Your withdrawal of $%s is being processed.", w.Amount.StringFixed(2))
	default:
		msg = fmt.Sprintf("Your withdrawal of $%s has been approved and processed.", w.Amount.StringFixed(2))
	}
	return Event{
		UserID:  w.UserID,
		Title:   "Withdrawal " + action,
		Message: msg,
		Type:    typ,
	}
}
