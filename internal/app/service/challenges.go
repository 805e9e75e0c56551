package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Team Challenges ────────────────────────────────────────────────────────
// Progress is derived from what members actually did since joining the
// team; nothing is self-reported. Weekly challenges reset every Monday in
// the configured timezone, milestones run once per team.

// Challenge periods.
const (
	ChallengeWeekly    = "weekly"
	ChallengeMilestone = "milestone"

	milestonePeriod = "all"
)

// ChallengeDef describes a challenge.
type ChallengeDef struct {
	ID          string
	Title       string
	Description string
	Type        string
	Target      int
	Reward      decimal.Decimal
}

// Challenges is the challenge catalogue.
func Challenges() []ChallengeDef {
	return []ChallengeDef{
		{ID: "ad_marathon", Title: "Team Ad Marathon", Description: "Watch 50 ads as a team this week",
			Type: ChallengeWeekly, Target: 50, Reward: domain.Coins(25.0)},
		{ID: "social_boost", Title: "Social Media Boost", Description: "Complete 10 social media tasks together",
			Type: ChallengeWeekly, Target: 10, Reward: domain.Coins(15.0)},
		{ID: "full_team", Title: "Full Team Bonus", Description: "Reach maximum team size (4 members)",
			Type: ChallengeMilestone, Target: domain.MaxTeamMembers, Reward: domain.Coins(50.0)},
	}
}

func challengeByID(id string) (ChallengeDef, bool) {
	for _, c := range Challenges() {
		if c.ID == id {
			return c, true
		}
	}
	return ChallengeDef{}, false
}

// Challenge statuses.
const (
	ChallengeAvailable = "available"
	ChallengeActive    = "active"
	ChallengeCompleted = "completed"
)

// ChallengeView is a challenge with a team's progress.
type ChallengeView struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         string          `json:"type"`
	Target       int             `json:"target"`
	Progress     int             `json:"progress"`
	Reward       decimal.Decimal `json:"reward"`
	BonusType    string          `json:"bonus_type"`
	StartDate    string          `json:"start_date,omitempty"`
	EndDate      string          `json:"end_date,omitempty"`
	Status       string          `json:"status"`
	Participants int             `json:"participants"`
	period       string
}

// ChallengeStats summarises a team's challenges.
type ChallengeStats struct {
	TotalChallenges       int             `json:"total_challenges"`
	ActiveChallenges      int             `json:"active_challenges"`
	CompletedChallenges   int             `json:"completed_challenges"`
	TotalRewardsAvailable decimal.Decimal `json:"total_rewards_available"`
	WeeklyProgress        int             `json:"weekly_progress"`
}

// Recommendation nudges a team toward an unfinished challenge.
type Recommendation struct {
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Reward      decimal.Decimal `json:"reward"`
}

// TeamChallengeBoard is the challenges screen of a team.
type TeamChallengeBoard struct {
	Challenges      []ChallengeView  `json:"challenges"`
	TeamStats       ChallengeStats   `json:"teamStats"`
	Recommendations []Recommendation `json:"recommendations"`
}

func (s *Service) challengeView(ctx context.Context, q *sqlite.Queries, team *domain.Team, def ChallengeDef) (ChallengeView, error) {
	v := ChallengeView{
		ID: def.ID, Title: def.Title, Description: def.Description, Type: def.Type,
		Target: def.Target, Reward: def.Reward, BonusType: "coins", Participants: team.MemberCount,
		period: milestonePeriod,
	}
	now := s.now()
	if def.Type == ChallengeWeekly {
		start := s.startOfWeek(now)
		v.period = s.weekPeriod(now)
		v.StartDate = start.Format(time.DateOnly)
		v.EndDate = start.AddDate(0, 0, 7).Format(time.DateOnly)

		var taskType domain.TaskType
		if def.ID == "social_boost" {
			taskType = domain.TaskSocialMedia
		}
		ads, tasks, err := q.TeamActivity(ctx, team.ID, start, taskType)
		if err != nil {
			return v, err
		}
		if def.ID == "ad_marathon" {
			v.Progress = ads
		} else {
			v.Progress = tasks
		}
	} else {
		v.Progress = team.MemberCount
	}

	st, err := q.GetChallengeState(ctx, team.ID, def.ID, v.period)
	if err != nil {
		return v, err
	}
	switch {
	case st.CompletedAt != nil:
		v.Status = ChallengeCompleted
	case st.Joined:
		v.Status = ChallengeActive
	default:
		v.Status = ChallengeAvailable
	}
	return v, nil
}

// TeamChallenges returns every challenge with the team's progress.
func (s *Service) TeamChallenges(ctx context.Context, teamID string) (*TeamChallengeBoard, error) {
	if err := requireID("teamId", teamID); err != nil {
		return nil, err
	}
	return timed("team.challenges", func() (*TeamChallengeBoard, error) {
		team, err := s.db.GetTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
		board := &TeamChallengeBoard{Recommendations: []Recommendation{}}
		board.TeamStats.TotalRewardsAvailable = decimal.Zero
		var weeklyPct float64
		var weekly int
		for _, def := range Challenges() {
			v, err := s.challengeView(ctx, s.db.Queries, team, def)
			if err != nil {
				return nil, err
			}
			board.Challenges = append(board.Challenges, v)
			board.TeamStats.TotalChallenges++
			switch v.Status {
			case ChallengeCompleted:
				board.TeamStats.CompletedChallenges++
			case ChallengeActive:
				board.TeamStats.ActiveChallenges++
			}
			if v.Status != ChallengeCompleted {
				board.TeamStats.TotalRewardsAvailable = board.TeamStats.TotalRewardsAvailable.Add(v.Reward)
				if r, ok := recommend(v); ok {
					board.Recommendations = append(board.Recommendations, r)
				}
			}
			if def.Type == ChallengeWeekly {
				weekly++
				weeklyPct += math.Min(float64(v.Progress)/float64(v.Target), 1)
			}
		}
		if weekly > 0 {
			board.TeamStats.WeeklyProgress = int(math.Round(weeklyPct / float64(weekly) * 100))
		}
		return board, nil
	})
}

func recommend(v ChallengeView) (Recommendation, bool) {
	left := v.Target - v.Progress
	if left <= 0 {
		return Recommendation{Type: "challenge", Title: "Claim " + v.Title,
			Description: "Target reached. Complete the challenge to collect the reward", Priority: "high", Reward: v.Reward}, true
	}
	switch v.ID {
	case "ad_marathon":
		return Recommendation{Type: "challenge", Title: "Focus on Ad Marathon",
			Description: fmt.Sprintf("%d more ads needed to complete this week's challenge", left), Priority: "high", Reward: v.Reward}, true
	case "social_boost":
		return Recommendation{Type: "challenge", Title: "Boost social tasks",
			Description: fmt.Sprintf("%d more social media tasks needed this week", left), Priority: "medium", Reward: v.Reward}, true
	case "full_team":
		noun := "members"
		if left == 1 {
			noun = "member"
		}
		return Recommendation{Type: "recruitment", Title: fmt.Sprintf("Invite %d more %s", left, noun),
			Description: "Unlock the Full Team Bonus by reaching 4 members", Priority: "medium", Reward: v.Reward}, true
	}
	return Recommendation{}, false
}

// Challenge actions.
const (
	ChallengeJoin     = "join_challenge"
	ChallengeUpdate   = "update_progress"
	ChallengeComplete = "complete_challenge"
)

// ChallengeResult is the outcome of ChallengeAction.
type ChallengeResult struct {
	ChallengeID string          `json:"challengeId"`
	TeamID      string          `json:"teamId"`
	UserID      string          `json:"userId,omitempty"`
	Status      string          `json:"status"`
	Progress    int             `json:"newProgress"`
	Target      int             `json:"target"`
	Reward      decimal.Decimal `json:"reward"`
	Share       decimal.Decimal `json:"share"`
}

// ChallengeAction lets a member join a challenge, refresh its progress, or
// complete it. Completion requires the target to be reached and splits the
// reward evenly between current members, once per period.
func (s *Service) ChallengeAction(ctx context.Context, challengeID, teamID, userID, action string) (*ChallengeResult, error) {
	if err := requireID("teamId", teamID); err != nil {
		return nil, err
	}
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	def, ok := challengeByID(challengeID)
	if !ok {
		return nil, domain.ErrUnknownChallenge
	}
	if action != ChallengeJoin && action != ChallengeUpdate && action != ChallengeComplete {
		return nil, domain.ErrInvalidAction
	}

	res := &ChallengeResult{ChallengeID: def.ID, TeamID: teamID, Target: def.Target, Reward: decimal.Zero, Share: decimal.Zero}
	var events []notify.Event
	err := s.onLane(ctx, "team.challenge", userID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			team, err := tx.GetTeam(ctx, teamID)
			if err != nil {
				return err
			}
			if team.IsBanned {
				return domain.ErrTeamBanned
			}
			if _, err := tx.GetMember(ctx, teamID, userID); err != nil {
				return err
			}
			v, err := s.challengeView(ctx, tx.Queries, team, def)
			if err != nil {
				return err
			}
			res.Progress = v.Progress

			switch action {
			case ChallengeJoin:
				if err := tx.JoinChallenge(ctx, teamID, def.ID, v.period); err != nil {
					return err
				}
				res.UserID, res.Status = userID, "joined"
				events = append(events, notify.ChallengeJoined(def.ID, teamID, userID))

			case ChallengeUpdate:
				res.Status = "updated"
				events = append(events, notify.ChallengeProgress(def.ID, teamID, v.Progress, def.Target))

			case ChallengeComplete:
				if v.Progress < def.Target {
					return domain.WithMessage(domain.ErrChallengeIncomplete,
						fmt.Sprintf("Challenge target not reached (%d/%d)", v.Progress, def.Target))
				}
				if err := tx.CompleteChallenge(ctx, teamID, def.ID, v.period); err != nil {
					return err
				}
				members, err := tx.ListMembers(ctx, teamID)
				if err != nil {
					return err
				}
				share := rewards.SplitReward(def.Reward, len(members))
				ids := make([]string, 0, len(members))
				for _, m := range members {
					if _, _, err := s.ledger.Apply(ctx, tx, domain.Mutation{
						UserID: m.UserID,
						Delta:  share,
						Type:   domain.EntryTeamAdd,
						Reason: fmt.Sprintf("Team challenge reward: %s", def.Title),
						Key:    domain.ChallengeRewardKey(teamID, def.ID, v.period, m.UserID),
					}); err != nil {
						return err
					}
					ids = append(ids, m.UserID)
				}
				res.Status, res.Reward, res.Share = "completed", def.Reward, share
				events = append(events, notify.ChallengeCompleted(def.ID, teamID, def.Reward, share, ids)...)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}
