package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Teams ──────────────────────────────────────────────────────────────────

// TeamBenefits is shown to a leader after creating a team.
var TeamBenefits = []string{
	"Access to exclusive team challenges",
	"Shared team earnings statistics",
	"Team leaderboard participation",
}

// teamCodeAttempts bounds retries on an invitation code collision.
const teamCodeAttempts = 5

// newTeamCode returns "TX" followed by six uppercase characters.
func newTeamCode() string {
	return "TX" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// InviteLink is the Mini App deep link that joins a team, empty when the
// bot username is unknown.
func (s *Service) InviteLink(code string) string {
	if s.cfg.BotUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?startapp=%s%s", s.cfg.BotUsername, startParamTeam, code)
}

// CreateTeam founds a team led by userID.
func (s *Service) CreateTeam(ctx context.Context, userID, name string) (*domain.Team, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	var team *domain.Team
	err := s.onLane(ctx, "team.create", userID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			user, err := tx.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			if d := rewards.CheckTeamCreate(user, name); !d.Allowed {
				return s.reject(ctx, "team_create", d)
			}
			taken, err := tx.TeamNameTaken(ctx, name)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrTeamNameTaken
			}

			for attempt := 0; attempt < teamCodeAttempts; attempt++ {
				team = &domain.Team{ID: uuid.NewString(), Name: name, LeaderID: userID, InvitationCode: newTeamCode()}
				err = tx.InsertTeam(ctx, team)
				if !errors.Is(err, domain.ErrDuplicate) {
					return err
				}
				if taken, terr := tx.TeamNameTaken(ctx, name); terr == nil && taken {
					return domain.ErrTeamNameTaken
				}
			}
			return fmt.Errorf("allocate team code: %w", err)
		})
	})
	if err != nil {
		return nil, err
	}
	observability.Entry(ctx, s.log).WithField("team_id", team.ID).Info("team created")
	s.notify.Emit(notify.TeamCreated(team))
	return team, nil
}

// JoinTeam seats userID in the team with the invitation code.
func (s *Service) JoinTeam(ctx context.Context, userID, code string) (*domain.Team, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if err := requireID("teamCode", code); err != nil {
		return nil, err
	}
	var team *domain.Team
	err := s.onLane(ctx, "team.join", userID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			var err error
			team, err = s.joinTeam(ctx, tx, userID, code)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(notify.TeamJoined(team, userID)...)
	return team, nil
}

func (s *Service) joinTeam(ctx context.Context, tx *sqlite.Tx, userID, code string) (*domain.Team, error) {
	team, err := tx.GetTeamByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := rewards.CheckTeamJoin(user, team); !d.Allowed {
		return nil, s.reject(ctx, "team_join", d)
	}
	if err := tx.AddMember(ctx, team.ID, userID); err != nil {
		return nil, err
	}
	return tx.GetTeam(ctx, team.ID)
}

// ─── Membership Management ──────────────────────────────────────────────────

// Team management actions.
const (
	ManageRemoveMember = "remove_member"
	ManagePromote      = "promote_to_leader"
	ManageLeave        = "leave_team"
)

// ManageRequest is a membership change.
type ManageRequest struct {
	Action       string
	TeamID       string
	TargetUserID string
	RequesterID  string
}

// ManageResult reports what changed.
type ManageResult struct {
	Action      string       `json:"action"`
	Team        *domain.Team `json:"team"`
	TeamDeleted bool         `json:"team_deleted"`
	NewLeaderID string       `json:"new_leader_id,omitempty"`
}

// ManageTeam removes or promotes a member (leader only) or lets the
// requester leave. A leaving leader hands over to the longest-standing
// member; the last member leaving deletes the team.
func (s *Service) ManageTeam(ctx context.Context, req ManageRequest) (*ManageResult, error) {
	if err := requireID("teamId", req.TeamID); err != nil {
		return nil, err
	}
	if err := requireID("requesterId", req.RequesterID); err != nil {
		return nil, err
	}
	switch req.Action {
	case ManageRemoveMember, ManagePromote:
		if req.TargetUserID == "" {
			return nil, domain.WithMessage(domain.ErrValidation, "Target user ID required")
		}
	case ManageLeave:
	default:
		return nil, domain.ErrInvalidAction
	}

	res := &ManageResult{Action: req.Action}
	var events []notify.Event
	err := s.onLane(ctx, "team.manage", req.RequesterID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			team, err := tx.GetTeam(ctx, req.TeamID)
			if err != nil {
				return err
			}
			if _, err := tx.GetMember(ctx, team.ID, req.RequesterID); err != nil {
				return err
			}
			isLeader := team.LeaderID == req.RequesterID

			switch req.Action {
			case ManageRemoveMember:
				if !isLeader {
					return domain.ErrNotTeamLeader
				}
				if req.TargetUserID == req.RequesterID {
					return domain.WithMessage(domain.ErrValidation, "Leaders leave with leave_team")
				}
				if err := tx.RemoveMember(ctx, team.ID, req.TargetUserID); err != nil {
					return err
				}
				events = append(events, notify.MemberRemoved(team, req.TargetUserID, req.RequesterID))

			case ManagePromote:
				if !isLeader {
					return domain.ErrNotTeamLeader
				}
				if _, err := tx.GetMember(ctx, team.ID, req.TargetUserID); err != nil {
					return err
				}
				if err := tx.SetLeader(ctx, team.ID, req.TargetUserID); err != nil {
					return err
				}
				res.NewLeaderID = req.TargetUserID
				events = append(events, notify.LeadershipTransferred(team, req.TargetUserID, req.RequesterID))

			case ManageLeave:
				if err := tx.RemoveMember(ctx, team.ID, req.RequesterID); err != nil {
					return err
				}
				events = append(events, notify.MemberLeft(team, req.RequesterID))
				remaining, err := tx.ListMembers(ctx, team.ID)
				if err != nil {
					return err
				}
				if len(remaining) == 0 {
					res.TeamDeleted = true
					return tx.DeleteTeam(ctx, team.ID)
				}
				if isLeader {
					heir := remaining[0].UserID
					if err := tx.SetLeader(ctx, team.ID, heir); err != nil {
						return err
					}
					res.NewLeaderID = heir
					events = append(events, notify.LeadershipTransferred(team, heir, req.RequesterID))
				}
			}

			res.Team, err = tx.GetTeam(ctx, team.ID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

// ─── Invitations ────────────────────────────────────────────────────────────

// Invite methods.
const (
	InviteByUsername = "username"
	InviteByLink     = "link"
)

// InviteResult is the outcome of InviteToTeam.
type InviteResult struct {
	Invite  *domain.TeamInvite
	Link    string
	Message string
}

// InviteToTeam records an invitation from a member. A username invite
// notifies that user in-app; a link invite returns the deep link.
func (s *Service) InviteToTeam(ctx context.Context, teamID, inviterID, method, target string) (*InviteResult, error) {
	if err := requireID("teamId", teamID); err != nil {
		return nil, err
	}
	if err := requireID("inviterId", inviterID); err != nil {
		return nil, err
	}
	if err := requireID("target", target); err != nil {
		return nil, err
	}
	if method != InviteByUsername && method != InviteByLink {
		return nil, domain.WithMessage(domain.ErrInvalidAction, "Invalid invite method")
	}

	res := &InviteResult{}
	var events []notify.Event
	err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		team, err := tx.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if team.IsBanned {
			return domain.ErrTeamBanned
		}
		if team.MemberCount >= domain.MaxTeamMembers {
			return domain.ErrTeamFull
		}
		if _, err := tx.GetMember(ctx, teamID, inviterID); err != nil {
			return err
		}
		res.Link = s.InviteLink(team.InvitationCode)

		if method == InviteByUsername {
			invitee, err := tx.GetUserByUsername(ctx, target)
			if err != nil {
				return err
			}
			events = append(events, notify.Event{
				UserID: invitee.TelegramID,
				Title:  "Team Invitation",
				Message: fmt.Sprintf("User %s invited you to join team %q. Use code %s to join.",
					inviterID, team.Name, team.InvitationCode),
				Type: notify.TypeInfo,
			})
			res.Message = "Invite sent successfully!"
		} else {
			res.Message = "Invite link shared!"
		}

		res.Invite = &domain.TeamInvite{ID: uuid.NewString(), TeamID: teamID, InviterID: inviterID, Method: method, Target: target}
		return tx.InsertInvite(ctx, res.Invite)
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

// ─── Team Details ───────────────────────────────────────────────────────────

// TeamDetails is a team with its members and earnings.
type TeamDetails struct {
	Team       *domain.Team        `json:"team"`
	Members    []domain.TeamMember `json:"members"`
	Stats      *domain.TeamStats   `json:"stats"`
	InviteLink string              `json:"invite_link,omitempty"`
}

// Team returns a team's members and earnings since each joined.
func (s *Service) Team(ctx context.Context, teamID string) (*TeamDetails, error) {
	if err := requireID("teamId", teamID); err != nil {
		return nil, err
	}
	team, err := s.db.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := s.db.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	stats, err := s.db.TeamStats(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &TeamDetails{Team: team, Members: members, Stats: stats, InviteLink: s.InviteLink(team.InvitationCode)}, nil
}
