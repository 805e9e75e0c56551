package api

import (
	"net/http"

	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/domain"
)

// ─── Teams API ──────────────────────────────────────────────────────────────
//
// POST     /api/teams/create      found a team, the caller leads it
// POST     /api/teams/join        join by invitation code
// POST     /api/teams/manage      remove, promote, leave
// POST     /api/teams/invite      invite by username or share a link
// GET      /api/teams/info        team, members and earnings
// GET/POST /api/teams/challenges  challenge board, join/update/complete

type createTeamBody struct {
	UserID   string `json:"userId" validate:"required"`
	TeamName string `json:"teamName" validate:"required"`
}

// handleTeamCreate founds a team.
// POST /api/teams/create
func (s *Server) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var body createTeamBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	team, err := s.svc.CreateTeam(r.Context(), body.UserID, body.TeamName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"team": team,
		"membership": domain.TeamMember{
			TeamID:   team.ID,
			UserID:   team.LeaderID,
			Role:     domain.RoleLeader,
			JoinedAt: team.CreatedAt,
		},
		"inviteLink": s.svc.InviteLink(team.InvitationCode),
		"message":    "Team created successfully!",
		"benefits":   service.TeamBenefits,
	})
}

type joinTeamBody struct {
	UserID   string `json:"userId" validate:"required"`
	TeamCode string `json:"teamCode" validate:"required"`
}

// handleTeamJoin adds the caller to a team.
// POST /api/teams/join
func (s *Server) handleTeamJoin(w http.ResponseWriter, r *http.Request) {
	var body joinTeamBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	team, err := s.svc.JoinTeam(r.Context(), body.UserID, body.TeamCode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"team":    team,
		"message": "Successfully joined team!",
	})
}

type manageTeamBody struct {
	Action       string `json:"action" validate:"required"`
	TeamID       string `json:"teamId" validate:"required"`
	RequesterID  string `json:"requesterId" validate:"required"`
	TargetUserID string `json:"targetUserId"`
	UserID       string `json:"userId"`
}

// handleTeamManage applies a membership change.
// POST /api/teams/manage
func (s *Server) handleTeamManage(w http.ResponseWriter, r *http.Request) {
	var body manageTeamBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	target := body.TargetUserID
	if target == "" {
		target = body.UserID
	}
	res, err := s.svc.ManageTeam(r.Context(), service.ManageRequest{
		Action:       body.Action,
		TeamID:       body.TeamID,
		TargetUserID: target,
		RequesterID:  body.RequesterID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"result":  res,
		"message": manageMessage(res),
	})
}

func manageMessage(res *service.ManageResult) string {
	switch {
	case res.TeamDeleted:
		return "Left team. The team was disbanded."
	case res.Action == service.ManageRemoveMember:
		return "Member removed successfully"
	case res.Action == service.ManagePromote:
		return "Leadership transferred successfully"
	default:
		return "Left team successfully"
	}
}

type inviteBody struct {
	TeamID    string `json:"teamId" validate:"required"`
	InviterID string `json:"inviterId" validate:"required"`
	Method    string `json:"method" validate:"required,oneof=username link"`
	Target    string `json:"target" validate:"required"`
}

// handleTeamInvite invites a user or shares the invitation link.
// POST /api/teams/invite
func (s *Server) handleTeamInvite(w http.ResponseWriter, r *http.Request) {
	var body inviteBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.InviteToTeam(r.Context(), body.TeamID, body.InviterID, body.Method, body.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := map[string]interface{}{
		"invite":  res.Invite,
		"message": res.Message,
	}
	if res.Link != "" {
		out["link"] = res.Link
	}
	writeOK(w, out)
}

// handleTeamInfo returns a team with its members and earnings.
// GET /api/teams/info?teamId=
func (s *Server) handleTeamInfo(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Team(r.Context(), r.URL.Query().Get("teamId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"team":       d.Team,
		"members":    d.Members,
		"stats":      d.Stats,
		"inviteLink": d.InviteLink,
	})
}

// handleTeamChallenges returns the challenge board of a team.
// GET /api/teams/challenges?teamId=
func (s *Server) handleTeamChallenges(w http.ResponseWriter, r *http.Request) {
	board, err := s.svc.TeamChallenges(r.Context(), r.URL.Query().Get("teamId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"challenges":      board.Challenges,
		"teamStats":       board.TeamStats,
		"recommendations": board.Recommendations,
	})
}

type challengeBody struct {
	ChallengeID string `json:"challengeId" validate:"required"`
	TeamID      string `json:"teamId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
	Action      string `json:"action" validate:"required"`
}

// handleChallengeAction joins, refreshes or completes a challenge.
// POST /api/teams/challenges
func (s *Server) handleChallengeAction(w http.ResponseWriter, r *http.Request) {
	var body challengeBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.ChallengeAction(r.Context(), body.ChallengeID, body.TeamID, body.UserID, body.Action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"result": res})
}

// ─── Admin: Teams ───────────────────────────────────────────────────────────

type setTeamBody struct {
	TeamID string `json:"teamId" validate:"required"`
	Banned *bool  `json:"banned" validate:"required"`
}

// handleAdminSetTeam bans or unbans a team.
// PATCH /api/admin/teams
func (s *Server) handleAdminSetTeam(w http.ResponseWriter, r *http.Request) {
	var body setTeamBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.SetTeamBanned(r.Context(), adminID(r), body.TeamID, *body.Banned); err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "Team unbanned successfully"
	if *body.Banned {
		msg = "Team banned successfully"
	}
	writeOK(w, map[string]interface{}{"message": msg})
}
