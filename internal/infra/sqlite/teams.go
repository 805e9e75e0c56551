package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Team Operations ────────────────────────────────────────────────────────

const teamColumns = `id, name, leader_id, invitation_code, member_count, division, is_banned, created_at`

func scanTeam(s rowScanner) (*domain.Team, error) {
	var (
		t         domain.Team
		banned    int
		createdAt string
	)
	if err := s.Scan(&t.ID, &t.Name, &t.LeaderID, &t.InvitationCode, &t.MemberCount,
		&t.Division, &banned, &createdAt); err != nil {
		return nil, err
	}
	t.IsBanned = banned == 1
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

// InsertTeam creates a team with its leader as the only member.
// Returns domain.ErrDuplicate on a taken name or invitation code.
func (q *Queries) InsertTeam(ctx context.Context, t *domain.Team) error {
	ts := now()
	if t.Division == "" {
		t.Division = "Bronze"
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO teams (id, name, leader_id, invitation_code, member_count, division, is_banned, created_at)
		VALUES (?, ?, ?, ?, 1, ?, 0, ?)
	`, t.ID, t.Name, t.LeaderID, t.InvitationCode, t.Division, ts)
	if err != nil {
		return mapErr(err)
	}
	t.MemberCount = 1
	t.CreatedAt = parseTime(ts)
	return q.insertMember(ctx, t.ID, t.LeaderID, domain.RoleLeader, ts)
}

func (q *Queries) insertMember(ctx context.Context, teamID, userID, role, ts string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
	`, teamID, userID, role, ts)
	if err != nil {
		return mapErr(err)
	}
	return q.SetUserTeam(ctx, userID, teamID)
}

// GetTeam retrieves a team by id.
func (q *Queries) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	t, err := scanTeam(q.q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, domain.ErrTeamNotFound
	}
	return t, err
}

// GetTeamByCode resolves an invitation code.
func (q *Queries) GetTeamByCode(ctx context.Context, code string) (*domain.Team, error) {
	t, err := scanTeam(q.q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE invitation_code = ?`, code))
	if isNoRows(err) {
		return nil, domain.ErrInvalidTeamCode
	}
	return t, err
}

// TeamNameTaken reports whether a team already uses the name, ignoring case.
func (q *Queries) TeamNameTaken(ctx context.Context, name string) (bool, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE name = ? COLLATE NOCASE`, name).Scan(&n)
	return n > 0, err
}

// AddMember takes a free seat in a team. The seat check and the increment
// are one statement, so a full or banned team is never overfilled.
func (q *Queries) AddMember(ctx context.Context, teamID, userID string) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE teams SET member_count = member_count + 1
		WHERE id = ? AND member_count < ? AND is_banned = 0
	`, teamID, domain.MaxTeamMembers)
	if err != nil {
		return err
	}
	if err := affectedOne(res, domain.ErrTeamFull); err != nil {
		return err
	}
	return q.insertMember(ctx, teamID, userID, domain.RoleMember, now())
}

// RemoveMember drops a user from a team and frees the seat.
func (q *Queries) RemoveMember(ctx context.Context, teamID, userID string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if err != nil {
		return err
	}
	if err := affectedOne(res, domain.ErrNotTeamMember); err != nil {
		return err
	}
	if _, err := q.q.ExecContext(ctx, `
		UPDATE teams SET member_count = member_count - 1 WHERE id = ?
	`, teamID); err != nil {
		return err
	}
	return q.SetUserTeam(ctx, userID, "")
}

// SetLeader makes userID the leader and demotes everyone else.
func (q *Queries) SetLeader(ctx context.Context, teamID, userID string) error {
	if _, err := q.q.ExecContext(ctx, `
		UPDATE team_members SET role = CASE WHEN user_id = ? THEN 'leader' ELSE 'member' END
		WHERE team_id = ?
	`, userID, teamID); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `UPDATE teams SET leader_id = ? WHERE id = ?`, userID, teamID)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrTeamNotFound)
}

// DeleteTeam removes an empty team and everything hanging off it.
func (q *Queries) DeleteTeam(ctx context.Context, teamID string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM teams WHERE id = ? AND member_count = 0`, teamID)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrTeamNotFound)
}

// SetTeamBanned bans or unbans a team.
func (q *Queries) SetTeamBanned(ctx context.Context, teamID string, banned bool) error {
	res, err := q.q.ExecContext(ctx, `UPDATE teams SET is_banned = ? WHERE id = ?`, boolInt(banned), teamID)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrTeamNotFound)
}

// ListMembers returns a team's members, longest-standing first.
func (q *Queries) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT team_id, user_id, role, joined_at FROM team_members
		WHERE team_id = ? ORDER BY joined_at, user_id
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var (
			m        domain.TeamMember
			joinedAt string
		)
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &joinedAt); err != nil {
			return nil, err
		}
		m.JoinedAt = parseTime(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember returns a user's membership in a team.
func (q *Queries) GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	var (
		m        domain.TeamMember
		joinedAt string
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT team_id, user_id, role, joined_at FROM team_members WHERE team_id = ? AND user_id = ?
	`, teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &joinedAt)
	if isNoRows(err) {
		return nil, domain.ErrNotTeamMember
	}
	if err != nil {
		return nil, err
	}
	m.JoinedAt = parseTime(joinedAt)
	return &m, nil
}

// TeamStats sums member task and referral earnings made since each member
// joined the team.
func (q *Queries) TeamStats(ctx context.Context, teamID string) (*domain.TeamStats, error) {
	var (
		st            domain.TeamStats
		tasks, refers int64
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT
			(SELECT member_count FROM teams WHERE id = ?),
			COALESCE(SUM(CASE WHEN l.type = 'task_add' THEN l.amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN l.type = 'refer_add' THEN l.amount_cents ELSE 0 END), 0)
		FROM team_members m
		LEFT JOIN ledger_entries l ON l.user_id = m.user_id AND l.created_at >= m.joined_at
		WHERE m.team_id = ?
	`, teamID, teamID).Scan(&st.MemberCount, &tasks, &refers)
	if err != nil {
		return nil, err
	}
	st.TotalTaskEarnings = domain.FromCents(tasks)
	st.TotalReferralEarnings = domain.FromCents(refers)
	return &st, nil
}

// TeamActivity counts what members did since a time: ad views and approved
// tasks of the given type (all types when empty).
func (q *Queries) TeamActivity(ctx context.Context, teamID string, since time.Time, taskType domain.TaskType) (adViews, tasks int, err error) {
	ts := formatTime(since)
	err = q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ad_views v JOIN team_members m ON m.user_id = v.user_id
		WHERE m.team_id = ? AND v.created_at >= ? AND v.created_at >= m.joined_at
	`, teamID, ts).Scan(&adViews)
	if err != nil {
		return
	}
	query := `
		SELECT COUNT(*) FROM task_submissions s
		JOIN team_members m ON m.user_id = s.user_id
		JOIN tasks t ON t.id = s.task_id
		WHERE m.team_id = ? AND s.status = 'approved' AND s.submitted_at >= ? AND s.submitted_at >= m.joined_at`
	args := []any{teamID, ts}
	if taskType != "" {
		query += ` AND t.task_type = ?`
		args = append(args, string(taskType))
	}
	err = q.q.QueryRowContext(ctx, query, args...).Scan(&tasks)
	return
}

// ─── Invites & Challenges ───────────────────────────────────────────────────

// InsertInvite records a team invitation.
func (q *Queries) InsertInvite(ctx context.Context, inv *domain.TeamInvite) error {
	ts := now()
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO team_invites (id, team_id, inviter_id, method, target, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.TeamID, inv.InviterID, inv.Method, inv.Target, ts)
	if err != nil {
		return mapErr(err)
	}
	inv.CreatedAt = parseTime(ts)
	return nil
}

// ChallengeState is a team's enrollment in one challenge period.
type ChallengeState struct {
	Joined      bool
	JoinedAt    time.Time
	CompletedAt *time.Time
}

// JoinChallenge enrolls a team in a challenge period. Joining twice is a no-op.
func (q *Queries) JoinChallenge(ctx context.Context, teamID, challenge, period string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO team_challenges (team_id, challenge, period, joined_at) VALUES (?, ?, ?, ?)
	`, teamID, challenge, period, now())
	return err
}

// GetChallengeState reports a team's enrollment for a challenge period.
func (q *Queries) GetChallengeState(ctx context.Context, teamID, challenge, period string) (ChallengeState, error) {
	var (
		st          ChallengeState
		joinedAt    string
		completedAt sql.NullString
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT joined_at, completed_at FROM team_challenges WHERE team_id = ? AND challenge = ? AND period = ?
	`, teamID, challenge, period).Scan(&joinedAt, &completedAt)
	if isNoRows(err) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.Joined = true
	st.JoinedAt = parseTime(joinedAt)
	st.CompletedAt = parseTimePtr(completedAt)
	return st, nil
}

// CompleteChallenge marks a challenge period done. Returns
// domain.ErrAlreadyClaimed when it was completed before.
func (q *Queries) CompleteChallenge(ctx context.Context, teamID, challenge, period string) error {
	ts := now()
	if _, err := q.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO team_challenges (team_id, challenge, period, joined_at) VALUES (?, ?, ?, ?)
	`, teamID, challenge, period, ts); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE team_challenges SET completed_at = ?
		WHERE team_id = ? AND challenge = ? AND period = ? AND completed_at IS NULL
	`, ts, teamID, challenge, period)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrAlreadyClaimed)
}
