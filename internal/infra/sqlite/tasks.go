package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Task Operations ────────────────────────────────────────────────────────

const taskColumns = `id, title, description, reward_cents, task_type, external_link,
	daily_limit, is_active, requirements, created_at, updated_at`

func scanTask(s rowScanner) (*domain.Task, error) {
	var (
		t                    domain.Task
		reward               int64
		typ, reqJSON         string
		active               int
		createdAt, updatedAt string
	)
	err := s.Scan(&t.ID, &t.Title, &t.Description, &reward, &typ, &t.ExternalLink,
		&t.DailyLimit, &active, &reqJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.RewardAmount = domain.FromCents(reward)
	t.TaskType = domain.TaskType(typ)
	t.IsActive = active == 1
	if err := json.Unmarshal([]byte(reqJSON), &t.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements for task %s: %w", t.ID, err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// CreateTask inserts a task.
func (q *Queries) CreateTask(ctx context.Context, t *domain.Task) error {
	req, err := json.Marshal(t.Requirements)
	if err != nil {
		return err
	}
	ts := now()
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, reward_cents, task_type, external_link,
			daily_limit, is_active, requirements, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, domain.ToCents(t.RewardAmount), string(t.TaskType),
		t.ExternalLink, t.DailyLimit, boolInt(t.IsActive), string(req), ts, ts)
	if err != nil {
		return mapErr(err)
	}
	t.CreatedAt = parseTime(ts)
	t.UpdatedAt = t.CreatedAt
	return nil
}

// UpdateTask overwrites every mutable field of a task.
func (q *Queries) UpdateTask(ctx context.Context, t *domain.Task) error {
	req, err := json.Marshal(t.Requirements)
	if err != nil {
		return err
	}
	ts := now()
	res, err := q.q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, reward_cents = ?, task_type = ?,
			external_link = ?, daily_limit = ?, is_active = ?, requirements = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, domain.ToCents(t.RewardAmount), string(t.TaskType),
		t.ExternalLink, t.DailyLimit, boolInt(t.IsActive), string(req), ts, t.ID)
	if err != nil {
		return err
	}
	t.UpdatedAt = parseTime(ts)
	return affectedOne(res, domain.ErrTaskNotFound)
}

// GetTask retrieves a task by id.
func (q *Queries) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(q.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, domain.ErrTaskNotFound
	}
	return t, err
}

// ListTasks returns tasks newest first. An empty taskType matches all types.
func (q *Queries) ListTasks(ctx context.Context, activeOnly bool, taskType domain.TaskType) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if activeOnly {
		query += ` AND is_active = 1`
	}
	if taskType != "" {
		query += ` AND task_type = ?`
		args = append(args, string(taskType))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CountTasks returns the total and active task counts.
func (q *Queries) CountTasks(ctx context.Context) (total, active int, err error) {
	err = q.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM tasks
	`).Scan(&total, &active)
	return
}

// ─── Submission Operations ──────────────────────────────────────────────────

const submissionColumns = `id, user_id, task_id, day, seq, idempotency_key, status,
	proof_media_url, proof_text, reward_cents, submitted_at, reviewed_at, reviewed_by`

func scanSubmission(s rowScanner) (*domain.TaskSubmission, error) {
	var (
		sub         domain.TaskSubmission
		idem        sql.NullString
		status      string
		reward      int64
		submittedAt string
		reviewedAt  sql.NullString
	)
	err := s.Scan(&sub.ID, &sub.UserID, &sub.TaskID, &sub.Day, &sub.Seq, &idem, &status,
		&sub.ProofMediaURL, &sub.ProofText, &reward, &submittedAt, &reviewedAt, &sub.ReviewedBy)
	if err != nil {
		return nil, err
	}
	sub.IdempotencyKey = idem.String
	sub.Status = domain.SubmissionStatus(status)
	sub.RewardEarned = domain.FromCents(reward)
	sub.SubmittedAt = parseTime(submittedAt)
	sub.ReviewedAt = parseTimePtr(reviewedAt)
	return &sub, nil
}

// InsertSubmission stores a submission. Seq must be the next slot for the
// (user, task, day) triple; a concurrent writer taking the same slot gets
// domain.ErrDuplicate.
func (q *Queries) InsertSubmission(ctx context.Context, s *domain.TaskSubmission) error {
	var reviewedAt sql.NullString
	if s.ReviewedAt != nil {
		reviewedAt = nullString(formatTime(*s.ReviewedAt))
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO task_submissions (id, user_id, task_id, day, seq, idempotency_key, status,
			proof_media_url, proof_text, reward_cents, submitted_at, reviewed_at, reviewed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.TaskID, s.Day, s.Seq, nullString(s.IdempotencyKey), string(s.Status),
		s.ProofMediaURL, s.ProofText, domain.ToCents(s.RewardEarned), formatTime(s.SubmittedAt),
		reviewedAt, s.ReviewedBy)
	return mapErr(err)
}

// GetSubmission retrieves a submission by id.
func (q *Queries) GetSubmission(ctx context.Context, id string) (*domain.TaskSubmission, error) {
	s, err := scanSubmission(q.q.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM task_submissions WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, domain.ErrSubmissionNotFound
	}
	return s, err
}

// GetSubmissionByKey finds a submission by its client idempotency key.
func (q *Queries) GetSubmissionByKey(ctx context.Context, key string) (*domain.TaskSubmission, error) {
	s, err := scanSubmission(q.q.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM task_submissions WHERE idempotency_key = ?`, key))
	if isNoRows(err) {
		return nil, domain.ErrSubmissionNotFound
	}
	return s, err
}

// LatestSubmission returns the user's most recent submission for a task.
func (q *Queries) LatestSubmission(ctx context.Context, userID, taskID string) (*domain.TaskSubmission, error) {
	s, err := scanSubmission(q.q.QueryRowContext(ctx, `SELECT `+submissionColumns+`
		FROM task_submissions WHERE user_id = ? AND task_id = ?
		ORDER BY submitted_at DESC LIMIT 1`, userID, taskID))
	if isNoRows(err) {
		return nil, domain.ErrSubmissionNotFound
	}
	return s, err
}

// CountSubmissionsOnDay counts a user's submissions for a task on one day.
func (q *Queries) CountSubmissionsOnDay(ctx context.Context, userID, taskID, day string) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_submissions WHERE user_id = ? AND task_id = ? AND day = ?
	`, userID, taskID, day).Scan(&n)
	return n, err
}

// ReviewSubmission moves a pending submission to a terminal status.
// Returns domain.ErrInvalidTransition if it was already reviewed.
func (q *Queries) ReviewSubmission(ctx context.Context, id string, status domain.SubmissionStatus, reward decimal.Decimal, reviewer string, at time.Time) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE task_submissions SET status = ?, reward_cents = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), domain.ToCents(reward), formatTime(at), reviewer, id)
	if err != nil {
		return err
	}
	return affectedOne(res, domain.ErrInvalidTransition)
}

// SubmissionCounts counts a user's submissions by status.
func (q *Queries) SubmissionCounts(ctx context.Context, userID string) (domain.TaskSubmissionStats, error) {
	return q.submissionStats(ctx, `user_id = ?`, userID)
}

// TaskSubmissionStats counts a task's submissions by status.
func (q *Queries) TaskSubmissionStats(ctx context.Context, taskID string) (domain.TaskSubmissionStats, error) {
	return q.submissionStats(ctx, `task_id = ?`, taskID)
}

// AllSubmissionStats counts every submission by status.
func (q *Queries) AllSubmissionStats(ctx context.Context) (domain.TaskSubmissionStats, error) {
	return q.submissionStats(ctx, `1 = ?`, 1)
}

func (q *Queries) submissionStats(ctx context.Context, cond string, arg any) (domain.TaskSubmissionStats, error) {
	var st domain.TaskSubmissionStats
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0)
		FROM task_submissions WHERE `+cond, arg).Scan(&st.Total, &st.Pending, &st.Approved, &st.Rejected)
	return st, err
}

// ListPendingSubmissions returns submissions awaiting review, oldest first.
func (q *Queries) ListPendingSubmissions(ctx context.Context, limit int) ([]domain.TaskSubmission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.q.QueryContext(ctx, `SELECT `+submissionColumns+`
		FROM task_submissions WHERE status = 'pending' ORDER BY submitted_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.TaskSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}
