package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Task Listing ───────────────────────────────────────────────────────────

// TaskView is an active task annotated with the caller's progress today.
type TaskView struct {
	domain.Task
	Completed        bool                     `json:"completed"`
	CompletionStatus *domain.SubmissionStatus `json:"completion_status"`
	DailyCompleted   int                      `json:"daily_completed"`
	CanComplete      bool                     `json:"can_complete"`
}

// TaskList is the user-facing task catalogue.
type TaskList struct {
	Tasks     []TaskView `json:"tasks"`
	Total     int        `json:"total"`
	Available int        `json:"available"`
}

// ListTasks returns active tasks of taskType (all when empty). With a
// userID each task carries that user's status and today's count.
func (s *Service) ListTasks(ctx context.Context, userID string, taskType domain.TaskType) (*TaskList, error) {
	return timed("task.list", func() (*TaskList, error) {
		tasks, err := s.db.ListTasks(ctx, true, taskType)
		if err != nil {
			return nil, err
		}
		var user *domain.User
		if userID != "" {
			if user, err = s.db.GetUser(ctx, userID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
				return nil, err
			}
		}
		today := s.day(s.now())

		out := &TaskList{Tasks: make([]TaskView, 0, len(tasks)), Total: len(tasks)}
		for _, t := range tasks {
			v := TaskView{Task: t, CanComplete: true}
			if user != nil {
				latest, err := s.db.LatestSubmission(ctx, userID, t.ID)
				switch {
				case err == nil:
					st := latest.Status
					v.CompletionStatus = &st
					v.Completed = st == domain.SubmissionApproved
				case !errors.Is(err, domain.ErrSubmissionNotFound):
					return nil, err
				}
				if v.DailyCompleted, err = s.db.CountSubmissionsOnDay(ctx, userID, t.ID, today); err != nil {
					return nil, err
				}
				v.CanComplete = !user.IsBanned() && v.DailyCompleted < t.DailyLimit
			}
			if v.CanComplete {
				out.Available++
			}
			out.Tasks = append(out.Tasks, v)
		}
		return out, nil
	})
}

// ─── Task Submission ────────────────────────────────────────────────────────

// SubmitRequest is a task attempt.
type SubmitRequest struct {
	UserID         string
	TaskID         string
	Proof          domain.Proof
	IdempotencyKey string
}

// SubmitResult is the outcome of SubmitTask.
type SubmitResult struct {
	Submission *domain.TaskSubmission
	Reward     decimal.Decimal
	Replayed   bool
	Message    string
	ReviewTime string
}

// SubmitTask records an attempt. Cheap proof-free or auto-approve tasks are
// credited in the same transaction; the rest wait for review. Repeating an
// idempotency key returns the original submission.
func (s *Service) SubmitTask(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := requireID("userId", req.UserID); err != nil {
		return nil, err
	}
	if err := requireID("taskId", req.TaskID); err != nil {
		return nil, err
	}

	var res *SubmitResult
	var events []notify.Event
	err := s.onLane(ctx, "task.submit", req.UserID, func(ctx context.Context) error {
		if req.IdempotencyKey != "" {
			prev, err := s.db.GetSubmissionByKey(ctx, req.IdempotencyKey)
			if err == nil {
				if prev.UserID != req.UserID || prev.TaskID != req.TaskID {
					return domain.WithMessage(domain.ErrValidation, "idempotency_key reused for a different task")
				}
				res = submitResult(prev)
				res.Replayed = true
				return nil
			}
			if !errors.Is(err, domain.ErrSubmissionNotFound) {
				return err
			}
		}

		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			task, err := tx.GetTask(ctx, req.TaskID)
			if err != nil {
				return err
			}
			user, err := tx.GetUser(ctx, req.UserID)
			if err != nil {
				return err
			}
			now := s.now()
			day := s.day(now)
			n, err := tx.CountSubmissionsOnDay(ctx, req.UserID, req.TaskID, day)
			if err != nil {
				return err
			}
			if d := rewards.CheckTask(user, task, n, req.Proof); !d.Allowed {
				return s.reject(ctx, "task", d)
			}

			outcome := rewards.TaskReward(task)
			sub := &domain.TaskSubmission{
				ID:             uuid.NewString(),
				UserID:         req.UserID,
				TaskID:         req.TaskID,
				Day:            day,
				Seq:            n + 1,
				IdempotencyKey: req.IdempotencyKey,
				Status:         outcome.Status,
				ProofMediaURL:  req.Proof.Screenshot,
				ProofText:      req.Proof.TextValue(),
				RewardEarned:   outcome.Reward,
				SubmittedAt:    now,
			}
			if outcome.Status == domain.SubmissionApproved {
				sub.ReviewedAt = &now
				sub.ReviewedBy = "auto"
			}
			if err := tx.InsertSubmission(ctx, sub); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return domain.ErrAlreadySubmitted
				}
				return err
			}

			res = submitResult(sub)
			if outcome.Status != domain.SubmissionApproved {
				events = append(events, notify.TaskSubmitted(req.UserID, task))
				return nil
			}
			evs, err := s.creditTask(ctx, tx, sub, task)
			events = append(events, evs...)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

func submitResult(sub *domain.TaskSubmission) *SubmitResult {
	if sub.Status == domain.SubmissionApproved {
		return &SubmitResult{Submission: sub, Reward: sub.RewardEarned,
			Message: "Task completed and approved!", ReviewTime: "immediate"}
	}
	return &SubmitResult{Submission: sub, Reward: decimal.Zero,
		Message: "Task submitted for review. You'll be notified when approved.", ReviewTime: "1-24 hours"}
}

// creditTask pays an approved submission and, for a referred user, the
// referrer's first-task bonus.
func (s *Service) creditTask(ctx context.Context, tx *sqlite.Tx, sub *domain.TaskSubmission, task *domain.Task) ([]notify.Event, error) {
	var events []notify.Event
	if sub.RewardEarned.IsPositive() {
		_, applied, err := s.ledger.Apply(ctx, tx, domain.Mutation{
			UserID: sub.UserID,
			Delta:  sub.RewardEarned,
			Type:   domain.EntryTaskAdd,
			Reason: fmt.Sprintf("Completed task: %s", task.Title),
			Key:    domain.TaskRewardKey(sub.ID),
		})
		if err != nil {
			return nil, err
		}
		if applied {
			events = append(events, notify.TaskCompleted(sub.UserID, task, sub.RewardEarned))
		}
	}
	bonus, err := s.applyFirstTaskBonus(ctx, tx, sub.UserID)
	if err != nil {
		return nil, err
	}
	if bonus != nil {
		events = append(events, notify.FirstTaskBonus(bonus.ReferrerID, sub.UserID, bonus.Reward))
	}
	return events, nil
}

// ─── Review ─────────────────────────────────────────────────────────────────

// Review decisions.
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// ReviewSubmission approves or rejects a pending submission. Approval pays
// the task reward as it stands at review time.
func (s *Service) ReviewSubmission(ctx context.Context, adminID, submissionID, decision, note string) (*domain.TaskSubmission, error) {
	if err := requireID("submissionId", submissionID); err != nil {
		return nil, err
	}
	var status domain.SubmissionStatus
	switch decision {
	case ReviewApprove, string(domain.SubmissionApproved):
		status = domain.SubmissionApproved
	case ReviewReject, string(domain.SubmissionRejected):
		status = domain.SubmissionRejected
	default:
		return nil, domain.ErrInvalidAction
	}

	sub, err := s.db.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	var events []notify.Event
	err = s.onLane(ctx, "task.review", sub.UserID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			task, err := tx.GetTask(ctx, sub.TaskID)
			if err != nil {
				return err
			}
			reward := decimal.Zero
			if status == domain.SubmissionApproved {
				reward = domain.Round2(task.RewardAmount)
			}
			now := s.now()
			if err := tx.ReviewSubmission(ctx, sub.ID, status, reward, adminID, now); err != nil {
				return err
			}
			sub.Status, sub.RewardEarned, sub.ReviewedAt, sub.ReviewedBy = status, reward, &now, adminID

			if err := tx.LogAdminAction(ctx, adminID, "task_review",
				fmt.Sprintf("%s submission %s (task %s, user %s)", status, sub.ID, task.ID, sub.UserID)); err != nil {
				return err
			}
			if status == domain.SubmissionRejected {
				events = append(events, notify.TaskRejected(sub.UserID, task, note))
				return nil
			}
			events, err = s.creditTask(ctx, tx, sub, task)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return sub, nil
}

// PendingSubmissions lists submissions waiting for review.
func (s *Service) PendingSubmissions(ctx context.Context, limit int) ([]domain.TaskSubmission, error) {
	return s.db.ListPendingSubmissions(ctx, limit)
}

// ─── Admin Task Management ──────────────────────────────────────────────────

// AdminTask is a task with its submission statistics.
type AdminTask struct {
	domain.Task
	Reward         decimal.Decimal `json:"reward"`
	Type           domain.TaskType `json:"type"`
	Submissions    int             `json:"submissions"`
	PendingReviews int             `json:"pending_reviews"`
	ApprovalRate   int             `json:"approval_rate"`
}

// TaskStatistics summarises every task for the admin list.
type TaskStatistics struct {
	ActiveTasks      int `json:"active_tasks"`
	TotalSubmissions int `json:"total_submissions"`
	PendingReviews   int `json:"pending_reviews"`
}

// AdminTaskList is the admin task table.
type AdminTaskList struct {
	Tasks      []AdminTask    `json:"tasks"`
	Total      int            `json:"total"`
	Statistics TaskStatistics `json:"statistics"`
}

// ListTasksWithStats returns every task, active or not, with its counts.
func (s *Service) ListTasksWithStats(ctx context.Context) (*AdminTaskList, error) {
	return timed("admin.tasks", func() (*AdminTaskList, error) {
		tasks, err := s.db.ListTasks(ctx, false, "")
		if err != nil {
			return nil, err
		}
		out := &AdminTaskList{Tasks: make([]AdminTask, 0, len(tasks)), Total: len(tasks)}
		for _, t := range tasks {
			st, err := s.db.TaskSubmissionStats(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			out.Tasks = append(out.Tasks, AdminTask{
				Task:           t,
				Reward:         t.RewardAmount,
				Type:           t.TaskType,
				Submissions:    st.Total,
				PendingReviews: st.Pending,
				ApprovalRate:   st.ApprovalRate(),
			})
			if t.IsActive {
				out.Statistics.ActiveTasks++
			}
			out.Statistics.TotalSubmissions += st.Total
			out.Statistics.PendingReviews += st.Pending
		}
		return out, nil
	})
}

// TaskInput creates or patches a task. Nil fields are left unchanged on update.
type TaskInput struct {
	Title        *string
	Description  *string
	RewardAmount *decimal.Decimal
	TaskType     *domain.TaskType
	ExternalLink *string
	DailyLimit   *int
	IsActive     *bool
	Requirements *domain.TaskRequirements
}

func (in TaskInput) apply(t *domain.Task) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.RewardAmount != nil {
		t.RewardAmount = domain.Round2(*in.RewardAmount)
	}
	if in.TaskType != nil {
		t.TaskType = *in.TaskType
	}
	if in.ExternalLink != nil {
		t.ExternalLink = *in.ExternalLink
	}
	if in.DailyLimit != nil {
		t.DailyLimit = *in.DailyLimit
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if in.Requirements != nil {
		t.Requirements = *in.Requirements
	}
}

func validateTask(t *domain.Task) error {
	if t.Title == "" || t.Description == "" {
		return domain.WithMessage(domain.ErrValidation, "Missing required fields")
	}
	if !t.TaskType.Valid() {
		return domain.WithMessage(domain.ErrValidation, fmt.Sprintf("Invalid task type %q", t.TaskType))
	}
	if t.DailyLimit < 1 {
		return domain.WithMessage(domain.ErrValidation, "Daily limit must be at least 1")
	}
	return domain.ValidateReward(t.RewardAmount)
}

// CreateTask adds a task. Missing requirements default by task type; a
// missing daily limit defaults to one.
func (s *Service) CreateTask(ctx context.Context, adminID string, in TaskInput) (*domain.Task, error) {
	t := &domain.Task{ID: uuid.NewString(), DailyLimit: 1, IsActive: true}
	in.apply(t)
	if in.Requirements == nil {
		t.Requirements = domain.DefaultRequirements(t.TaskType, t.RewardAmount)
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.CreateTask(ctx, t); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, adminID, "task_management", fmt.Sprintf("created task %s (%s)", t.ID, t.Title))
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": t.ID, "admin_id": adminID}).Info("task created")
	return t, nil
}

// UpdateTask patches a task.
func (s *Service) UpdateTask(ctx context.Context, adminID, taskID string, in TaskInput) (*domain.Task, error) {
	if err := requireID("taskId", taskID); err != nil {
		return nil, err
	}
	var t *domain.Task
	err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		if t, err = tx.GetTask(ctx, taskID); err != nil {
			return err
		}
		in.apply(t)
		if err := validateTask(t); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, t); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, adminID, "task_management", fmt.Sprintf("updated task %s", t.ID))
	})
	if err != nil {
		return nil, err
	}
	observability.Entry(ctx, s.log).WithField("task_id", t.ID).Info("task updated")
	return t, nil
}
