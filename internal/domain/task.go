package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Task Types ─────────────────────────────────────────────────────────────

// TaskType classifies what the user has to do to earn a task reward.
type TaskType string

const (
	TaskWebsiteVisit TaskType = "website_visit"
	TaskSocialMedia  TaskType = "social_media"
	TaskAppDownload  TaskType = "app_download"
	TaskSurvey       TaskType = "survey"
	TaskOther        TaskType = "other"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskWebsiteVisit, TaskSocialMedia, TaskAppDownload, TaskSurvey, TaskOther:
		return true
	}
	return false
}

// ProofType names the submission field a task demands.
type ProofType string

const (
	ProofUsername   ProofType = "username"
	ProofScreenshot ProofType = "screenshot"
	ProofText       ProofType = "text"
)

// Task reward bounds enforced on create and update.
var (
	MinTaskReward = Coins(0.1)
	MaxTaskReward = Coins(100)
)

// AutoApproveCeiling is the reward under which proof-free tasks skip review.
var AutoApproveCeiling = Coins(5.0)

// TaskRequirements controls proof collection and review for a task.
type TaskRequirements struct {
	ProofRequired bool      `json:"proof_required"`
	ProofType     ProofType `json:"proof_type"`
	AutoApprove   bool      `json:"auto_approve"`
	Instructions  string    `json:"instructions,omitempty"`
}

// DefaultRequirements returns the requirements an admin gets when creating a
// task without specifying them.
func DefaultRequirements(t TaskType, reward decimal.Decimal) TaskRequirements {
	proof := ProofScreenshot
	if t == TaskSocialMedia {
		proof = ProofUsername
	}
	return TaskRequirements{
		ProofRequired: t == TaskAppDownload || t == TaskSurvey,
		ProofType:     proof,
		AutoApprove:   t == TaskWebsiteVisit || t == TaskSurvey,
		Instructions:  fmt.Sprintf("Complete this %s task to earn %s TakaX coins", t, reward.String()),
	}
}

// Task is an admin-defined earning opportunity.
type Task struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	RewardAmount decimal.Decimal  `json:"reward_amount"`
	TaskType     TaskType         `json:"task_type"`
	ExternalLink string           `json:"external_link,omitempty"`
	DailyLimit   int              `json:"daily_limit"`
	IsActive     bool             `json:"is_active"`
	Requirements TaskRequirements `json:"requirements"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ValidateReward checks the task reward bounds.
func ValidateReward(r decimal.Decimal) error {
	if r.LessThan(MinTaskReward) || r.GreaterThan(MaxTaskReward) {
		return fmt.Errorf("%w: reward amount must be between 0.1 and 100", ErrValidation)
	}
	return nil
}

// SubmissionStatus is the review state of a task submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionApproved || s == SubmissionRejected
}

// Proof is the user-supplied evidence for a submission.
type Proof struct {
	Username   string `json:"username,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
	Text       string `json:"proof_text,omitempty"`
	Review     string `json:"review,omitempty"`
}

// Has reports whether the proof carries the field demanded by pt.
func (p Proof) Has(pt ProofType) bool {
	switch pt {
	case ProofUsername:
		return p.Username != ""
	case ProofScreenshot:
		return p.Screenshot != ""
	case ProofText:
		return p.Text != ""
	}
	return true
}

// TextValue is the single text proof persisted for review.
func (p Proof) TextValue() string {
	switch {
	case p.Username != "":
		return p.Username
	case p.Text != "":
		return p.Text
	default:
		return p.Review
	}
}

// TaskSubmission is one attempt by a user at a task on a given day.
// (UserID, TaskID, Day, Seq) is unique; Seq counts from 1 within the day.
type TaskSubmission struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	TaskID         string           `json:"task_id"`
	Day            string           `json:"day"`
	Seq            int              `json:"seq"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Status         SubmissionStatus `json:"status"`
	ProofMediaURL  string           `json:"proof_media_url,omitempty"`
	ProofText      string           `json:"proof_text,omitempty"`
	RewardEarned   decimal.Decimal  `json:"reward_earned"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	ReviewedAt     *time.Time       `json:"reviewed_at"`
	ReviewedBy     string           `json:"reviewed_by,omitempty"`
}

// TaskSubmissionStats summarises submissions for the admin task list.
type TaskSubmissionStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ApprovalRate is the approved share as a whole percentage.
func (s TaskSubmissionStats) ApprovalRate() int {
	if s.Total == 0 {
		return 0
	}
	return int(float64(s.Approved)/float64(s.Total)*100 + 0.5)
}

// ─── Ad Types ───────────────────────────────────────────────────────────────

// Ad is a rewarded video placement.
type Ad struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	RewardBase         decimal.Decimal `json:"reward_base"`
	DailyLimit         int             `json:"daily_limit"`
	MinWatchPercentage int             `json:"min_watch_percentage"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// DefaultAd is seeded on first start so the app works before an admin
// configures placements.
func DefaultAd() Ad {
	return Ad{
		ID:                 "default",
		Title:              "Premium Mobile Game",
		RewardBase:         Coins(5.0),
		DailyLimit:         5,
		MinWatchPercentage: 80,
		IsActive:           true,
	}
}

// AdView is one append-only view event.
type AdView struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	AdID                 string          `json:"ad_id"`
	Day                  string          `json:"day"`
	Seq                  int             `json:"seq"`
	DurationWatched      int             `json:"duration_watched"`
	CompletionPercentage int             `json:"completion_percentage"`
	RewardEarned         decimal.Decimal `json:"reward_earned"`
	CreatedAt            time.Time       `json:"created_at"`
}
