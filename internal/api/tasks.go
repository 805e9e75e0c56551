package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/domain"
)

// ─── Tasks & Ads API ────────────────────────────────────────────────────────
//
// GET  /api/tasks/list    active tasks, annotated for ?user_id=
// POST /api/tasks/submit  submit a task (auto-approved tasks pay at once)
// GET  /api/ads/list      active ad placements
// POST /api/ads/view      record a watched ad and pay its reward

// handleTaskList returns active tasks.
// GET /api/tasks/list?user_id=&type=
func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTasks(r.Context(), firstQuery(r, "user_id", "userId"), domain.TaskType(r.URL.Query().Get("type")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"tasks":     list.Tasks,
		"total":     list.Total,
		"available": list.Available,
	})
}

type submitBody struct {
	UserID         string       `json:"userId" validate:"required"`
	TaskID         string       `json:"taskId" validate:"required"`
	SubmissionData domain.Proof `json:"submissionData"`
	IdempotencyKey string       `json:"idempotencyKey"`
}

// handleTaskSubmit submits a task.
// POST /api/tasks/submit
func (s *Server) handleTaskSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	key := body.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	res, err := s.svc.SubmitTask(r.Context(), service.SubmitRequest{
		UserID:         body.UserID,
		TaskID:         body.TaskID,
		Proof:          body.SubmissionData,
		IdempotencyKey: key,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"status":              res.Submission.Status,
		"reward":              res.Reward,
		"taskSubmission":      res.Submission,
		"message":             res.Message,
		"estimatedReviewTime": res.ReviewTime,
		"replayed":            res.Replayed,
	})
}

// handleAdList returns active ads.
// GET /api/ads/list
func (s *Server) handleAdList(w http.ResponseWriter, r *http.Request) {
	ads, err := s.svc.ListAds(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"ads": ads})
}

type adViewBody struct {
	UserID          string `json:"userId" validate:"required"`
	AdID            string `json:"adId"`
	Duration        int    `json:"duration" validate:"gte=0"`
	Completed       bool   `json:"completed"`
	WatchPercentage int    `json:"watchPercentage" validate:"gte=0,lte=100"`
}

// handleAdView records a watched ad.
// POST /api/ads/view
func (s *Server) handleAdView(w http.ResponseWriter, r *http.Request) {
	var body adViewBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.RecordAdView(r.Context(), service.AdViewRequest{
		UserID:          body.UserID,
		AdID:            body.AdID,
		Duration:        body.Duration,
		Completed:       body.Completed,
		WatchPercentage: body.WatchPercentage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"reward":  res.Reward,
		"message": res.Message,
		"adView":  res.View,
		"dailyProgress": map[string]interface{}{
			"views_today": res.View.Seq,
			"remaining":   res.Remaining,
		},
	})
}

// ─── Admin: Tasks, Submissions & Ads ────────────────────────────────────────

// handleAdminTasks lists every task with submission statistics.
// GET /api/admin/tasks
func (s *Server) handleAdminTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTasksWithStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"tasks":      list.Tasks,
		"total":      list.Total,
		"statistics": list.Statistics,
	})
}

type taskFields struct {
	Title        *string                  `json:"title"`
	Description  *string                  `json:"description"`
	RewardAmount *decimal.Decimal         `json:"reward_amount"`
	TaskType     *domain.TaskType         `json:"task_type"`
	ExternalLink *string                  `json:"external_link"`
	DailyLimit   *int                     `json:"daily_limit"`
	IsActive     *bool                    `json:"is_active"`
	Requirements *domain.TaskRequirements `json:"requirements"`
}

func (f taskFields) input() service.TaskInput {
	return service.TaskInput{
		Title:        f.Title,
		Description:  f.Description,
		RewardAmount: f.RewardAmount,
		TaskType:     f.TaskType,
		ExternalLink: f.ExternalLink,
		DailyLimit:   f.DailyLimit,
		IsActive:     f.IsActive,
		Requirements: f.Requirements,
	}
}

// handleAdminCreateTask adds a task.
// POST /api/admin/tasks
func (s *Server) handleAdminCreateTask(w http.ResponseWriter, r *http.Request) {
	var body taskFields
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.svc.CreateTask(r.Context(), adminID(r), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"task":    task,
		"message": "Task created successfully",
	})
}

type updateTaskBody struct {
	TaskID  string     `json:"taskId" validate:"required"`
	Updates taskFields `json:"updates"`
}

// handleAdminUpdateTask patches a task.
// PUT /api/admin/tasks
func (s *Server) handleAdminUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body updateTaskBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.svc.UpdateTask(r.Context(), adminID(r), body.TaskID, body.Updates.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"task":    task,
		"message": "Task updated successfully",
	})
}

// handleAdminSubmissions lists submissions awaiting review.
// GET /api/admin/submissions?limit=
func (s *Server) handleAdminSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.PendingSubmissions(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"submissions": subs})
}

type reviewSubmissionBody struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	Action       string `json:"action" validate:"required"`
	Note         string `json:"note"`
}

// handleAdminReviewSubmission approves or rejects a pending submission.
// PATCH /api/admin/submissions
func (s *Server) handleAdminReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var body reviewSubmissionBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.svc.ReviewSubmission(r.Context(), adminID(r), body.SubmissionID, body.Action, body.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"submission": sub,
		"message":    "Submission " + string(sub.Status),
	})
}

// handleAdminAds lists every ad, active or not.
// GET /api/admin/ads
func (s *Server) handleAdminAds(w http.ResponseWriter, r *http.Request) {
	ads, err := s.svc.AllAds(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"ads": ads})
}

type createAdBody struct {
	Title              string          `json:"title" validate:"required"`
	RewardBase         decimal.Decimal `json:"reward_base"`
	DailyLimit         int             `json:"daily_limit" validate:"gte=1"`
	MinWatchPercentage int             `json:"min_watch_percentage" validate:"gte=1,lte=100"`
}

// handleAdminCreateAd adds a placement.
// POST /api/admin/ads
func (s *Server) handleAdminCreateAd(w http.ResponseWriter, r *http.Request) {
	var body createAdBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	ad, err := s.svc.CreateAd(r.Context(), adminID(r), service.AdInput{
		Title:              body.Title,
		RewardBase:         body.RewardBase,
		DailyLimit:         body.DailyLimit,
		MinWatchPercentage: body.MinWatchPercentage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"ad": ad})
}

type setAdBody struct {
	AdID     string `json:"adId" validate:"required"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

// handleAdminSetAd enables or disables a placement.
// PATCH /api/admin/ads
func (s *Server) handleAdminSetAd(w http.ResponseWriter, r *http.Request) {
	var body setAdBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.SetAdActive(r.Context(), adminID(r), body.AdID, *body.IsActive); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "Ad updated successfully"})
}
