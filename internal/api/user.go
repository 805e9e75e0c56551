package api

import (
	"net/http"
	"strconv"
)

// ─── User API ───────────────────────────────────────────────────────────────
//
// GET   /api/user/stats           profile and earnings of ?telegram_id=
// GET   /api/user/daily-progress  today's progress and next actions
// GET   /api/user/notifications   in-app notifications, newest first
// PATCH /api/user/notifications   mark all as read

// handleUserStats returns a user's profile and statistics.
// GET /api/user/stats?telegram_id=
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id := firstQuery(r, "telegram_id", "userId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Telegram ID is required")
		return
	}
	u, st, err := s.svc.Stats(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"user":  u,
		"stats": st,
	})
}

// handleDailyProgress returns today's progress.
// GET /api/user/daily-progress?userId=
func (s *Server) handleDailyProgress(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.DailyProgress(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"dailyProgress":   rep.Progress,
		"recommendations": rep.Recommendations,
	})
}

// handleNotifications lists a user's notifications.
// GET /api/user/notifications?userId=&unread=true&limit=
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	list, err := s.svc.Notifications(r.Context(), r.URL.Query().Get("userId"), unread, queryInt(r, "limit", 20))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"notifications": list})
}

type markReadBody struct {
	UserID string `json:"userId" validate:"required"`
}

// handleNotificationsRead marks every notification of a user as read.
// PATCH /api/user/notifications
func (s *Server) handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var body markReadBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.svc.MarkNotificationsRead(r.Context(), body.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"marked": n})
}
