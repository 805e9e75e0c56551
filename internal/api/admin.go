package api

import (
	"net/http"
)

// ─── Admin API ──────────────────────────────────────────────────────────────
// Every /api/admin route passes adminOnly first. Task, submission and ad
// routes live in tasks.go, team bans in teams.go, withdrawals in wallet.go.
//
// GET   /api/admin/dashboard  counters for the overview page
// GET   /api/admin/actions    audit log
// GET   /api/admin/users      paged user list (?page=&limit=&search=&status=)
// PATCH /api/admin/users      ban, unban or suspend a user

// handleAdminDashboard returns the admin counters.
// GET /api/admin/dashboard
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"dashboard": d})
}

// handleAdminActions returns recent audit log rows.
// GET /api/admin/actions?limit=
func (s *Server) handleAdminActions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.AdminActions(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"actions": list})
}

// handleAdminUsers pages through users.
// GET /api/admin/users
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	if status == "" {
		status = "all"
	}
	page, err := s.svc.ListUsers(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", 10), q.Get("search"), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"users": page.Users,
		"pagination": map[string]interface{}{
			"page":  page.Page,
			"limit": page.Limit,
			"total": page.Total,
			"pages": (page.Total + page.Limit - 1) / page.Limit,
		},
	})
}

// setUserBody is checked by the service so a missing field reads
// "Missing required fields".
type setUserBody struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// handleAdminSetUser changes a user's account status.
// PATCH /api/admin/users
func (s *Server) handleAdminSetUser(w http.ResponseWriter, r *http.Request) {
	var body setUserBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	msg, err := s.svc.SetUserStatus(r.Context(), adminID(r), body.UserID, body.Action, body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": msg})
}
