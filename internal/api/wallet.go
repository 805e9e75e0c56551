package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/app/service"
)

// ─── Withdrawals & Support API ──────────────────────────────────────────────
//
// POST /api/withdrawals/request  debit the balance into a pending payout
// GET  /api/withdrawals/history  paginated payouts with a summary
// POST /api/support/submit       open a support ticket
// GET  /api/support/tickets      a user's tickets, newest first

type withdrawalBody struct {
	UserID  string          `json:"userId" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method" validate:"required"`
	Account string          `json:"account" validate:"required"`
}

// handleWithdrawalRequest creates a pending withdrawal.
// POST /api/withdrawals/request
func (s *Server) handleWithdrawalRequest(w http.ResponseWriter, r *http.Request) {
	var body withdrawalBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	wd, err := s.svc.RequestWithdrawal(r.Context(), service.WithdrawalRequest{
		UserID:  body.UserID,
		Amount:  body.Amount,
		Method:  body.Method,
		Account: body.Account,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"withdrawal": wd,
		"message":    "Withdrawal request submitted successfully",
	})
}

// handleWithdrawalHistory pages through a user's withdrawals.
// GET /api/withdrawals/history?userId=&status=&limit=&offset=
func (s *Server) handleWithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h, err := s.svc.WithdrawalHistory(r.Context(), q.Get("userId"), q.Get("status"),
		queryInt(r, "limit", 10), queryInt(r, "offset", 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"withdrawals": h.Withdrawals,
		"summary":     h.Summary,
		"pagination":  h.Pagination,
	})
}

type ticketBody struct {
	UserID  string `json:"userId" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
	Image   string `json:"image"`
}

// handleSupportSubmit opens a ticket.
// POST /api/support/submit
func (s *Server) handleSupportSubmit(w http.ResponseWriter, r *http.Request) {
	var body ticketBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.SubmitTicket(r.Context(), body.UserID, body.Subject, body.Message, body.Image)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"ticket":  t,
		"message": "Support ticket submitted successfully",
	})
}

// handleSupportTickets lists a user's tickets.
// GET /api/support/tickets?userId=
func (s *Server) handleSupportTickets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	list, err := s.svc.ListTickets(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"tickets": list})
}

// ─── Admin: Withdrawals ─────────────────────────────────────────────────────

// handleAdminWithdrawals lists withdrawals awaiting review.
// GET /api/admin/withdrawals?status=
func (s *Server) handleAdminWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListWithdrawals(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"withdrawals": list})
}

type reviewWithdrawalBody struct {
	WithdrawalID string `json:"withdrawalId" validate:"required"`
	Action       string `json:"action" validate:"required"`
	Reason       string `json:"reason"`
}

// handleAdminReviewWithdrawal approves, rejects or marks a withdrawal as
// processing. Rejection refunds the amount.
// PATCH /api/admin/withdrawals
func (s *Server) handleAdminReviewWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body reviewWithdrawalBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	wd, err := s.svc.ReviewWithdrawal(r.Context(), adminID(r), body.WithdrawalID, body.Action, body.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"withdrawal": wd,
		"message":    "Withdrawal " + string(wd.Status) + " successfully",
	})
}
