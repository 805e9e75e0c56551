package api

import (
	"encoding/json"
	"net/http"

	"github.com/takax-network/takax/internal/app/service"
)

// ─── Auth API ───────────────────────────────────────────────────────────────
//
// POST /api/auth/init      create or fetch a user by Telegram id
// POST /api/auth/telegram  verify Mini App initData and sign in

// flexID accepts a Telegram id sent as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type initBody struct {
	TelegramID     flexID `json:"telegram_id" validate:"required"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ReferralCode   string `json:"referral_code"`
	ReferredByCode string `json:"referred_by_code"`
}

// handleAuthInit creates or fetches a user.
// POST /api/auth/init
func (s *Server) handleAuthInit(w http.ResponseWriter, r *http.Request) {
	var body initBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.InitUser(r.Context(), service.InitRequest{
		Profile: service.Profile{
			TelegramID: string(body.TelegramID),
			Username:   body.Username,
			FirstName:  body.FirstName,
			LastName:   body.LastName,
		},
		ReferralCode:   body.ReferralCode,
		ReferredByCode: body.ReferredByCode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"user":           res.User,
		"referral_bonus": res.ReferralBonus,
		"message":        res.Message,
		"isNewUser":      res.IsNewUser,
	})
}

type telegramBody struct {
	InitData   string `json:"initData" validate:"required"`
	StartParam string `json:"startParam"`
}

// handleAuthTelegram signs a Mini App user in.
// POST /api/auth/telegram
func (s *Server) handleAuthTelegram(w http.ResponseWriter, r *http.Request) {
	var body telegramBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.TelegramLogin(r.Context(), body.InitData, body.StartParam)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := map[string]interface{}{
		"user":      res.User,
		"stats":     res.Stats,
		"isNewUser": res.IsNewUser,
	}
	if res.Referral != nil {
		out["referral"] = res.Referral.Referral
	}
	if res.Team != nil {
		out["team"] = res.Team
	}
	writeOK(w, out)
}
