package api

import (
	"fmt"
	"net/http"
)

// ─── Referrals API ──────────────────────────────────────────────────────────
//
// POST     /api/referrals/register     credit an existing user to a code
// POST     /api/referrals/track        signup / first_task bonuses
// GET      /api/referrals/stats        referral dashboard of ?userId=
// GET      /api/referrals/leaderboard  top referrers
// GET/POST /api/referrals/tiers        tier table, claim monthly bonus

type registerBody struct {
	NewUserID    string `json:"newUserId" validate:"required"`
	ReferralCode string `json:"referralCode" validate:"required"`
}

// handleReferralRegister credits newUserId to the owner of referralCode.
// POST /api/referrals/register
func (s *Server) handleReferralRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.RegisterReferral(r.Context(), body.NewUserID, body.ReferralCode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"referral": res.Referral,
		"rewards": map[string]interface{}{
			"referrer_reward": res.ReferrerReward,
			"new_user_bonus":  res.NewUserBonus,
		},
		"referrer_stats": map[string]interface{}{
			"total_referrals": res.ReferrerTotal,
			"total_earnings":  res.ReferrerEarnings,
			"tier":            res.ReferrerTier,
		},
		"message": "Referral processed successfully",
	})
}

type trackBody struct {
	ReferrerCode string `json:"referrerCode" validate:"required"`
	NewUserID    string `json:"newUserId" validate:"required"`
	Action       string `json:"action" validate:"required,oneof=signup first_task"`
}

// handleReferralTrack applies a tracked referral milestone.
// POST /api/referrals/track
func (s *Server) handleReferralTrack(w http.ResponseWriter, r *http.Request) {
	var body trackBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.TrackReferral(r.Context(), body.ReferrerCode, body.NewUserID, body.Action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "Referral tracked"
	if res.Applied && res.Bonus.IsPositive() {
		msg = fmt.Sprintf("Referral bonus of %s coins awarded!", res.Bonus.StringFixed(2))
	}
	writeOK(w, map[string]interface{}{
		"bonusAmount": res.Bonus,
		"applied":     res.Applied,
		"message":     msg,
	})
}

// handleReferralStats returns the referral dashboard of a user.
// GET /api/referrals/stats?userId=&includeReferrals=true
func (s *Server) handleReferralStats(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("includeReferrals") == "true"
	st, err := s.svc.ReferralStats(r.Context(), r.URL.Query().Get("userId"), include)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := map[string]interface{}{"stats": st}
	if include {
		out["referrals"] = st.Referrals
	}
	writeOK(w, out)
}

// handleReferralLeaderboard returns the top referrers and the caller's rank.
// GET /api/referrals/leaderboard?userId=&limit=
func (s *Server) handleReferralLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.svc.ReferralLeaderboard(r.Context(), r.URL.Query().Get("userId"), queryInt(r, "limit", 10))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"leaderboard":    lb.Entries,
		"userRank":       lb.UserRank,
		"totalReferrers": lb.TotalReferrers,
	})
}

// handleTiers returns the tier table and the caller's standing.
// GET /api/referrals/tiers?userId=
func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Tiers(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"data": view})
}

type tierActionBody struct {
	UserID string `json:"userId" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// handleTierAction claims a monthly bonus or recomputes the tier.
// POST /api/referrals/tiers
func (s *Server) handleTierAction(w http.ResponseWriter, r *http.Request) {
	var body tierActionBody
	if err := s.decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.TierAction(r.Context(), body.UserID, body.Action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{
		"action":  res.Action,
		"tier":    res.Tier,
		"reward":  res.Reward,
		"message": res.Message,
	})
}
