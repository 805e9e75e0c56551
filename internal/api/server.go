// Package api provides the HTTP server for TakaX.
// It exposes the JSON API used by the Telegram Mini App and the admin panel.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/infra/observability"
)

// Config controls the HTTP surface.
type Config struct {
	IsAdmin        func(id string) bool
	CORSOrigins    []string // empty allows any origin
	RequestTimeout time.Duration
	Metrics        bool
	MetricsPath    string // default /metrics
}

// Server is the TakaX HTTP API server.
type Server struct {
	svc      *service.Service
	cfg      Config
	log      *logrus.Entry
	validate *validator.Validate
}

// NewServer creates a new API server.
func NewServer(svc *service.Service, cfg Config, log *logrus.Entry) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{svc: svc, cfg: cfg, log: log, validate: newValidator()}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if s.cfg.Metrics {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/init", s.handleAuthInit)
		r.Post("/auth/telegram", s.handleAuthTelegram)

		r.Get("/tasks/list", s.handleTaskList)
		r.Post("/tasks/submit", s.handleTaskSubmit)

		r.Get("/ads/list", s.handleAdList)
		r.Post("/ads/view", s.handleAdView)

		r.Post("/referrals/register", s.handleReferralRegister)
		r.Post("/referrals/track", s.handleReferralTrack)
		r.Get("/referrals/stats", s.handleReferralStats)
		r.Get("/referrals/leaderboard", s.handleReferralLeaderboard)
		r.Get("/referrals/tiers", s.handleTiers)
		r.Post("/referrals/tiers", s.handleTierAction)

		r.Post("/teams/create", s.handleTeamCreate)
		r.Post("/teams/join", s.handleTeamJoin)
		r.Post("/teams/manage", s.handleTeamManage)
		r.Post("/teams/invite", s.handleTeamInvite)
		r.Get("/teams/info", s.handleTeamInfo)
		r.Get("/teams/challenges", s.handleTeamChallenges)
		r.Post("/teams/challenges", s.handleChallengeAction)

		r.Post("/withdrawals/request", s.handleWithdrawalRequest)
		r.Get("/withdrawals/history", s.handleWithdrawalHistory)

		r.Post("/support/submit", s.handleSupportSubmit)
		r.Get("/support/tickets", s.handleSupportTickets)

		r.Get("/user/stats", s.handleUserStats)
		r.Get("/user/daily-progress", s.handleDailyProgress)
		r.Get("/user/notifications", s.handleNotifications)
		r.Patch("/user/notifications", s.handleNotificationsRead)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/dashboard", s.handleAdminDashboard)
			r.Get("/actions", s.handleAdminActions)
			r.Get("/tasks", s.handleAdminTasks)
			r.Post("/tasks", s.handleAdminCreateTask)
			r.Put("/tasks", s.handleAdminUpdateTask)
			r.Get("/submissions", s.handleAdminSubmissions)
			r.Patch("/submissions", s.handleAdminReviewSubmission)
			r.Get("/ads", s.handleAdminAds)
			r.Post("/ads", s.handleAdminCreateAd)
			r.Patch("/ads", s.handleAdminSetAd)
			r.Get("/users", s.handleAdminUsers)
			r.Patch("/users", s.handleAdminSetUser)
			r.Patch("/teams", s.handleAdminSetTeam)
			r.Get("/withdrawals", s.handleAdminWithdrawals)
			r.Patch("/withdrawals", s.handleAdminReviewWithdrawal)
		})
	})

	return r
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// requestLogger puts the request id on the context, then logs and counts
// every request by its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		observability.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		observability.Entry(ctx, s.log).WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   status,
			"bytes":    ww.BytesWritten(),
			"duration": elapsed.String(),
		}).Debug("request")
	})
}

// corsMiddleware answers preflight requests and sets CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if len(s.cfg.CORSOrigins) == 0 {
		return "*"
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeOK writes a 200 response with success set.
func writeOK(w http.ResponseWriter, body map[string]interface{}) {
	if body == nil {
		body = map[string]interface{}{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// ─── Query Helpers ──────────────────────────────────────────────────────────

// queryInt reads an integer query parameter, falling back to def when it is
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// firstQuery returns the first non-empty query parameter among names.
func firstQuery(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}
