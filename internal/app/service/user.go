package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── User Stats ─────────────────────────────────────────────────────────────

// userStats aggregates a user's dashboard counters from submissions, views,
// referrals, the ledger and their team.
func (s *Service) userStats(ctx context.Context, u *domain.User) (*domain.UserStats, error) {
	subs, err := s.db.SubmissionCounts(ctx, u.TelegramID)
	if err != nil {
		return nil, err
	}
	views, _, err := s.db.AdViewTotals(ctx, u.TelegramID, "")
	if err != nil {
		return nil, err
	}
	refs, err := s.db.CountReferrals(ctx, u.TelegramID, time.Time{})
	if err != nil {
		return nil, err
	}
	referEarned, err := s.db.SumLedger(ctx, u.TelegramID, time.Time{}, domain.EntryReferAdd)
	if err != nil {
		return nil, err
	}
	today, err := s.db.SumLedger(ctx, u.TelegramID, s.startOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	st := &domain.UserStats{
		Coins:            u.Balance,
		TotalEarned:      u.TotalEarned,
		TasksCompleted:   subs.Approved,
		PendingTasks:     subs.Pending,
		RejectedTasks:    subs.Rejected,
		AdsWatched:       views,
		Referrals:        refs,
		TeamEarnings:     decimal.Zero,
		ReferralEarnings: cents(referEarned),
		TodayEarnings:    cents(today),
	}
	if u.TeamID != "" {
		ts, err := s.db.TeamStats(ctx, u.TeamID)
		if err != nil {
			return nil, err
		}
		st.TeamMembers = ts.MemberCount
		st.TeamEarnings = ts.TotalTaskEarnings
	}
	return st, nil
}

// Stats returns a user with their dashboard counters.
func (s *Service) Stats(ctx context.Context, userID string) (*domain.User, *domain.UserStats, error) {
	if err := requireID("telegram_id", userID); err != nil {
		return nil, nil, err
	}
	type result struct {
		user  *domain.User
		stats *domain.UserStats
	}
	r, err := timed("user.stats", func() (result, error) {
		u, err := s.db.GetUser(ctx, userID)
		if err != nil {
			return result{}, err
		}
		st, err := s.userStats(ctx, u)
		return result{u, st}, err
	})
	return r.user, r.stats, err
}

// ─── Daily Progress ─────────────────────────────────────────────────────────

// DailyGoal is the coin target shown on the daily progress card.
var DailyGoal = domain.Coins(25.0)

// DailyProgress is the user's activity for the current local day.
type DailyProgress struct {
	Date               string          `json:"date"`
	AdsWatched         int             `json:"ads_watched"`
	AdsLimit           int             `json:"ads_limit"`
	TasksCompleted     int             `json:"tasks_completed"`
	TasksAvailable     int             `json:"tasks_available"`
	CoinsEarnedToday   decimal.Decimal `json:"coins_earned_today"`
	DailyGoal          decimal.Decimal `json:"daily_goal"`
	StreakDays         int             `json:"streak_days"`
	ProgressPercentage int             `json:"progress_percentage"`
}

// ProgressHint suggests the next earning action.
type ProgressHint struct {
	Type   string          `json:"type"`
	Title  string          `json:"title"`
	Reward decimal.Decimal `json:"reward"`
	Action string          `json:"action"`
	TaskID string          `json:"taskId,omitempty"`
}

// DailyProgressReport bundles the day's progress with suggestions.
type DailyProgressReport struct {
	Progress        DailyProgress  `json:"dailyProgress"`
	Recommendations []ProgressHint `json:"recommendations"`
}

// DailyProgress reports today's views, submissions and earnings against the
// active ads and tasks. The streak counts consecutive days with at least
// one ad view, ending today or yesterday.
func (s *Service) DailyProgress(ctx context.Context, userID string) (*DailyProgressReport, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	return timed("user.daily_progress", func() (*DailyProgressReport, error) {
		if _, err := s.db.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		now := s.now()
		today := s.day(now)
		rep := &DailyProgressReport{Recommendations: []ProgressHint{}}
		p := &rep.Progress
		p.Date, p.DailyGoal = today, DailyGoal

		ads, err := s.db.ListAds(ctx, true)
		if err != nil {
			return nil, err
		}
		for _, ad := range ads {
			n, err := s.db.CountAdViewsOnDay(ctx, userID, ad.ID, today)
			if err != nil {
				return nil, err
			}
			p.AdsWatched += n
			p.AdsLimit += ad.DailyLimit
			if left := ad.DailyLimit - n; left > 0 && len(rep.Recommendations) == 0 {
				rep.Recommendations = append(rep.Recommendations, ProgressHint{
					Type: "ad", Title: fmt.Sprintf("Watch %d more ads today", left),
					Reward: domain.Round2(ad.RewardBase.Mul(decimal.NewFromInt(int64(left)))), Action: "watch_ads",
				})
			}
		}

		tasks, err := s.db.ListTasks(ctx, true, "")
		if err != nil {
			return nil, err
		}
		var suggested bool
		for _, t := range tasks {
			n, err := s.db.CountSubmissionsOnDay(ctx, userID, t.ID, today)
			if err != nil {
				return nil, err
			}
			p.TasksCompleted += n
			if left := t.DailyLimit - n; left > 0 {
				p.TasksAvailable += left
				if !suggested {
					suggested = true
					rep.Recommendations = append(rep.Recommendations, ProgressHint{
						Type: "task", Title: "Complete " + t.Title, Reward: t.RewardAmount,
						Action: "complete_task", TaskID: t.ID,
					})
				}
			}
		}

		earned, err := s.db.SumLedger(ctx, userID, s.startOfDay(now))
		if err != nil {
			return nil, err
		}
		p.CoinsEarnedToday = cents(earned)

		days, err := s.db.AdViewDays(ctx, userID, 366)
		if err != nil {
			return nil, err
		}
		p.StreakDays = streak(days, s.startOfDay(now))

		if p.AdsLimit > 0 {
			p.ProgressPercentage = int(math.Min(math.Round(float64(p.AdsWatched)/float64(p.AdsLimit)*100), 100))
		}
		return rep, nil
	})
}

// streak counts consecutive days (newest first, "2006-01-02") that end on
// today or the day before.
func streak(days []string, today time.Time) int {
	if len(days) == 0 {
		return 0
	}
	expect := today
	if days[0] != today.Format(time.DateOnly) {
		expect = today.AddDate(0, 0, -1)
	}
	n := 0
	for _, d := range days {
		if d != expect.Format(time.DateOnly) {
			break
		}
		n++
		expect = expect.AddDate(0, 0, -1)
	}
	return n
}

// ─── Notifications ──────────────────────────────────────────────────────────

// Notifications lists a user's in-app notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	list, err := s.db.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkNotificationsRead marks every unread notification of a user as read
// and returns how many changed.
func (s *Service) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if err := requireID("userId", userID); err != nil {
		return 0, err
	}
	return s.db.MarkNotificationsRead(ctx, userID)
}
