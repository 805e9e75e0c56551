package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/domain"
)

func TestListUsers_PagesAndFilters(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"1001", "1002", "1003"} {
		f.user(t, id)
	}
	msg, err := f.svc.SetUserStatus(f.ctx, "admin", "1002", "ban", "fraud")
	require.NoError(t, err)
	assert.Equal(t, "User ban successfully", msg)

	page, err := f.svc.ListUsers(f.ctx, 1, 2, "", "all")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Users, 2)

	banned, err := f.svc.ListUsers(f.ctx, 0, 0, "", "banned")
	require.NoError(t, err)
	require.Len(t, banned.Users, 1)
	assert.Equal(t, "1002", banned.Users[0].TelegramID)
	assert.Equal(t, "fraud", banned.Users[0].BanReason)
	assert.Equal(t, 1, banned.Page)
	assert.Equal(t, 10, banned.Limit)

	search, err := f.svc.ListUsers(f.ctx, 1, 10, "user1003", "")
	require.NoError(t, err)
	assert.Equal(t, 1, search.Total)
}

func TestSetUserStatus_Errors(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")

	_, err := f.svc.SetUserStatus(f.ctx, "admin", "1001", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.SetUserStatus(f.ctx, "admin", "1001", "vaporize", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.SetUserStatus(f.ctx, "admin", "9999", "ban", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.SetUserStatus(f.ctx, "admin", "1001", "unban", "")
	require.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	f.user(t, "1002")
	f.credit(t, "1001", 8)
	_, err := f.svc.RequestWithdrawal(f.ctx, WithdrawalRequest{UserID: "1001", Amount: domain.Coins(3), Method: "bkash", Account: "x"})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalUsers)
	assert.Equal(t, 1, d.ActiveUsers)
	assert.Equal(t, 1, d.PendingWithdrawals)
	assert.Equal(t, "3.00", d.PendingWithdrawalAmount.StringFixed(2))

	f.svc.now = func() time.Time { return time.Now().Add(60 * 24 * time.Hour) }
	d, err = f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, d.ActiveUsers)
}

// ─── Support & User ─────────────────────────────────────────────────────────

func TestSupportTickets(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitTicket(f.ctx, "1001", "  ", "help", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	ticket, err := f.svc.SubmitTicket(f.ctx, "1001", " Payout ", " Where is my money? ", "")
	require.NoError(t, err)
	assert.Equal(t, "Payout", ticket.Subject)
	assert.Equal(t, "pending", ticket.Status)

	list, err := f.svc.ListTickets(f.ctx, "1001")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ticket.ID, list[0].ID)

	empty, err := f.svc.ListTickets(f.ctx, "1002")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	referrer := f.user(t, "1001")
	f.referN(t, referrer, 2)
	task := f.task(t, "Visit site", domain.TaskWebsiteVisit, 2.0)
	_, err := f.svc.SubmitTask(f.ctx, SubmitRequest{UserID: "1001", TaskID: task.ID})
	require.NoError(t, err)
	_, err = f.svc.RecordAdView(f.ctx, AdViewRequest{UserID: "1001", Completed: true, WatchPercentage: 100})
	require.NoError(t, err)

	u, st, err := f.svc.Stats(f.ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", u.TelegramID)
	assert.Equal(t, "11.00", st.Coins.StringFixed(2))
	assert.Equal(t, 1, st.TasksCompleted)
	assert.Equal(t, 1, st.AdsWatched)
	assert.Equal(t, 2, st.Referrals)
	assert.Equal(t, "4.00", st.ReferralEarnings.StringFixed(2))
	assert.Equal(t, "11.00", st.TodayEarnings.StringFixed(2))

	_, _, err = f.svc.Stats(f.ctx, "9999")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDailyProgress(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	f.task(t, "Visit site", domain.TaskWebsiteVisit, 2.0)
	for i := 0; i < 2; i++ {
		_, err := f.svc.RecordAdView(f.ctx, AdViewRequest{UserID: "1001", Completed: true, WatchPercentage: 100})
		require.NoError(t, err)
	}

	rep, err := f.svc.DailyProgress(f.ctx, "1001")
	require.NoError(t, err)
	p := rep.Progress
	assert.Equal(t, 2, p.AdsWatched)
	assert.Equal(t, 5, p.AdsLimit)
	assert.Equal(t, 0, p.TasksCompleted)
	assert.Equal(t, 1, p.TasksAvailable)
	assert.Equal(t, "10.00", p.CoinsEarnedToday.StringFixed(2))
	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 40, p.ProgressPercentage)
	require.Len(t, rep.Recommendations, 2)
	assert.Equal(t, "watch_ads", rep.Recommendations[0].Action)
	assert.Equal(t, "complete_task", rep.Recommendations[1].Action)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	require.NoError(t, f.db.InsertNotification(f.ctx, &domain.Notification{ID: "n1", UserID: "1001", Title: "Hi", Message: "there", Type: "info"}))

	list, err := f.svc.Notifications(f.ctx, "1001", true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := f.svc.MarkNotificationsRead(f.ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = f.svc.Notifications(f.ctx, "1001", true, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
