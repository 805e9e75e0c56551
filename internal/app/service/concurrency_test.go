package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/domain"
)

// parallel runs fn n times concurrently and waits for all of them.
func parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestSubmitTask_ConcurrentDuplicatesCreditOnce(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	task := f.task(t, "Visit site", domain.TaskWebsiteVisit, 3.0)

	var ok, limited atomic.Int32
	parallel(20, func(int) {
		_, err := f.svc.SubmitTask(f.ctx, SubmitRequest{UserID: "1001", TaskID: task.ID})
		switch {
		case err == nil:
			ok.Add(1)
		case errors.Is(err, domain.ErrDailyLimit):
			limited.Add(1)
		default:
			t.Errorf("unexpected error: %v", err)
		}
	})

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 19, limited.Load())
	assert.Equal(t, "3.00", f.balance(t, "1001"))
	f.assertReconciled(t)
}

func TestSubmitTask_ConcurrentSameKeyReplays(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	task := f.task(t, "Visit site", domain.TaskWebsiteVisit, 2.0)
	req := SubmitRequest{UserID: "1001", TaskID: task.ID, IdempotencyKey: "tap-1"}

	ids := make([]string, 10)
	var replayed atomic.Int32
	parallel(len(ids), func(i int) {
		res, err := f.svc.SubmitTask(f.ctx, req)
		if err != nil {
			t.Errorf("submit %d: %v", i, err)
			return
		}
		ids[i] = res.Submission.ID
		if res.Replayed {
			replayed.Add(1)
		}
	})

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.EqualValues(t, len(ids)-1, replayed.Load())
	assert.Equal(t, "2.00", f.balance(t, "1001"))
	f.assertReconciled(t)
}

func TestRequestWithdrawal_ConcurrentNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	f.credit(t, "1001", 20)

	var ok, short atomic.Int32
	parallel(10, func(i int) {
		_, err := f.svc.RequestWithdrawal(f.ctx, WithdrawalRequest{
			UserID: "1001", Amount: domain.Coins(5), Method: "bkash", Account: fmt.Sprintf("0170000000%d", i),
		})
		switch {
		case err == nil:
			ok.Add(1)
		case errors.Is(err, domain.ErrInsufficientBalance):
			short.Add(1)
		default:
			t.Errorf("unexpected error: %v", err)
		}
	})

	assert.EqualValues(t, 4, ok.Load())
	assert.EqualValues(t, 6, short.Load())
	assert.Equal(t, "0.00", f.balance(t, "1001"))

	_, err := f.svc.RequestWithdrawal(f.ctx, WithdrawalRequest{UserID: "1001", Amount: domain.Coins(50), Method: "bkash", Account: "x"})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	f.assertReconciled(t)
}

func TestJoinTeam_ConcurrentJoinsStopAtCapacity(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	team, err := f.svc.CreateTeam(f.ctx, "1001", "Night Owls")
	require.NoError(t, err)

	const joiners = 8
	for i := 0; i < joiners; i++ {
		f.user(t, fmt.Sprintf("20%02d", i))
	}

	var joined, full atomic.Int32
	parallel(joiners, func(i int) {
		_, err := f.svc.JoinTeam(f.ctx, fmt.Sprintf("20%02d", i), team.InvitationCode)
		switch {
		case err == nil:
			joined.Add(1)
		case errors.Is(err, domain.ErrTeamFull):
			full.Add(1)
		default:
			t.Errorf("unexpected error: %v", err)
		}
	})

	assert.EqualValues(t, domain.MaxTeamMembers-1, joined.Load())
	assert.EqualValues(t, joiners-(domain.MaxTeamMembers-1), full.Load())
	got, err := f.db.GetTeam(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTeamMembers, got.MemberCount)
}

func TestReferralsAndWithdrawals_ConcurrentReconcile(t *testing.T) {
	f := newFixture(t)
	referrer := f.user(t, "1001")
	f.credit(t, "1001", 100)

	parallel(10, func(i int) {
		if i%2 == 0 {
			_, err := f.svc.InitUser(f.ctx, InitRequest{
				Profile:        Profile{TelegramID: fmt.Sprintf("30%02d", i)},
				ReferredByCode: referrer.ReferralCode,
			})
			if err != nil {
				t.Errorf("signup %d: %v", i, err)
			}
			return
		}
		_, err := f.svc.RequestWithdrawal(f.ctx, WithdrawalRequest{UserID: "1001", Amount: domain.Coins(2), Method: "bkash", Account: "x"})
		if err != nil {
			t.Errorf("withdrawal %d: %v", i, err)
		}
	})

	// 100 + 5 referrals at 2.0 - 5 withdrawals at 2.0
	assert.Equal(t, "100.00", f.balance(t, "1001"))
	f.assertReconciled(t)
}

// ─── Day Windows ────────────────────────────────────────────────────────────

func TestSubmitTask_DayWindowFollowsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	f := newFixture(t)
	f.svc.cfg.Location = loc
	f.user(t, "1001")
	task := f.task(t, "Visit site", domain.TaskWebsiteVisit, 3.0)
	require.Equal(t, 1, task.DailyLimit)

	// 23:59 Dhaka is 17:59 UTC the same date; 00:01 Dhaka is 18:01 UTC.
	// A UTC window would put both in one day.
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 23, 59, 0, 0, loc) }
	_, err = f.svc.SubmitTask(f.ctx, SubmitRequest{UserID: "1001", TaskID: task.ID})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Date(2026, 3, 11, 0, 1, 0, 0, loc) }
	_, err = f.svc.SubmitTask(f.ctx, SubmitRequest{UserID: "1001", TaskID: task.ID})
	require.NoError(t, err)

	_, err = f.svc.SubmitTask(f.ctx, SubmitRequest{UserID: "1001", TaskID: task.ID})
	assert.ErrorIs(t, err, domain.ErrDailyLimit)

	assert.Equal(t, "6.00", f.balance(t, "1001"))
	f.assertReconciled(t)
}
