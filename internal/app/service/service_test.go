package service

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/serial"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
	"github.com/takax-network/takax/internal/infra/telegram"
)

const testBotToken = "123456:test-token"

// recorder captures emitted events.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(events ...notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) titles(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.UserID == userID {
			out = append(out, ev.Title)
		}
	}
	return out
}

type fixture struct {
	svc *Service
	db  *sqlite.DB
	rec *recorder
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := observability.Base(observability.NewLogger(observability.LogConfig{Level: "error"}, &bytes.Buffer{}), "test")
	lanes := serial.New(serial.Config{Lanes: 4}, nil, log)
	t.Cleanup(lanes.Close)

	cfg := DefaultConfig()
	cfg.BotUsername = "takax_bot"
	rec := &recorder{}
	svc := New(cfg, Deps{
		DB:       db,
		Serial:   lanes,
		Notifier: rec,
		InitData: telegram.NewValidator(testBotToken, telegram.DefaultMaxAge),
		Log:      log,
	})
	return &fixture{svc: svc, db: db, rec: rec, ctx: context.Background()}
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	res, err := f.svc.InitUser(f.ctx, InitRequest{Profile: Profile{TelegramID: id, Username: "user" + id, FirstName: "User"}})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) balance(t *testing.T, id string) string {
	t.Helper()
	u, err := f.db.GetUser(f.ctx, id)
	require.NoError(t, err)
	return u.Balance.StringFixed(2)
}

// credit gives a user coins through the ledger.
func (f *fixture) credit(t *testing.T, id string, amount float64) {
	t.Helper()
	require.NoError(t, f.db.InTx(f.ctx, func(tx *sqlite.Tx) error {
		_, _, err := f.svc.ledger.Apply(f.ctx, tx, domain.Mutation{
			UserID: id, Delta: domain.Coins(amount), Type: domain.EntryBonusAdd,
			Reason: "test credit", Key: "test:" + id + ":" + strconv.FormatFloat(amount, 'f', 2, 64),
		})
		return err
	}))
}

func (f *fixture) assertReconciled(t *testing.T) {
	t.Helper()
	mismatches, _, err := f.svc.Ledger().ReconcileAll(f.ctx, f.db)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func ptr[T any](v T) *T { return &v }

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestInitUser_CreateThenFetch(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.InitUser(f.ctx, InitRequest{Profile: Profile{TelegramID: "5550123"}})
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.Equal(t, "Welcome to TakaX!", res.Message)
	assert.Equal(t, "takax_user123", res.User.Username)
	assert.Equal(t, "TAKAX550123", res.User.ReferralCode)

	again, err := f.svc.InitUser(f.ctx, InitRequest{Profile: Profile{TelegramID: "5550123"}})
	require.NoError(t, err)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, "Welcome back to TakaX!", again.Message)
}

func TestInitUser_WithReferral(t *testing.T) {
	f := newFixture(t)
	referrer := f.user(t, "1001")

	res, err := f.svc.InitUser(f.ctx, InitRequest{
		Profile:        Profile{TelegramID: "1002", Username: "bob"},
		ReferredByCode: referrer.ReferralCode,
	})
	require.NoError(t, err)
	assert.Equal(t, "1.00", res.ReferralBonus.StringFixed(2))
	assert.Equal(t, referrer.ReferralCode, res.User.ReferredByCode)
	assert.Equal(t, "1.00", f.balance(t, "1002"))
	assert.Equal(t, "2.00", f.balance(t, "1001"))
	f.assertReconciled(t)
}

func TestInitUser_BadReferralStillSignsUp(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.InitUser(f.ctx, InitRequest{Profile: Profile{TelegramID: "1002"}, ReferredByCode: "NOPE"})
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	assert.True(t, res.ReferralBonus.IsZero())
	assert.Equal(t, "0.00", f.balance(t, "1002"))
}

func TestInitUser_RequiresID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.InitUser(f.ctx, InitRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func signedLaunch(id int64, username, startParam string) string {
	v := url.Values{}
	v.Set("user", `{"id":`+strconv.FormatInt(id, 10)+`,"first_name":"Ana","username":"`+username+`"}`)
	v.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	if startParam != "" {
		v.Set("start_param", startParam)
	}
	return telegram.SignInitData(v, testBotToken)
}

func TestTelegramLogin_NewUserWithReferralStartParam(t *testing.T) {
	f := newFixture(t)
	referrer := f.user(t, "1001")

	res, err := f.svc.TelegramLogin(f.ctx, signedLaunch(987654321, "ana_b", "ref_"+referrer.ReferralCode), "")
	require.NoError(t, err)
	assert.True(t, res.IsNewUser)
	require.NotNil(t, res.Referral)
	assert.Equal(t, "1001", res.Referral.Referral.ReferrerID)
	assert.Equal(t, "ana_b", res.User.Username)
	require.NotNil(t, res.Stats)
	assert.Equal(t, "1.00", res.Stats.Coins.StringFixed(2))
	assert.Contains(t, f.rec.titles("1001"), "Referral Bonus!")
}

func TestTelegramLogin_TeamStartParam(t *testing.T) {
	f := newFixture(t)
	f.user(t, "1001")
	team, err := f.svc.CreateTeam(f.ctx, "1001", "Night Owls")
	require.NoError(t, err)

	res, err := f.svc.TelegramLogin(f.ctx, signedLaunch(42, "owl", ""), "team_"+team.InvitationCode)
	require.NoError(t, err)
	require.NotNil(t, res.Team)
	assert.Equal(t, 2, res.Team.MemberCount)
	assert.Equal(t, team.ID, res.User.TeamID)
}

func TestTelegramLogin_ExistingUserUpdatesProfile(t *testing.T) {
	f := newFixture(t)
	f.user(t, "42")

	res, err := f.svc.TelegramLogin(f.ctx, signedLaunch(42, "renamed", ""), "")
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.Equal(t, "renamed", res.User.Username)
	assert.Equal(t, "Ana", res.User.FirstName)
}

func TestTelegramLogin_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.TelegramLogin(f.ctx, "user=%7B%7D&hash=00", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)

	f.svc.initData = telegram.NewValidator("", telegram.DefaultMaxAge)
	_, err = f.svc.TelegramLogin(f.ctx, signedLaunch(1, "x", ""), "")
	assert.ErrorIs(t, err, ErrBotNotConfigured)
}

// ─── Calendar ───────────────────────────────────────────────────────────────

func TestCalendarHelpers(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2026, 10, 15, 13, 30, 0, 0, time.UTC) // Thursday

	assert.Equal(t, "2026-10-15", f.svc.day(ts))
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), f.svc.startOfWeek(ts))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), f.svc.startOfMonth(ts))
	assert.Equal(t, "2026-10", f.svc.month(ts))
	assert.Equal(t, "2026-W42", f.svc.weekPeriod(ts))
}

func TestStreak(t *testing.T) {
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		days []string
		want int
	}{
		{"none", nil, 0},
		{"today only", []string{"2026-10-15"}, 1},
		{"ending yesterday", []string{"2026-10-14", "2026-10-13"}, 2},
		{"gap", []string{"2026-10-15", "2026-10-14", "2026-10-12"}, 2},
		{"stale", []string{"2026-10-10"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, streak(tt.days, today))
		})
	}
}
