package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/takax-network/takax/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, id string) *domain.User {
	t.Helper()
	u := &domain.User{TelegramID: id, Username: "user" + id, ReferralCode: domain.DefaultReferralCode(id)}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error: %v", id, err)
	}
	return u
}

func credit(t *testing.T, db *DB, userID string, amount float64, typ domain.EntryType, key string) {
	t.Helper()
	err := db.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.ApplyMutation(context.Background(), domain.Mutation{
			UserID: userID, Delta: domain.Coins(amount), Type: typ, Reason: "test", Key: key,
		})
		return err
	})
	if err != nil {
		t.Fatalf("credit %s: %v", key, err)
	}
}

// ─── Schema ─────────────────────────────────────────────────────────────────

func TestMigrations_TablesExist(t *testing.T) {
	db := newTestDB(t)

	tables := []string{
		"users", "ledger_entries", "tasks", "task_submissions", "ads", "ad_views",
		"referrals", "teams", "team_members", "team_invites", "team_challenges",
		"withdrawals", "notifications", "support_tickets", "admin_actions",
	}
	for _, table := range tables {
		var count int
		err := db.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found in database", table)
		}
	}
}

func TestOpen_SeedsDefaultAd(t *testing.T) {
	db := newTestDB(t)

	ad, err := db.GetAd(context.Background(), "default")
	if err != nil {
		t.Fatalf("GetAd(default) error: %v", err)
	}
	if !ad.RewardBase.Equal(domain.Coins(5)) || ad.DailyLimit != 5 || ad.MinWatchPercentage != 80 {
		t.Errorf("default ad = %+v", ad)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mustUser(t, db, "1001")
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := db.GetUser(context.Background(), "1001"); err != nil {
		t.Errorf("user lost after reopen: %v", err)
	}
}

// ─── Users ──────────────────────────────────────────────────────────────────

func TestMapErr(t *testing.T) {
	if mapErr(nil) != nil {
		t.Error("mapErr(nil) should be nil")
	}
	dup := []string{
		"constraint failed: UNIQUE constraint failed: users.telegram_id (2067)",
		"constraint failed: PRIMARY KEY must be unique",
	}
	for _, msg := range dup {
		if err := mapErr(errors.New(msg)); !errors.Is(err, domain.ErrDuplicate) {
			t.Errorf("mapErr(%q) = %v, want ErrDuplicate", msg, err)
		}
	}
	check := errors.New("constraint failed: CHECK constraint failed: balance >= 0 (275)")
	if err := mapErr(check); errors.Is(err, domain.ErrDuplicate) || err != check {
		t.Errorf("CHECK failure should pass through unchanged, got %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	mustUser(t, db, "1001")

	err := db.CreateUser(context.Background(), &domain.User{TelegramID: "1001", ReferralCode: "OTHER"})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetUser(context.Background(), "nope")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestSetReferredBy_Immutable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")

	if err := db.SetReferredBy(ctx, "1001", "TAKAX000002"); err != nil {
		t.Fatalf("first SetReferredBy: %v", err)
	}
	if err := db.SetReferredBy(ctx, "1001", "TAKAX000003"); !errors.Is(err, domain.ErrAlreadyReferred) {
		t.Errorf("second SetReferredBy err = %v, want ErrAlreadyReferred", err)
	}
	u, _ := db.GetUser(ctx, "1001")
	if u.ReferredByCode != "TAKAX000002" {
		t.Errorf("referred_by_code = %q", u.ReferredByCode)
	}
}

func TestListUsers_FilterAndSearch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	mustUser(t, db, "1002")
	mustUser(t, db, "2003")
	if err := db.SetUserStatus(ctx, "1002", domain.StatusBanned, "spam"); err != nil {
		t.Fatal(err)
	}

	users, total, err := db.ListUsers(ctx, UserFilter{Status: domain.StatusBanned})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(users) != 1 || users[0].TelegramID != "1002" {
		t.Errorf("banned filter: total=%d users=%v", total, users)
	}
	if users[0].BanReason != "spam" {
		t.Errorf("ban_reason = %q", users[0].BanReason)
	}

	_, total, err = db.ListUsers(ctx, UserFilter{Search: "100"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("search total = %d, want 2", total)
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestApplyMutation_CreditUpdatesBalanceAndHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")

	credit(t, db, "1001", 2.5, domain.EntryTaskAdd, "task:s1")
	credit(t, db, "1001", 1.25, domain.EntryAdAdd, "ad:v1")

	u, _ := db.GetUser(ctx, "1001")
	if !u.Balance.Equal(domain.Coins(3.75)) {
		t.Errorf("balance = %s, want 3.75", u.Balance)
	}
	if !u.TotalEarned.Equal(domain.Coins(3.75)) {
		t.Errorf("total_earned = %s, want 3.75", u.TotalEarned)
	}
	entries, err := db.ListLedger(ctx, "1001", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != domain.EntryAdAdd {
		t.Errorf("newest entry type = %s", entries[0].Type)
	}
}

func TestApplyMutation_DuplicateKeyRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	credit(t, db, "1001", 2, domain.EntryTaskAdd, "task:s1")

	err := db.InTx(ctx, func(tx *Tx) error {
		_, err := tx.ApplyMutation(ctx, domain.Mutation{
			UserID: "1001", Delta: domain.Coins(2), Type: domain.EntryTaskAdd, Key: "task:s1",
		})
		return err
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	u, _ := db.GetUser(ctx, "1001")
	if !u.Balance.Equal(domain.Coins(2)) {
		t.Errorf("balance = %s, want 2 (credited once)", u.Balance)
	}
}

func TestApplyMutation_DebitInsufficient(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	credit(t, db, "1001", 5, domain.EntryTaskAdd, "task:s1")

	err := db.InTx(ctx, func(tx *Tx) error {
		_, err := tx.ApplyMutation(ctx, domain.Mutation{
			UserID: "1001", Delta: domain.Coins(-6), Type: domain.EntryWithdrawalRequest, Key: "withdrawal:w1:request",
		})
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The history row inserted before the failed debit must be gone.
	applied, err := db.HasLedgerKey(ctx, "withdrawal:w1:request")
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("ledger entry survived a rolled-back debit")
	}
	b, err := db.GetLedgerBalance(ctx, "1001")
	if err != nil {
		t.Fatal(err)
	}
	if !b.Consistent() {
		t.Errorf("ledger inconsistent: %+v", b)
	}
}

func TestApplyMutation_DebitDoesNotTouchTotalEarned(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	credit(t, db, "1001", 10, domain.EntryTaskAdd, "task:s1")
	credit(t, db, "1001", -4, domain.EntryWithdrawalRequest, "withdrawal:w1:request")
	credit(t, db, "1001", 4, domain.EntryWithdrawalRefund, "withdrawal:w1:refund")

	u, _ := db.GetUser(ctx, "1001")
	if !u.Balance.Equal(domain.Coins(10)) || !u.TotalEarned.Equal(domain.Coins(10)) {
		t.Errorf("balance=%s total_earned=%s, want 10/10", u.Balance, u.TotalEarned)
	}
	b, _ := db.GetLedgerBalance(ctx, "1001")
	if !b.Consistent() {
		t.Errorf("ledger inconsistent: %+v", b)
	}
}

func TestApplyMutation_RoundsToCents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	credit(t, db, "1001", 0.125, domain.EntryAdAdd, "ad:v1")

	u, _ := db.GetUser(ctx, "1001")
	if !u.Balance.Equal(domain.Coins(0.13)) {
		t.Errorf("balance = %s, want 0.13", u.Balance)
	}
}

// ─── Submissions & Views ────────────────────────────────────────────────────

func TestInsertSubmission_SameSlotRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	task := &domain.Task{ID: "t1", Title: "Visit", RewardAmount: domain.Coins(1), TaskType: domain.TaskWebsiteVisit, DailyLimit: 1, IsActive: true}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	sub := &domain.TaskSubmission{ID: "s1", UserID: "1001", TaskID: "t1", Day: "2026-01-01", Seq: 1, Status: domain.SubmissionPending}
	if err := db.InsertSubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}
	dup := &domain.TaskSubmission{ID: "s2", UserID: "1001", TaskID: "t1", Day: "2026-01-01", Seq: 1, Status: domain.SubmissionPending}
	if err := db.InsertSubmission(ctx, dup); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
	n, _ := db.CountSubmissionsOnDay(ctx, "1001", "t1", "2026-01-01")
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestReviewSubmission_OnlyFromPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	db.CreateTask(ctx, &domain.Task{ID: "t1", Title: "Survey", RewardAmount: domain.Coins(8), TaskType: domain.TaskSurvey, DailyLimit: 1, IsActive: true})
	db.InsertSubmission(ctx, &domain.TaskSubmission{ID: "s1", UserID: "1001", TaskID: "t1", Day: "2026-01-01", Seq: 1, Status: domain.SubmissionPending})

	at := parseTime(now())
	if err := db.ReviewSubmission(ctx, "s1", domain.SubmissionApproved, domain.Coins(8), "admin", at); err != nil {
		t.Fatal(err)
	}
	err := db.ReviewSubmission(ctx, "s1", domain.SubmissionRejected, domain.Coins(0), "admin", at)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	st, _ := db.TaskSubmissionStats(ctx, "t1")
	if st.Approved != 1 || st.Total != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestAdViewTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	for i, pct := range []int{100, 60, 10} {
		v := &domain.AdView{ID: string(rune('a' + i)), UserID: "1001", AdID: "default", Day: "2026-01-01",
			Seq: i + 1, CompletionPercentage: pct, RewardEarned: domain.Coins(float64(pct) / 20), CreatedAt: parseTime(now())}
		if err := db.InsertAdView(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	views, cents, err := db.AdViewTotals(ctx, "1001", "2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if views != 3 || cents != 850 {
		t.Errorf("views=%d cents=%d, want 3/850", views, cents)
	}
}

// ─── Referrals ──────────────────────────────────────────────────────────────

func TestInsertReferral_OncePerReferred(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1001")
	mustUser(t, db, "1002")
	mustUser(t, db, "1003")

	r := &domain.Referral{ID: "r1", ReferrerID: "1001", ReferredID: "1003", ReferralCode: "TAKAX001001",
		RewardAmount: domain.Coins(2), NewUserBonus: domain.Coins(1)}
	if err := db.InsertReferral(ctx, r); err != nil {
		t.Fatal(err)
	}
	again := &domain.Referral{ID: "r2", ReferrerID: "1002", ReferredID: "1003", ReferralCode: "TAKAX001002",
		RewardAmount: domain.Coins(2), NewUserBonus: domain.Coins(1)}
	if err := db.InsertReferral(ctx, again); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestReferrerRanking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		mustUser(t, db, id)
	}
	refer := func(id, referrer, referred string) {
		if err := db.InsertReferral(ctx, &domain.Referral{ID: id, ReferrerID: referrer, ReferredID: referred,
			RewardAmount: domain.Coins(2), NewUserBonus: domain.Coins(1)}); err != nil {
			t.Fatal(err)
		}
	}
	refer("r1", "1", "3")
	refer("r2", "2", "4")
	refer("r3", "2", "5")

	ranking, err := db.ReferrerRanking(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking) != 2 {
		t.Fatalf("ranking len = %d, want 2", len(ranking))
	}
	if ranking[0].UserID != "2" || ranking[0].Referrals != 2 || ranking[0].Rank != 1 {
		t.Errorf("first = %+v", ranking[0])
	}
}

// ─── Teams ──────────────────────────────────────────────────────────────────

func TestAddMember_RejectsFifth(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		mustUser(t, db, id)
	}
	team := &domain.Team{ID: "team1", Name: "Crypto Earners", LeaderID: "1", InvitationCode: "TXABC123"}
	if err := db.InsertTeam(ctx, team); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"2", "3", "4"} {
		if err := db.AddMember(ctx, "team1", id); err != nil {
			t.Fatalf("AddMember(%s): %v", id, err)
		}
	}
	if err := db.AddMember(ctx, "team1", "5"); !errors.Is(err, domain.ErrTeamFull) {
		t.Errorf("err = %v, want ErrTeamFull", err)
	}
	got, _ := db.GetTeam(ctx, "team1")
	if got.MemberCount != 4 {
		t.Errorf("member_count = %d, want 4", got.MemberCount)
	}
	u, _ := db.GetUser(ctx, "4")
	if u.TeamID != "team1" {
		t.Errorf("user team = %q", u.TeamID)
	}
}

func TestInsertTeam_NameTakenIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	mustUser(t, db, "2")
	db.InsertTeam(ctx, &domain.Team{ID: "a", Name: "Earners", LeaderID: "1", InvitationCode: "TX000001"})

	err := db.InsertTeam(ctx, &domain.Team{ID: "b", Name: "EARNERS", LeaderID: "2", InvitationCode: "TX000002"})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestRemoveMemberAndDeleteTeam(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	db.InsertTeam(ctx, &domain.Team{ID: "team1", Name: "Solo", LeaderID: "1", InvitationCode: "TX000001"})

	if err := db.RemoveMember(ctx, "team1", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteTeam(ctx, "team1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetTeam(ctx, "team1"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Errorf("err = %v, want ErrTeamNotFound", err)
	}
}

func TestTeamStats_OnlyCountsSinceJoin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	mustUser(t, db, "2")
	credit(t, db, "2", 7, domain.EntryTaskAdd, "task:before")

	db.InsertTeam(ctx, &domain.Team{ID: "team1", Name: "Pair", LeaderID: "1", InvitationCode: "TX000001"})
	db.AddMember(ctx, "team1", "2")
	credit(t, db, "1", 3, domain.EntryTaskAdd, "task:a")
	credit(t, db, "2", 2, domain.EntryReferAdd, "referral:9:referrer")

	st, err := db.TeamStats(ctx, "team1")
	if err != nil {
		t.Fatal(err)
	}
	if st.MemberCount != 2 {
		t.Errorf("member_count = %d", st.MemberCount)
	}
	if !st.TotalTaskEarnings.Equal(domain.Coins(3)) {
		t.Errorf("task earnings = %s, want 3", st.TotalTaskEarnings)
	}
	if !st.TotalReferralEarnings.Equal(domain.Coins(2)) {
		t.Errorf("referral earnings = %s, want 2", st.TotalReferralEarnings)
	}
}

func TestCompleteChallenge_Once(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	db.InsertTeam(ctx, &domain.Team{ID: "team1", Name: "Solo", LeaderID: "1", InvitationCode: "TX000001"})

	if err := db.CompleteChallenge(ctx, "team1", "full_team", "milestone"); err != nil {
		t.Fatal(err)
	}
	if err := db.CompleteChallenge(ctx, "team1", "full_team", "milestone"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("err = %v, want ErrAlreadyClaimed", err)
	}
}

// ─── Withdrawals ────────────────────────────────────────────────────────────

func TestTransitionWithdrawal_SingleWinner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	w := &domain.Withdrawal{ID: "w1", UserID: "1", Amount: domain.Coins(5), NetAmount: domain.Coins(5), Method: "bkash", Account: "017"}
	if err := db.InsertWithdrawal(ctx, w); err != nil {
		t.Fatal(err)
	}
	if err := db.TransitionWithdrawal(ctx, "w1", domain.WithdrawalPending, domain.WithdrawalRejected, "bad account", "admin"); err != nil {
		t.Fatal(err)
	}
	err := db.TransitionWithdrawal(ctx, "w1", domain.WithdrawalPending, domain.WithdrawalCompleted, "", "admin2")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	got, _ := db.GetWithdrawal(ctx, "w1")
	if got.Status != domain.WithdrawalRejected || got.ProcessedBy != "admin" {
		t.Errorf("withdrawal = %+v", got)
	}
}

func TestWithdrawalSummaryAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	for i, amt := range []float64{5, 10, 2.5} {
		w := &domain.Withdrawal{ID: string(rune('a' + i)), UserID: "1", Amount: domain.Coins(amt),
			NetAmount: domain.Coins(amt), Method: "bkash", Account: "017"}
		if err := db.InsertWithdrawal(ctx, w); err != nil {
			t.Fatal(err)
		}
	}
	page, total, err := db.ListUserWithdrawals(ctx, "1", "", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("total=%d page=%d", total, len(page))
	}
	sum, err := db.WithdrawalSummary(ctx, "1", "")
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalWithdrawals != 3 || !sum.TotalAmount.Equal(domain.Coins(17.5)) {
		t.Errorf("summary = %+v", sum)
	}
	if sum.StatusCounts[domain.WithdrawalPending] != 3 || sum.StatusCounts[domain.WithdrawalCompleted] != 0 {
		t.Errorf("status counts = %v", sum.StatusCounts)
	}
}

// ─── Notifications & Tickets ────────────────────────────────────────────────

func TestNotifications_MarkRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	db.InsertNotification(ctx, &domain.Notification{ID: "n1", UserID: "1", Title: "a", Message: "b", Type: "info"})
	db.InsertNotification(ctx, &domain.Notification{ID: "n2", UserID: "1", Title: "c", Message: "d", Type: "success"})

	unread, _ := db.ListNotifications(ctx, "1", true, 10)
	if len(unread) != 2 {
		t.Fatalf("unread = %d, want 2", len(unread))
	}
	n, err := db.MarkNotificationsRead(ctx, "1")
	if err != nil || n != 2 {
		t.Fatalf("MarkNotificationsRead = %d, %v", n, err)
	}
	unread, _ = db.ListNotifications(ctx, "1", true, 10)
	if len(unread) != 0 {
		t.Errorf("unread after mark = %d", len(unread))
	}
}

func TestDashboard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mustUser(t, db, "1")
	mustUser(t, db, "2")
	db.SetUserStatus(ctx, "2", domain.StatusSuspended, "")
	credit(t, db, "1", 4, domain.EntryTaskAdd, "task:x")
	db.InsertWithdrawal(ctx, &domain.Withdrawal{ID: "w1", UserID: "1", Amount: domain.Coins(3), NetAmount: domain.Coins(3), Method: "bkash", Account: "1"})

	d, err := db.Dashboard(ctx, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalUsers != 2 || d.BannedUsers != 1 || d.ActiveUsers != 1 {
		t.Errorf("users: %+v", d)
	}
	if d.PendingWithdrawals != 1 || !d.PendingWithdrawalAmount.Equal(domain.Coins(3)) {
		t.Errorf("withdrawals: %+v", d)
	}
	if !d.TotalRewardsPaid.Equal(domain.Coins(4)) {
		t.Errorf("rewards paid = %s", d.TotalRewardsPaid)
	}
}
