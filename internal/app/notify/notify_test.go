package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/domain"
)

type memStore struct {
	mu   sync.Mutex
	rows []domain.Notification
	err  error
}

func (m *memStore) InsertNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type chatRecorder struct {
	mu    sync.Mutex
	texts []string
	chat  int64
	err   error
	block chan struct{}
}

func (c *chatRecorder) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chat = chatID
	c.texts = append(c.texts, text)
	return c.err
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// ─── Config Tests ───────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestNew_FillsZeroConfig(t *testing.T) {
	e := New(Config{}, &memStore{}, nil, testLog())
	if e.Stats().MaxSlots != 8 {
		t.Errorf("MaxSlots = %d, want 8", e.Stats().MaxSlots)
	}
}

// ─── Delivery Tests ─────────────────────────────────────────────────────────

func TestEmit_PersistsAndSends(t *testing.T) {
	store := &memStore{}
	chat := &chatRecorder{}
	e := New(Config{MaxConcurrent: 2, Timeout: time.Second, ChatID: -100123}, store, chat, testLog())

	task := &domain.Task{Title: "Visit site", TaskType: domain.TaskWebsiteVisit}
	e.Emit(TaskCompleted("42", task, domain.Coins(2.5)))
	e.Wait()

	if store.len() != 1 {
		t.Fatalf("stored %d notifications, want 1", store.len())
	}
	n := store.rows[0]
	if n.UserID != "42" || n.Type != TypeSuccess || n.ID == "" {
		t.Errorf("notification = %+v", n)
	}
	if chat.chat != -100123 {
		t.Errorf("chat id = %d", chat.chat)
	}
	if len(chat.texts) != 1 || !strings.Contains(chat.texts[0], "#TaskCompleted") {
		t.Errorf("chat texts = %v", chat.texts)
	}
	if s := e.Stats(); s.Delivered != 1 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestEmit_NoChatWithoutChannel(t *testing.T) {
	chat := &chatRecorder{}
	e := New(Config{MaxConcurrent: 1, Timeout: time.Second}, &memStore{}, chat, testLog())
	e.Emit(MemberLeft(&domain.Team{Name: "Alpha"}, "7"))
	e.Wait()
	if len(chat.texts) != 0 {
		t.Errorf("sent %d chat messages with ChatID 0", len(chat.texts))
	}
}

func TestEmit_FailuresAreCounted(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	chat := &chatRecorder{err: errors.New("bot blocked")}
	e := New(Config{MaxConcurrent: 1, Timeout: time.Second, ChatID: 1}, store, chat, testLog())

	e.Emit(TaskSubmitted("1", &domain.Task{Title: "Survey"}))
	e.Wait()

	if s := e.Stats(); s.Failed != 1 || s.Delivered != 0 {
		t.Errorf("stats = %+v, want one failure", s)
	}
}

func TestEmit_DropsAtCapacity(t *testing.T) {
	chat := &chatRecorder{block: make(chan struct{})}
	e := New(Config{MaxConcurrent: 1, Timeout: 5 * time.Second, ChatID: 1}, &memStore{}, chat, testLog())

	e.Emit(Event{Chat: "first"})
	e.Emit(Event{Chat: "second"})
	close(chat.block)
	e.Wait()

	s := e.Stats()
	if s.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", s.Dropped)
	}
	if len(chat.texts) != 1 || chat.texts[0] != "first" {
		t.Errorf("texts = %v", chat.texts)
	}
}

// ─── Message Tests ──────────────────────────────────────────────────────────

func TestAdCompleted_ChatOnlyForLargeRewards(t *testing.T) {
	ad := &domain.Ad{Title: "Game"}
	if ev := AdCompleted("1", ad, domain.Coins(2.5), 20); ev.Chat != "" {
		t.Errorf("small reward announced: %q", ev.Chat)
	}
	ev := AdCompleted("1", ad, domain.Coins(5), 30)
	if !strings.Contains(ev.Chat, "Watch time: 30s") {
		t.Errorf("chat = %q", ev.Chat)
	}
}

func TestReferralSuccess(t *testing.T) {
	events := ReferralSuccess("100", "200", domain.Coins(2), domain.Coins(1), 3)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !strings.Contains(events[0].Chat, "Total referrals: 3") {
		t.Errorf("chat = %q", events[0].Chat)
	}
	if events[1].UserID != "200" || events[1].Title != "Welcome Bonus!" {
		t.Errorf("welcome = %+v", events[1])
	}
	if got := ReferralSuccess("100", "200", domain.Coins(2), domain.Coins(0), 1); len(got) != 1 {
		t.Errorf("zero welcome produced %d events", len(got))
	}
}

func TestWithdrawalReviewed(t *testing.T) {
	w := &domain.Withdrawal{UserID: "5", Amount: domain.Coins(10), Status: domain.WithdrawalRejected}
	ev := WithdrawalReviewed(w, "rejected", "")
	if !strings.HasSuffix(ev.Message, "Please contact support for details.") {
		t.Errorf("message = %q", ev.Message)
	}
	if ev.Type != TypeWarning {
		t.Errorf("type = %q", ev.Type)
	}

	w.Status = domain.WithdrawalCompleted
	ev = WithdrawalReviewed(w, "approved", "")
	if ev.Message != "Your withdrawal of $10.00 has been approved and processed." {
		t.Errorf("message = %q", ev.Message)
	}
}

func TestChallengeCompleted_OneEventPerMember(t *testing.T) {
	events := ChallengeCompleted("full_team", "t1", domain.Coins(50), domain.Coins(12.5), []string{"a", "b", "c", "d"})
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if events[0].UserID != "" || !strings.Contains(events[0].Chat, "Reward: 50 coins") {
		t.Errorf("announcement = %+v", events[0])
	}
}
