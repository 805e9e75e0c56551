// Package notify delivers post-commit notifications: an in-app row for the
// user and a formatted message to the Telegram channel.
//
// Delivery is best effort. The emitter:
//  1. Takes a slot from a bounded semaphore, dropping the event when all are busy
//  2. Persists the in-app notification
//  3. Sends the chat text through the bot
//  4. Logs and counts failures; callers never see them
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
)

// Notification types shown by the Mini App.
const (
	TypeSuccess = "success"
	TypeInfo    = "info"
	TypeWarning = "warning"
)

// Store persists in-app notifications. *sqlite.DB implements it.
type Store interface {
	InsertNotification(ctx context.Context, n *domain.Notification) error
}

// Config controls emitter behavior.
type Config struct {
	MaxConcurrent int           // Maximum deliveries in flight (default: 8)
	Timeout       time.Duration // Per-event delivery timeout (default: 10s)
	ChatID        int64         // Telegram channel for activity messages; 0 disables chat
}

// DefaultConfig returns safe emitter defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 8,
		Timeout:       10 * time.Second,
	}
}

// Event is one thing worth telling somebody about. Either part may be empty.
type Event struct {
	UserID  string // in-app recipient
	Title   string
	Message string
	Type    string
	Chat    string // channel text
}

func (ev Event) inApp() bool { return ev.UserID != "" && ev.Title != "" }

// Emitter fans events out to storage and chat.
type Emitter struct {
	mu        sync.RWMutex
	config    Config
	store     Store
	chat      domain.ChatSender
	log       *logrus.Entry
	sem       chan struct{}
	wg        sync.WaitGroup
	active    int
	delivered int64
	failed    int64
	dropped   int64
}

// New creates an emitter. chat may be nil when no bot is configured.
func New(cfg Config, store Store, chat domain.ChatSender, log *logrus.Entry) *Emitter {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Emitter{
		config: cfg,
		store:  store,
		chat:   chat,
		log:    log.WithField("component", "notify"),
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Emit queues events for delivery and returns immediately.
func (e *Emitter) Emit(events ...Event) {
	for _, ev := range events {
		select {
		case e.sem <- struct{}{}:
		default:
			observability.NotificationsDropped.Inc()
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
			e.log.WithField("user_id", ev.UserID).Warn("notification dropped, emitter at capacity")
			continue
		}
		e.wg.Add(1)
		go e.deliver(ev)
	}
}

// Wait blocks until every queued event has been handled.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) deliver(ev Event) {
	defer e.wg.Done()
	defer func() { <-e.sem }()

	e.mu.Lock()
	e.active++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	// Detached from the request: the response has usually been written.
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
	defer cancel()

	ok := true
	if ev.inApp() {
		n := &domain.Notification{
			ID:      uuid.NewString(),
			UserID:  ev.UserID,
			Title:   ev.Title,
			Message: ev.Message,
			Type:    ev.Type,
		}
		if n.Type == "" {
			n.Type = TypeInfo
		}
		if err := e.store.InsertNotification(ctx, n); err != nil {
			ok = false
			observability.NotificationFailures.WithLabelValues("inapp").Inc()
			e.log.WithError(err).WithField("user_id", ev.UserID).Warn("in-app notification failed")
		} else {
			observability.NotificationsSent.WithLabelValues("inapp").Inc()
		}
	}

	if ev.Chat != "" && e.chat != nil && e.config.ChatID != 0 {
		if err := e.chat.SendMessage(ctx, e.config.ChatID, ev.Chat); err != nil {
			ok = false
			observability.NotificationFailures.WithLabelValues("chat").Inc()
			e.log.WithError(err).Warn("chat notification failed")
		} else {
			observability.NotificationsSent.WithLabelValues("chat").Inc()
		}
	}

	e.mu.Lock()
	if ok {
		e.delivered++
	} else {
		e.failed++
	}
	e.mu.Unlock()
}

// Stats returns emitter statistics.
type Stats struct {
	Active    int   `json:"active"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	MaxSlots  int   `json:"max_slots"`
}

// Stats returns current emitter statistics.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		Active:    e.active,
		Delivered: e.delivered,
		Failed:    e.failed,
		Dropped:   e.dropped,
		MaxSlots:  e.config.MaxConcurrent,
	}
}
