// Package service orchestrates every TakaX operation.
//
// Each earning action follows the same path:
//  1. Load the facts it depends on
//  2. Ask the eligibility evaluator (reject fast)
//  3. Price it with the reward calculator
//  4. Write the action row and its ledger entry in one transaction
//  5. Emit notifications after commit
//
// Commands that touch a user's balance run on that user's serializer lane.
// A lane never calls back into the serializer, so helpers below take an
// open *sqlite.Tx instead of starting their own work.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
	"github.com/takax-network/takax/internal/infra/telegram"
)

// Notifier delivers events after a commit. *notify.Emitter implements it.
type Notifier interface {
	Emit(events ...notify.Event)
}

type discardNotifier struct{}

func (discardNotifier) Emit(...notify.Event) {}

// Config carries the business settings that are not hardcoded rules.
type Config struct {
	Location     *time.Location // daily windows
	Schedule     domain.ReferralSchedule
	Withdrawals  rewards.WithdrawalPolicy
	FeePercent   decimal.Decimal
	ActiveWindow time.Duration // dashboard "active users"
	BotUsername  string        // invite links; empty disables them
}

// DefaultConfig returns the settings used by tests and a bare install.
func DefaultConfig() Config {
	return Config{
		Location: time.UTC,
		Schedule: domain.DefaultReferralSchedule(),
		Withdrawals: rewards.WithdrawalPolicy{
			Minimum: domain.Coins(1.0),
			Methods: []string{"bkash", "nagad", "rocket", "bank"},
		},
		FeePercent:   decimal.Zero,
		ActiveWindow: 30 * 24 * time.Hour,
	}
}

// Deps are the collaborators a Service needs.
type Deps struct {
	DB       *sqlite.DB
	Serial   domain.Serializer
	Notifier Notifier
	InitData *telegram.Validator
	Log      *logrus.Entry
}

// Service implements every user and admin operation.
type Service struct {
	cfg      Config
	db       *sqlite.DB
	serial   domain.Serializer
	ledger   *rewards.Ledger
	notify   Notifier
	initData *telegram.Validator
	log      *logrus.Entry
	now      func() time.Time
}

// New creates a Service.
func New(cfg Config, d Deps) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	n := d.Notifier
	if n == nil {
		n = discardNotifier{}
	}
	return &Service{
		cfg:      cfg,
		db:       d.DB,
		serial:   d.Serial,
		ledger:   rewards.NewLedger(d.Log),
		notify:   n,
		initData: d.InitData,
		log:      d.Log,
		now:      time.Now,
	}
}

// Ledger exposes the ledger mutator for reconciliation.
func (s *Service) Ledger() *rewards.Ledger { return s.ledger }

// ─── Lanes & Timing ─────────────────────────────────────────────────────────

func userLane(id string) string { return "user:" + id }

// onLane runs fn on the user's serializer lane and times it as op.
func (s *Service) onLane(ctx context.Context, op, userID string, fn func(ctx context.Context) error) error {
	timer := observability.StartOp(op)
	ctx = observability.WithUserID(ctx, userID)
	err := s.serial.Do(ctx, userLane(userID), fn)
	timer.End(err)
	return err
}

// timed times a read or admin operation that needs no lane.
func timed[T any](op string, fn func() (T, error)) (T, error) {
	timer := observability.StartOp(op)
	v, err := fn()
	timer.End(err)
	return v, err
}

// reject counts a denied decision and returns its error.
func (s *Service) reject(ctx context.Context, action string, d rewards.Decision) error {
	observability.EligibilityRejections.WithLabelValues(action, d.Reason).Inc()
	observability.Entry(ctx, s.log).WithFields(logrus.Fields{"action": action, "reason": d.Reason}).
		Debug("eligibility denied")
	return d.Err
}

// ─── Calendar ───────────────────────────────────────────────────────────────
// Daily limits, streaks and "today" totals use the configured timezone.

func (s *Service) local(t time.Time) time.Time { return t.In(s.cfg.Location) }

func (s *Service) day(t time.Time) string { return s.local(t).Format(time.DateOnly) }

func (s *Service) startOfDay(t time.Time) time.Time {
	l := s.local(t)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// startOfWeek is the most recent Monday.
func (s *Service) startOfWeek(t time.Time) time.Time {
	d := s.startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func (s *Service) startOfMonth(t time.Time) time.Time {
	l := s.local(t)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, s.cfg.Location)
}

func (s *Service) month(t time.Time) string { return s.local(t).Format("2006-01") }

// weekPeriod names the ISO week, e.g. "2026-W42".
func (s *Service) weekPeriod(t time.Time) string {
	y, w := s.local(t).ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// ─── Shared Helpers ─────────────────────────────────────────────────────────

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}

func cents(c int64) decimal.Decimal { return domain.FromCents(c) }
