package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Referral Registration ──────────────────────────────────────────────────
// Sign-up, Telegram login and the explicit register route all land in
// registerReferral, so every entry point pays the same schedule.

// ReferralResult describes a registered referral.
type ReferralResult struct {
	Referral         *domain.Referral
	ReferrerReward   decimal.Decimal
	NewUserBonus     decimal.Decimal
	ReferrerTier     string
	ReferrerTotal    int
	ReferrerEarnings decimal.Decimal
}

func (r *ReferralResult) events() []notify.Event {
	return notify.ReferralSuccess(r.Referral.ReferrerID, r.Referral.ReferredID,
		r.ReferrerReward, r.NewUserBonus, r.ReferrerTotal)
}

// registerReferral links referred to the owner of code and pays both sides.
// The referrer earns their tier bonus as it stood before this referral.
func (s *Service) registerReferral(ctx context.Context, tx *sqlite.Tx, referred *domain.User, code string) (*ReferralResult, error) {
	code = strings.TrimSpace(code)
	referrer, err := tx.GetUserByReferralCode(ctx, code)
	if errors.Is(err, domain.ErrInvalidReferralCode) {
		referrer = nil
	} else if err != nil {
		return nil, err
	}

	already := referred.ReferredByCode != ""
	if !already {
		_, err := tx.GetReferralByReferred(ctx, referred.TelegramID)
		switch {
		case err == nil:
			already = true
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	if d := rewards.CheckReferral(referrer, referred, already); !d.Allowed {
		return nil, s.reject(ctx, "referral", d)
	}

	count, err := tx.CountReferrals(ctx, referrer.TelegramID, time.Time{})
	if err != nil {
		return nil, err
	}
	price := rewards.ReferralRewards(count, s.cfg.Schedule)

	if err := tx.SetReferredBy(ctx, referred.TelegramID, code); err != nil {
		return nil, err
	}
	ref := &domain.Referral{
		ID:           uuid.NewString(),
		ReferrerID:   referrer.TelegramID,
		ReferredID:   referred.TelegramID,
		ReferralCode: code,
		RewardAmount: price.Referrer,
		NewUserBonus: price.NewUser,
	}
	if err := tx.InsertReferral(ctx, ref); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrAlreadyReferred
		}
		return nil, err
	}

	if price.Referrer.IsPositive() {
		if _, _, err := s.ledger.Apply(ctx, tx, domain.Mutation{
			UserID: referrer.TelegramID,
			Delta:  price.Referrer,
			Type:   domain.EntryReferAdd,
			Reason: fmt.Sprintf("Referral bonus for user %s", referred.TelegramID),
			Key:    domain.ReferrerRewardKey(referred.TelegramID),
		}); err != nil {
			return nil, err
		}
	}
	if price.NewUser.IsPositive() {
		if _, _, err := s.ledger.Apply(ctx, tx, domain.Mutation{
			UserID: referred.TelegramID,
			Delta:  price.NewUser,
			Type:   domain.EntryBonusAdd,
			Reason: "Welcome bonus for joining via referral",
			Key:    domain.WelcomeBonusKey(referred.TelegramID),
		}); err != nil {
			return nil, err
		}
	}
	referred.ReferredByCode = code

	earned, err := tx.SumLedger(ctx, referrer.TelegramID, time.Time{}, domain.EntryReferAdd)
	if err != nil {
		return nil, err
	}
	return &ReferralResult{
		Referral:         ref,
		ReferrerReward:   price.Referrer,
		NewUserBonus:     price.NewUser,
		ReferrerTier:     rewards.TierFor(count + 1).Name,
		ReferrerTotal:    count + 1,
		ReferrerEarnings: cents(earned),
	}, nil
}

// RegisterReferral credits an existing user to the owner of code.
func (s *Service) RegisterReferral(ctx context.Context, newUserID, code string) (*ReferralResult, error) {
	if err := requireID("newUserId", newUserID); err != nil {
		return nil, err
	}
	if err := requireID("referralCode", code); err != nil {
		return nil, err
	}
	var res *ReferralResult
	err := s.onLane(ctx, "referral.register", newUserID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			u, err := tx.GetUser(ctx, newUserID)
			if err != nil {
				return err
			}
			res, err = s.registerReferral(ctx, tx, u, code)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(res.events()...)
	return res, nil
}

// TrackResult is the outcome of TrackReferral.
type TrackResult struct {
	Action  string
	Bonus   decimal.Decimal
	Applied bool
}

// Referral tracking actions.
const (
	TrackSignup    = "signup"
	TrackFirstTask = "first_task"
)

// TrackReferral records a referral milestone. signup registers the referral;
// first_task pays the referrer's milestone bonus once the referred user has
// an approved task.
func (s *Service) TrackReferral(ctx context.Context, code, newUserID, action string) (*TrackResult, error) {
	if err := requireID("referrerCode", code); err != nil {
		return nil, err
	}
	if err := requireID("newUserId", newUserID); err != nil {
		return nil, err
	}
	switch action {
	case TrackSignup:
		ref, err := s.RegisterReferral(ctx, newUserID, code)
		if err != nil {
			return nil, err
		}
		return &TrackResult{Action: action, Bonus: ref.ReferrerReward, Applied: true}, nil
	case TrackFirstTask:
		return s.trackFirstTask(ctx, code, newUserID)
	}
	return nil, domain.WithMessage(domain.ErrInvalidAction, "Invalid action")
}

func (s *Service) trackFirstTask(ctx context.Context, code, referredID string) (*TrackResult, error) {
	res := &TrackResult{Action: TrackFirstTask, Bonus: decimal.Zero}
	var events []notify.Event
	err := s.onLane(ctx, "referral.first_task", referredID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			ref, err := tx.GetReferralByReferred(ctx, referredID)
			if errors.Is(err, domain.ErrNotFound) || (err == nil && ref.ReferralCode != code) {
				return domain.ErrInvalidReferralCode
			}
			if err != nil {
				return err
			}
			counts, err := tx.SubmissionCounts(ctx, referredID)
			if err != nil {
				return err
			}
			if counts.Approved == 0 {
				return domain.WithMessage(domain.ErrConflict, "Referred user has not completed a task yet")
			}
			bonus, err := s.applyFirstTaskBonus(ctx, tx, referredID)
			if err != nil {
				return err
			}
			if bonus != nil {
				res.Applied = true
				res.Bonus = bonus.Reward
				events = append(events, notify.FirstTaskBonus(bonus.ReferrerID, referredID, bonus.Reward))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

type firstTaskBonus struct {
	ReferrerID string
	Reward     decimal.Decimal
}

// applyFirstTaskBonus pays the referrer of referredID their milestone bonus.
// It returns nil when the user was not referred, the bonus was paid, or the
// referrer is banned. A banned referrer's bonus stays unpaid and is applied
// by the next approved task after an unban.
func (s *Service) applyFirstTaskBonus(ctx context.Context, tx *sqlite.Tx, referredID string) (*firstTaskBonus, error) {
	reward := domain.Round2(s.cfg.Schedule.FirstTaskBonus)
	if !reward.IsPositive() {
		return nil, nil
	}
	key := domain.FirstTaskBonusKey(referredID)
	if paid, err := tx.HasLedgerKey(ctx, key); err != nil || paid {
		return nil, err
	}
	ref, err := tx.GetReferralByReferred(ctx, referredID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	referrer, err := tx.GetUser(ctx, ref.ReferrerID)
	if err != nil {
		return nil, err
	}
	if referrer.IsBanned() {
		observability.EligibilityRejections.WithLabelValues("first_task_bonus", "referrer_banned").Inc()
		return nil, nil
	}
	_, applied, err := s.ledger.Apply(ctx, tx, domain.Mutation{
		UserID: ref.ReferrerID,
		Delta:  reward,
		Type:   domain.EntryReferAdd,
		Reason: fmt.Sprintf("First task bonus for referral %s", referredID),
		Key:    key,
	})
	if err != nil || !applied {
		return nil, err
	}
	return &firstTaskBonus{ReferrerID: ref.ReferrerID, Reward: reward}, nil
}

// ─── Referral Statistics ────────────────────────────────────────────────────

// ReferralHistoryPoint is one referral in the recent history chart.
type ReferralHistoryPoint struct {
	Date      string          `json:"date"`
	Referrals int             `json:"referrals"`
	Earnings  decimal.Decimal `json:"earnings"`
}

// ReferralDetail describes one referred user.
type ReferralDetail struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	JoinedDays  int             `json:"joinedDays"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
	Earnings    decimal.Decimal `json:"earnings"`
}

// ReferralStats is the referral dashboard of a user.
type ReferralStats struct {
	TotalReferrals   int                    `json:"totalReferrals"`
	ActiveReferrals  int                    `json:"activeReferrals"`
	TotalEarnings    decimal.Decimal        `json:"totalEarnings"`
	MonthlyEarnings  decimal.Decimal        `json:"monthlyEarnings"`
	WeeklyEarnings   decimal.Decimal        `json:"weeklyEarnings"`
	ConversionRate   int                    `json:"conversionRate"`
	CurrentTier      string                 `json:"currentTier"`
	NextTierTarget   *int                   `json:"nextTierTarget"`
	SignupsThisMonth int                    `json:"signupsThisMonth"`
	ReferralHistory  []ReferralHistoryPoint `json:"referralHistory"`
	Referrals        []ReferralDetail       `json:"-"`
}

// ReferralStats aggregates a user's referrals. A referral is active once the
// referred user has earned more than their welcome bonus.
func (s *Service) ReferralStats(ctx context.Context, userID string, includeReferrals bool) (*ReferralStats, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	return timed("referral.stats", func() (*ReferralStats, error) {
		if _, err := s.db.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		rows, err := s.db.ListReferrals(ctx, userID)
		if err != nil {
			return nil, err
		}
		now := s.now()
		total, err := s.db.SumLedger(ctx, userID, time.Time{}, domain.EntryReferAdd)
		if err != nil {
			return nil, err
		}
		monthly, err := s.db.SumLedger(ctx, userID, s.startOfMonth(now), domain.EntryReferAdd)
		if err != nil {
			return nil, err
		}
		weekly, err := s.db.SumLedger(ctx, userID, now.Add(-7*24*time.Hour), domain.EntryReferAdd)
		if err != nil {
			return nil, err
		}

		st := &ReferralStats{
			TotalReferrals:  len(rows),
			TotalEarnings:   cents(total),
			MonthlyEarnings: cents(monthly),
			WeeklyEarnings:  cents(weekly),
			CurrentTier:     rewards.TierFor(len(rows)).Name,
			ReferralHistory: []ReferralHistoryPoint{},
		}
		if next, ok := rewards.NextTier(len(rows)); ok {
			target := next.MinReferrals
			st.NextTierTarget = &target
		}
		monthStart := s.startOfMonth(now)
		for i, r := range rows {
			active := r.ReferredEarnedCents > domain.ToCents(r.NewUserBonus)
			if active {
				st.ActiveReferrals++
			}
			if !r.CreatedAt.Before(monthStart) {
				st.SignupsThisMonth++
			}
			if i < 10 {
				st.ReferralHistory = append(st.ReferralHistory, ReferralHistoryPoint{
					Date: s.day(r.CreatedAt), Referrals: 1, Earnings: r.RewardAmount,
				})
			}
			if includeReferrals {
				status := "inactive"
				if active {
					status = "active"
				}
				st.Referrals = append(st.Referrals, ReferralDetail{
					ID:          r.ID,
					Name:        r.ReferredName,
					Status:      status,
					JoinedDays:  int(now.Sub(r.CreatedAt).Hours() / 24),
					TotalEarned: cents(r.ReferredEarnedCents),
					Earnings:    r.RewardAmount,
				})
			}
		}
		if len(rows) > 0 {
			st.ConversionRate = int(float64(st.ActiveReferrals)/float64(len(rows))*100 + 0.5)
		}
		return st, nil
	})
}

// Leaderboard is the top of the referrer ranking plus the caller's rank.
type Leaderboard struct {
	Entries        []domain.LeaderboardEntry `json:"leaderboard"`
	UserRank       *int                      `json:"userRank"`
	TotalReferrers int                       `json:"totalReferrers"`
}

// ReferralLeaderboard ranks referrers. The user's rank is taken from the
// full ranking, so it is reported even outside the top limit.
func (s *Service) ReferralLeaderboard(ctx context.Context, userID string, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = 10
	}
	return timed("referral.leaderboard", func() (*Leaderboard, error) {
		ranking, err := s.db.ReferrerRanking(ctx)
		if err != nil {
			return nil, err
		}
		lb := &Leaderboard{Entries: []domain.LeaderboardEntry{}, TotalReferrers: len(ranking)}
		for _, e := range ranking {
			if e.UserID == userID {
				rank := e.Rank
				lb.UserRank = &rank
			}
		}
		if len(ranking) > limit {
			ranking = ranking[:limit]
		}
		lb.Entries = append(lb.Entries, ranking...)
		return lb, nil
	})
}

// ─── Tiers ──────────────────────────────────────────────────────────────────

// TierView is a user's tier standing.
type TierView struct {
	Tiers         []domain.Tier        `json:"tiers"`
	CurrentTier   domain.Tier          `json:"current_tier"`
	NextTier      *domain.Tier         `json:"next_tier"`
	Progress      *domain.TierProgress `json:"progress"`
	UserReferrals int                  `json:"user_referrals"`
	TierRewards   TierRewards          `json:"tier_rewards"`
}

// TierRewards is what the current tier pays.
type TierRewards struct {
	PerReferral  decimal.Decimal `json:"per_referral"`
	MonthlyBonus decimal.Decimal `json:"monthly_bonus"`
}

func tierView(count int) *TierView {
	cur := rewards.TierFor(count)
	v := &TierView{
		Tiers:         domain.Tiers(),
		CurrentTier:   cur,
		Progress:      rewards.Progress(count),
		UserReferrals: count,
		TierRewards:   TierRewards{PerReferral: cur.BonusPerReferral, MonthlyBonus: cur.MonthlyBonus},
	}
	if next, ok := rewards.NextTier(count); ok {
		v.NextTier = &next
	}
	return v
}

// Tiers returns the tier table and the user's standing. An empty userID
// returns the table at zero referrals.
func (s *Service) Tiers(ctx context.Context, userID string) (*TierView, error) {
	if userID == "" {
		return tierView(0), nil
	}
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	count, err := s.db.CountReferrals(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	return tierView(count), nil
}

// Tier actions.
const (
	TierClaimMonthly = "claim_monthly_bonus"
	TierUpgrade      = "tier_upgrade"
)

// TierActionResult is the outcome of TierAction.
type TierActionResult struct {
	Action  string          `json:"action"`
	Tier    string          `json:"tier"`
	Reward  decimal.Decimal `json:"reward"`
	Message string          `json:"message"`
	View    *TierView       `json:"-"`
}

// TierAction claims the monthly bonus of the user's tier, once per calendar
// month, or recomputes the tier from referral count.
func (s *Service) TierAction(ctx context.Context, userID, action string) (*TierActionResult, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if action != TierClaimMonthly && action != TierUpgrade {
		return nil, domain.ErrInvalidAction
	}
	res := &TierActionResult{Action: action, Reward: decimal.Zero}
	var events []notify.Event
	err := s.onLane(ctx, "referral.tier_action", userID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			u, err := tx.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			count, err := tx.CountReferrals(ctx, userID, time.Time{})
			if err != nil {
				return err
			}
			tier := rewards.TierFor(count)
			res.Tier = tier.Name
			res.View = tierView(count)

			if action == TierUpgrade {
				res.Message = fmt.Sprintf("Your current tier is %s", tier.Name)
				return nil
			}
			if u.IsBanned() {
				return domain.ErrUserBanned
			}
			bonus := rewards.MonthlyBonus(count)
			if !bonus.IsPositive() {
				return domain.ErrNoMonthlyBonus
			}
			_, applied, err := s.ledger.Apply(ctx, tx, domain.Mutation{
				UserID: userID,
				Delta:  bonus,
				Type:   domain.EntryBonusAdd,
				Reason: fmt.Sprintf("%s tier monthly bonus", tier.Name),
				Key:    domain.MonthlyBonusKey(userID, s.month(s.now())),
			})
			if err != nil {
				return err
			}
			if !applied {
				return domain.ErrAlreadyClaimed
			}
			res.Reward = bonus
			res.Message = fmt.Sprintf("Monthly bonus of %s TakaX coins claimed!", bonus.String())
			events = append(events, notify.MonthlyBonusClaimed(userID, tier.Name, bonus))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}
