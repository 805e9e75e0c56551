package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/app/rewards"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Ads ────────────────────────────────────────────────────────────────────

// AdViewRequest reports one watched ad.
type AdViewRequest struct {
	UserID          string
	AdID            string // empty means the default ad
	Duration        int    // seconds watched
	Completed       bool
	WatchPercentage int
}

// AdViewResult is the outcome of RecordAdView.
type AdViewResult struct {
	View      *domain.AdView
	Reward    decimal.Decimal
	Message   string
	Remaining int // rewarded views left today
}

// RecordAdView appends a view and credits its reward. Views below half
// watched are still recorded and count toward the daily limit.
func (s *Service) RecordAdView(ctx context.Context, req AdViewRequest) (*AdViewResult, error) {
	if err := requireID("userId", req.UserID); err != nil {
		return nil, err
	}
	if req.WatchPercentage < 0 || req.WatchPercentage > 100 || req.Duration < 0 {
		return nil, domain.WithMessage(domain.ErrValidation, "watchPercentage must be 0-100 and duration non-negative")
	}
	if req.AdID == "" {
		req.AdID = domain.DefaultAd().ID
	}

	var res *AdViewResult
	var events []notify.Event
	err := s.onLane(ctx, "ad.view", req.UserID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			ad, err := tx.GetAd(ctx, req.AdID)
			if err != nil {
				return err
			}
			user, err := tx.GetUser(ctx, req.UserID)
			if err != nil {
				return err
			}
			now := s.now()
			day := s.day(now)
			n, err := tx.CountAdViewsOnDay(ctx, req.UserID, ad.ID, day)
			if err != nil {
				return err
			}
			if d := rewards.CheckAd(user, ad, n); !d.Allowed {
				return s.reject(ctx, "ad", d)
			}

			reward := rewards.AdReward(ad, req.Completed, req.WatchPercentage)
			view := &domain.AdView{
				ID:                   uuid.NewString(),
				UserID:               req.UserID,
				AdID:                 ad.ID,
				Day:                  day,
				Seq:                  n + 1,
				DurationWatched:      req.Duration,
				CompletionPercentage: req.WatchPercentage,
				RewardEarned:         reward,
				CreatedAt:            now,
			}
			if err := tx.InsertAdView(ctx, view); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return domain.WithMessage(domain.ErrDailyLimit, "Daily ad limit reached")
				}
				return err
			}

			res = &AdViewResult{View: view, Reward: reward, Remaining: ad.DailyLimit - view.Seq}
			switch {
			case reward.Equal(domain.Round2(ad.RewardBase)) && reward.IsPositive():
				res.Message = "Ad completed successfully!"
			case reward.IsPositive():
				res.Message = "Partial reward for viewing"
			default:
				res.Message = "Ad view recorded"
				return nil
			}

			if _, _, err := s.ledger.Apply(ctx, tx, domain.Mutation{
				UserID: req.UserID,
				Delta:  reward,
				Type:   domain.EntryAdAdd,
				Reason: fmt.Sprintf("Watched ad: %s", ad.Title),
				Key:    domain.AdRewardKey(view.ID),
			}); err != nil {
				return err
			}
			events = append(events, notify.AdCompleted(req.UserID, ad, reward, req.Duration))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

// ListAds returns the active placements.
func (s *Service) ListAds(ctx context.Context) ([]domain.Ad, error) {
	return s.db.ListAds(ctx, true)
}

// AllAds returns every placement for the admin panel.
func (s *Service) AllAds(ctx context.Context) ([]domain.Ad, error) {
	return s.db.ListAds(ctx, false)
}

// AdInput configures a new ad.
type AdInput struct {
	Title              string
	RewardBase         decimal.Decimal
	DailyLimit         int
	MinWatchPercentage int
}

// CreateAd adds an active placement.
func (s *Service) CreateAd(ctx context.Context, adminID string, in AdInput) (*domain.Ad, error) {
	ad := &domain.Ad{
		ID:                 uuid.NewString(),
		Title:              strings.TrimSpace(in.Title),
		RewardBase:         domain.Round2(in.RewardBase),
		DailyLimit:         in.DailyLimit,
		MinWatchPercentage: in.MinWatchPercentage,
		IsActive:           true,
	}
	if ad.Title == "" {
		return nil, domain.WithMessage(domain.ErrValidation, "Ad title is required")
	}
	if err := domain.ValidateReward(ad.RewardBase); err != nil {
		return nil, err
	}
	if ad.DailyLimit < 1 || ad.MinWatchPercentage < 1 || ad.MinWatchPercentage > 100 {
		return nil, domain.WithMessage(domain.ErrValidation, "daily_limit must be positive and min_watch_percentage 1-100")
	}
	err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.CreateAd(ctx, ad); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, adminID, "ad_management", fmt.Sprintf("created ad %s (%s)", ad.ID, ad.Title))
	})
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// SetAdActive enables or disables a placement.
func (s *Service) SetAdActive(ctx context.Context, adminID, adID string, active bool) error {
	return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.SetAdActive(ctx, adID, active); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, adminID, "ad_management", fmt.Sprintf("set ad %s active=%t", adID, active))
	})
}
