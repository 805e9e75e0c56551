package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/app/notify"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Authentication ─────────────────────────────────────────────────────────

// Start parameter prefixes carried by Mini App deep links.
const (
	startParamReferral = "ref_"
	startParamTeam     = "team_"
)

// Profile is the Telegram identity of a user signing in.
type Profile struct {
	TelegramID string
	Username   string
	FirstName  string
	LastName   string
}

// InitRequest creates or fetches a user.
type InitRequest struct {
	Profile
	ReferralCode   string // optional custom code for a new user
	ReferredByCode string
}

// InitResult is the outcome of InitUser.
type InitResult struct {
	User          *domain.User
	ReferralBonus decimal.Decimal
	IsNewUser     bool
	Message       string
}

// InitUser returns the existing user or creates one. A new user with a
// valid referred_by_code is registered as a referral; a failed referral
// never fails the sign-up.
func (s *Service) InitUser(ctx context.Context, req InitRequest) (*InitResult, error) {
	if err := requireID("telegram_id", req.TelegramID); err != nil {
		return nil, err
	}
	var res *InitResult
	var events []notify.Event
	err := s.onLane(ctx, "auth.init", req.TelegramID, func(ctx context.Context) error {
		u, err := s.db.GetUser(ctx, req.TelegramID)
		if err == nil {
			res = &InitResult{User: u, ReferralBonus: decimal.Zero, Message: "Welcome back to TakaX!"}
			return nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}

		u, err = s.createUser(ctx, req.Profile, req.ReferralCode)
		if err != nil {
			return err
		}
		res = &InitResult{User: u, ReferralBonus: decimal.Zero, IsNewUser: true, Message: "Welcome to TakaX!"}

		if code := strings.TrimSpace(req.ReferredByCode); code != "" {
			ref, evs := s.referOnSignup(ctx, u, code)
			if ref != nil {
				res.ReferralBonus = ref.NewUserBonus
				res.Message = "Welcome! You received " + ref.NewUserBonus.String() + " TakaX coins from referral."
				events = evs
			}
			if res.User, err = s.db.GetUser(ctx, u.TelegramID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

// createUser inserts a user, falling back to a random referral code when
// the derived one is already taken.
func (s *Service) createUser(ctx context.Context, p Profile, code string) (*domain.User, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		username = "takax_user" + tail(p.TelegramID, 3)
	}
	if code == "" {
		code = domain.DefaultReferralCode(p.TelegramID)
	}
	u := &domain.User{
		TelegramID:   p.TelegramID,
		Username:     username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		ReferralCode: code,
	}
	err := s.db.CreateUser(ctx, u)
	if errors.Is(err, domain.ErrDuplicate) {
		// Either the user raced us in or the code collides.
		if existing, gerr := s.db.GetUser(ctx, p.TelegramID); gerr == nil {
			return existing, nil
		}
		u.ReferralCode = "TAKAX" + strings.ToUpper(uuid.NewString()[:8])
		err = s.db.CreateUser(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	observability.Entry(ctx, s.log).WithField("referral_code", u.ReferralCode).Info("user created")
	return u, nil
}

// referOnSignup registers a referral for a freshly created user and logs
// instead of failing.
func (s *Service) referOnSignup(ctx context.Context, u *domain.User, code string) (*ReferralResult, []notify.Event) {
	var ref *ReferralResult
	err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		ref, err = s.registerReferral(ctx, tx, u, code)
		return err
	})
	if err != nil {
		observability.Entry(ctx, s.log).WithError(err).WithField("code", code).Warn("referral on signup skipped")
		return nil, nil
	}
	return ref, ref.events()
}

func tail(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

// ─── Telegram Login ─────────────────────────────────────────────────────────

// ErrBotNotConfigured is returned by TelegramLogin when no bot token is set.
var ErrBotNotConfigured = errors.New("Bot token not configured")

// LoginResult is the outcome of TelegramLogin.
type LoginResult struct {
	User      *domain.User
	Stats     *domain.UserStats
	IsNewUser bool
	Referral  *ReferralResult
	Team      *domain.Team
}

// TelegramLogin verifies Mini App initData, upserts the profile and applies
// a ref_<code> or team_<code> start parameter for new users.
func (s *Service) TelegramLogin(ctx context.Context, initData, startParam string) (*LoginResult, error) {
	if !s.initData.Configured() {
		return nil, ErrBotNotConfigured
	}
	data, err := s.initData.Parse(initData)
	if err != nil {
		return nil, err
	}
	if startParam == "" {
		startParam = data.StartParam
	}
	p := Profile{
		TelegramID: data.User.TelegramID(),
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
	}

	res := &LoginResult{}
	var events []notify.Event
	err = s.onLane(ctx, "auth.telegram", p.TelegramID, func(ctx context.Context) error {
		u, err := s.db.GetUser(ctx, p.TelegramID)
		switch {
		case err == nil:
			username := p.Username
			if username == "" {
				username = u.Username
			}
			if err := s.db.UpdateProfile(ctx, u.TelegramID, username, p.FirstName, p.LastName); err != nil {
				return err
			}
		case errors.Is(err, domain.ErrUserNotFound):
			if u, err = s.createUser(ctx, p, ""); err != nil {
				return err
			}
			res.IsNewUser = true
			events = append(events, s.applyStartParam(ctx, u, startParam, res)...)
		default:
			return err
		}

		if res.User, err = s.db.GetUser(ctx, p.TelegramID); err != nil {
			return err
		}
		res.Stats, err = s.userStats(ctx, res.User)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.Emit(events...)
	return res, nil
}

// applyStartParam handles the deep-link payload of a new user. Failures are
// logged; the login itself still succeeds.
func (s *Service) applyStartParam(ctx context.Context, u *domain.User, param string, res *LoginResult) []notify.Event {
	log := observability.Entry(ctx, s.log).WithField("start_param", param)
	switch {
	case strings.HasPrefix(param, startParamReferral):
		ref, events := s.referOnSignup(ctx, u, strings.TrimPrefix(param, startParamReferral))
		res.Referral = ref
		return events
	case strings.HasPrefix(param, startParamTeam):
		var team *domain.Team
		err := s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			var err error
			team, err = s.joinTeam(ctx, tx, u.TelegramID, strings.TrimPrefix(param, startParamTeam))
			return err
		})
		if err != nil {
			log.WithError(err).Warn("team join from start param skipped")
			return nil
		}
		res.Team = team
		return notify.TeamJoined(team, u.TelegramID)
	case param != "":
		log.WithFields(logrus.Fields{"user_id": u.TelegramID}).Debug("unknown start param ignored")
	}
	return nil
}
