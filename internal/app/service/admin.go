package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
	"github.com/takax-network/takax/internal/infra/sqlite"
)

// ─── Admin: Users ───────────────────────────────────────────────────────────

// UserPage is one page of the admin user list.
type UserPage struct {
	Users []domain.User `json:"users"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListUsers pages through users matching search and status ("all" or empty
// means any status). Pages start at 1.
func (s *Service) ListUsers(ctx context.Context, page, limit int, search, status string) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	f := sqlite.UserFilter{Search: strings.TrimSpace(search), Limit: limit, Offset: (page - 1) * limit}
	if status != "" && status != "all" {
		f.Status = domain.AccountStatus(status)
	}
	users, total, err := s.db.ListUsers(ctx, f)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

// SetUserStatus bans, unbans or suspends a user and records the action.
func (s *Service) SetUserStatus(ctx context.Context, adminID, userID, action, reason string) (string, error) {
	if userID == "" || action == "" {
		return "", domain.WithMessage(domain.ErrValidation, "Missing required fields")
	}
	status, err := domain.UserAction(action).StatusFor()
	if err != nil {
		return "", err
	}
	err = s.onLane(ctx, "admin.user_status", userID, func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
			if err := tx.SetUserStatus(ctx, userID, status, reason); err != nil {
				return err
			}
			return tx.LogAdminAction(ctx, adminID, "user_management",
				fmt.Sprintf("%s user %s: %s", action, userID, reason))
		})
	})
	if err != nil {
		return "", err
	}
	observability.Entry(ctx, s.log).WithFields(logrus.Fields{
		"admin_id": adminID,
		"action":   action,
		"status":   status,
	}).Info("user status changed")
	return fmt.Sprintf("User %s successfully", action), nil
}

// SetTeamBanned bans or restores a team. Banned teams accept no members,
// invites or challenge actions.
func (s *Service) SetTeamBanned(ctx context.Context, adminID, teamID string, banned bool) error {
	return s.db.InTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.SetTeamBanned(ctx, teamID, banned); err != nil {
			return err
		}
		return tx.LogAdminAction(ctx, adminID, "team_management", fmt.Sprintf("set team %s banned=%t", teamID, banned))
	})
}

// ─── Admin: Overview ────────────────────────────────────────────────────────

// Dashboard returns the admin counters. Users with any ledger activity
// inside the active window count as active.
func (s *Service) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	return timed("admin.dashboard", func() (*domain.Dashboard, error) {
		return s.db.Dashboard(ctx, s.now().Add(-s.cfg.ActiveWindow))
	})
}

// AdminActions returns the most recent audit log rows.
func (s *Service) AdminActions(ctx context.Context, limit int) ([]domain.AdminAction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.ListAdminActions(ctx, limit)
}
