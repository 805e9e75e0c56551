package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Support ────────────────────────────────────────────────────────────────

// SubmitTicket opens a general, medium priority support ticket.
func (s *Service) SubmitTicket(ctx context.Context, userID, subject, message, image string) (*domain.SupportTicket, error) {
	subject, message = strings.TrimSpace(subject), strings.TrimSpace(message)
	if userID == "" || subject == "" || message == "" {
		return nil, domain.WithMessage(domain.ErrValidation, "Missing required fields")
	}
	t := &domain.SupportTicket{
		ID:       uuid.NewString(),
		UserID:   userID,
		Subject:  subject,
		Message:  message,
		Image:    image,
		Category: "general",
		Priority: "medium",
		Status:   "pending",
	}
	if err := s.db.InsertTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTickets returns a user's tickets, newest first.
func (s *Service) ListTickets(ctx context.Context, userID string) ([]domain.SupportTicket, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	list, err := s.db.ListTickets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.SupportTicket{}
	}
	return list, nil
}
