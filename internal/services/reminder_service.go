package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/notify"
	"github.com/tbourn/couple-checkin/internal/repo"
)

// ReminderRequest names the partner to nudge. The display names are what the
// client shows; blank names fall back to the stored profiles.
type ReminderRequest struct {
	PartnerProfileID string
	SenderName       string
	PartnerName      string
}

// ReminderResult mirrors the dispatcher response.
type ReminderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReminderService emails a check-in reminder to the caller's partner.
type ReminderService struct {
	DB     *gorm.DB
	Mailer notify.Mailer
}

// Send looks up the partner's email and delivers the reminder. The partner
// must be the caller's active partner.
func (s *ReminderService) Send(ctx context.Context, senderID string, req ReminderRequest) (*ReminderResult, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("profile.id", senderID),
			attribute.String("partner.id", req.PartnerProfileID),
		),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, senderID)
	if errors.Is(err, ErrNoActiveCouple) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if partnerID, _ := c.PartnerOf(senderID); req.PartnerProfileID == "" || partnerID != req.PartnerProfileID {
		return nil, ErrForbidden
	}

	sender, err := loadProfile(ctx, s.DB, senderID)
	if err != nil {
		return nil, err
	}
	partner, err := loadProfile(ctx, s.DB, req.PartnerProfileID)
	if err != nil {
		return nil, err
	}
	acct, err := repo.GetAccount(ctx, s.DB, partner.AuthID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	senderName, partnerName := req.SenderName, req.PartnerName
	if senderName == "" {
		senderName = sender.DisplayName
	}
	if partnerName == "" {
		partnerName = partner.DisplayName
	}
	email := notify.Reminder(acct.Email, partner.Locale, senderName, partnerName)
	if err := s.Mailer.Send(ctx, email); err != nil {
		return nil, err
	}
	return &ReminderResult{Success: true, Message: "reminder sent to " + partner.DisplayName}, nil
}
