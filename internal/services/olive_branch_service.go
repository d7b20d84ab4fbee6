// Package services – OliveBranchService
//
// An olive branch is a short reconciliation note sent from one partner to the
// other. The couple and recipient are derived from the sender's active
// couple; a caller that names a different couple or recipient is rejected.
// Dictated notes may reference an archived voice clip by key.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/storage"
)

// OliveBranchInput is the send request. CoupleID and RecipientID are
// optional; when set they must match the sender's active couple.
type OliveBranchInput struct {
	CoupleID    string
	RecipientID string
	Message     string
	AudioKey    *string
}

// OliveBranchView is a stored message with an optional playback URL.
type OliveBranchView struct {
	domain.OliveBranchMessage
	AudioURL string `json:"audio_url,omitempty"`
}

// OliveBranchService implements the reconciliation messenger.
type OliveBranchService struct {
	DB     *gorm.DB
	Events events.Publisher
	// Audio presigns clip URLs on List. Nil disables audio_url.
	Audio storage.AudioStore
	Now   func() time.Time
}

// Send stores a message from senderID to their active partner.
func (s *OliveBranchService) Send(ctx context.Context, senderID string, in OliveBranchInput) (*domain.OliveBranchMessage, error) {
	tr := otel.Tracer("services/OliveBranchService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("profile.id", senderID),
			attribute.Bool("audio", in.AudioKey != nil),
		),
	)
	defer span.End()

	if _, err := domain.ValidateMessage(in.Message); err != nil {
		return nil, err
	}
	c, err := activeCouple(ctx, s.DB, senderID)
	if errors.Is(err, ErrNoActiveCouple) {
		return nil, ErrNotPartner
	}
	if err != nil {
		return nil, err
	}
	if in.CoupleID != "" && in.CoupleID != c.ID {
		return nil, ErrNotPartner
	}
	m, err := domain.NewOliveBranch(c, senderID, in.Message, in.AudioKey)
	if err != nil {
		return nil, err
	}
	if in.RecipientID != "" && in.RecipientID != m.RecipientID {
		return nil, ErrNotPartner
	}
	m.CreatedAt = clock(s.Now)

	if err := repo.CreateOliveBranch(ctx, s.DB, m); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.SubjectOliveBranchSent, events.OliveBranchSent{
		MessageID:   m.ID,
		CoupleID:    m.CoupleID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		HasAudio:    m.AudioKey != nil,
		CreatedAt:   m.CreatedAt,
	})
	return m, nil
}

// Get returns one message of the caller's active couple.
func (s *OliveBranchService) Get(ctx context.Context, profileID, messageID string) (*domain.OliveBranchMessage, error) {
	m, err := repo.GetOliveBranch(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.SenderID != profileID && m.RecipientID != profileID {
		return nil, ErrForbidden
	}
	return m, nil
}

// List returns a page of the active couple's messages, newest first.
func (s *OliveBranchService) List(ctx context.Context, profileID string, page, pageSize int) ([]OliveBranchView, int64, error) {
	tr := otel.Tracer("services/OliveBranchService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("profile.id", profileID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountOliveBranches(ctx, s.DB, c.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []OliveBranchView{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListOliveBranchesPage(ctx, s.DB, c.ID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OliveBranchView, 0, len(items))
	for _, m := range items {
		v := OliveBranchView{OliveBranchMessage: m}
		if s.Audio != nil && m.AudioKey != nil {
			url, err := s.Audio.PresignGet(ctx, *m.AudioKey)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("message_id", m.ID).Msg("presign audio failed")
			} else {
				v.AudioURL = url
			}
		}
		out = append(out, v)
	}
	return out, total, nil
}

// Stats returns the message count and newest created_at of the caller's
// active couple. It backs the list ETag.
func (s *OliveBranchService) Stats(ctx context.Context, profileID string) (int64, *time.Time, error) {
	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return 0, nil, err
	}
	return repo.OliveBranchStats(ctx, s.DB, c.ID)
}
