// Package services – PairingService
//
// PairingService implements the invitation protocol: a profile issues a
// single-use token, shares the link, and a profile of the other role redeems
// it. Redemption runs in one transaction so the invitation is only consumed
// when the couple row is written. The partial unique indexes on couples keep
// two racing redemptions from pairing the same profile twice.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/auth"
	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/repo"
)

// DefaultInviteTTL is used when PairingService.TTL is zero.
const DefaultInviteTTL = 7 * 24 * time.Hour

// tokenAttempts bounds retries on the (unlikely) token collision.
const tokenAttempts = 3

// IssuedInvitation is what the sender shares with their partner.
type IssuedInvitation struct {
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationPreview is shown on the invitation landing page.
type InvitationPreview struct {
	SenderName string    `json:"sender_name"`
	SenderRole string    `json:"sender_role"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PairingService issues and redeems invitations.
type PairingService struct {
	DB *gorm.DB
	// Origin is the public app URL used to build invitation links.
	Origin string
	TTL    time.Duration
	Now    func() time.Time
	// NewToken generates invitation tokens. Defaults to 32 url-safe characters.
	NewToken func() (string, error)
}

func (s *PairingService) token() (string, error) {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return auth.RandomString(domain.InvitationTokenLength, auth.URLSafeAlphabet)
}

// Issue creates an invitation for senderID. Senders already in an active
// couple are rejected with ErrAlreadyPaired.
func (s *PairingService) Issue(ctx context.Context, senderID string) (*IssuedInvitation, error) {
	tr := otel.Tracer("services/PairingService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(attribute.String("profile.id", senderID)),
	)
	defer span.End()

	if _, err := loadProfile(ctx, s.DB, senderID); err != nil {
		return nil, err
	}
	paired, err := repo.HasActiveCouple(ctx, s.DB, senderID)
	if err != nil {
		return nil, err
	}
	if paired {
		return nil, ErrAlreadyPaired
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	now := clock(s.Now)

	for attempt := 1; ; attempt++ {
		tok, err := s.token()
		if err != nil {
			return nil, err
		}
		inv := domain.NewInvitation(senderID, tok, now, ttl)
		err = repo.CreateInvitation(ctx, s.DB, inv)
		if err == nil {
			return &IssuedInvitation{Token: inv.Token, Link: inv.Link(s.Origin), ExpiresAt: inv.ExpiresAt}, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) || attempt == tokenAttempts {
			return nil, err
		}
	}
}

// Preview describes an unused invitation. Expired invitations yield
// ErrInvitationExpired so the landing page can say so.
func (s *PairingService) Preview(ctx context.Context, token string) (*InvitationPreview, error) {
	tr := otel.Tracer("services/PairingService")
	ctx, span := tr.Start(ctx, "Preview")
	defer span.End()

	inv, err := repo.GetUnusedInvitation(ctx, s.DB, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	if inv.Expired(clock(s.Now)) {
		return nil, ErrInvitationExpired
	}
	sender, err := loadProfile(ctx, s.DB, inv.SenderID)
	if err != nil {
		return nil, err
	}
	return &InvitationPreview{SenderName: sender.DisplayName, SenderRole: sender.Role, ExpiresAt: inv.ExpiresAt}, nil
}

// Redeem pairs redeemerID with the invitation's sender.
//
// Checks, in order:
//   - the token exists and is unused, else ErrInvitationNotFound;
//   - now is not after the expiry, else ErrInvitationExpired;
//   - the redeemer is not the sender and has the other role, else ErrIncompatibleRoles;
//   - neither side is in an active couple, else ErrAlreadyPaired.
//
// The invitation is then marked used and the couple inserted, atomically.
func (s *PairingService) Redeem(ctx context.Context, token, redeemerID string) (*domain.Couple, error) {
	tr := otel.Tracer("services/PairingService")
	ctx, span := tr.Start(ctx, "Redeem",
		trace.WithAttributes(attribute.String("profile.id", redeemerID)),
	)
	defer span.End()

	now := clock(s.Now)
	var couple *domain.Couple
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := repo.GetUnusedInvitation(ctx, tx, token)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return err
		}
		if inv.Expired(now) {
			return ErrInvitationExpired
		}
		if inv.SenderID == redeemerID {
			return ErrIncompatibleRoles
		}

		sender, err := loadProfile(ctx, tx, inv.SenderID)
		if err != nil {
			return err
		}
		redeemer, err := loadProfile(ctx, tx, redeemerID)
		if err != nil {
			return err
		}
		c, err := domain.NewCouple(sender, redeemer)
		if err != nil {
			return ErrIncompatibleRoles
		}

		for _, id := range []string{sender.ID, redeemer.ID} {
			paired, err := repo.HasActiveCouple(ctx, tx, id)
			if err != nil {
				return err
			}
			if paired {
				return ErrAlreadyPaired
			}
		}

		if err := repo.MarkInvitationUsed(ctx, tx, inv.ID, redeemerID, now); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvitationNotFound
			}
			return err
		}
		c.CreatedAt = now
		if err := repo.CreateCouple(ctx, tx, c); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyPaired
			}
			return err
		}
		couple = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return couple, nil
}
