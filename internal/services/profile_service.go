// Package services – ProfileService and CoupleService
//
// ProfileService owns account signup and login, token issuance, and the
// mutable profile settings. CoupleService exposes the caller's active couple
// and lets either partner end it. Couples are never deleted; deactivation
// keeps the row for history.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/auth"
	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/i18n"
	"github.com/tbourn/couple-checkin/internal/repo"
)

// SignupInput carries the signup form.
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
	Timezone    string
	Locale      string
}

// Session is returned by Signup and Login.
type Session struct {
	Token     string          `json:"access_token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

// ProfileUpdate lists the settings a caller may change. Nil fields are left
// untouched. Role is accepted only so that a change can be rejected.
type ProfileUpdate struct {
	DisplayName           *string
	Role                  *string
	NotificationFrequency *string
	NotificationTimes     *[]string
	Timezone              *string
	Locale                *string
}

// ProfileService implements account and profile use-cases.
type ProfileService struct {
	DB     *gorm.DB
	Tokens *auth.Issuer
	Now    func() time.Time

	// DefaultLocale is stored on new profiles that do not ask for one.
	DefaultLocale string
}

// Signup creates an account and its profile and returns an access token.
func (s *ProfileService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Signup",
		trace.WithAttributes(attribute.String("profile.role", in.Role)),
	)
	defer span.End()

	if utf8.RuneCountInString(in.Password) < domain.MinPasswordRunes {
		return nil, ErrPasswordTooShort
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acct, err := domain.NewAccount(in.Email, hash)
	if err != nil {
		return nil, err
	}
	p, err := domain.NewProfile(acct.ID, in.DisplayName, strings.ToLower(strings.TrimSpace(in.Role)), in.Timezone)
	if err != nil {
		return nil, err
	}
	locale := strings.TrimSpace(in.Locale)
	if locale == "" {
		locale = s.DefaultLocale
	}
	if locale != "" {
		if !i18n.Supported(locale) {
			return nil, ErrInvalidLocale
		}
		p.Locale = strings.ToLower(locale)
	}

	now := clock(s.Now)
	acct.CreatedAt = now
	p.CreatedAt, p.UpdatedAt = now, now

	if err := repo.CreateAccountWithProfile(ctx, s.DB, acct, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.session(acct.ID, p)
}

// Login checks credentials and returns an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *ProfileService) Login(ctx context.Context, email, password string) (*Session, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	acct, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(acct.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	p, err := s.GetByAuth(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	return s.session(acct.ID, p)
}

func (s *ProfileService) session(accountID string, p *domain.Profile) (*Session, error) {
	token, exp, err := s.Tokens.Issue(accountID, p.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Profile: p}, nil
}

// GetByAuth returns the profile linked to an account.
func (s *ProfileService) GetByAuth(ctx context.Context, authID string) (*domain.Profile, error) {
	p, err := repo.GetProfileByAuth(ctx, s.DB, authID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// Get returns a profile by ID.
func (s *ProfileService) Get(ctx context.Context, profileID string) (*domain.Profile, error) {
	return loadProfile(ctx, s.DB, profileID)
}

// UpdateProfile applies u to the profile. Submitting the current role is a
// no-op; any other role yields ErrRoleImmutable and nothing is written.
func (s *ProfileService) UpdateProfile(ctx context.Context, profileID string, u ProfileUpdate) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	p, err := loadProfile(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}

	if u.Role != nil && strings.ToLower(strings.TrimSpace(*u.Role)) != p.Role {
		return nil, ErrRoleImmutable
	}
	if u.DisplayName != nil {
		name, err := domain.ValidateDisplayName(*u.DisplayName)
		if err != nil {
			return nil, err
		}
		p.DisplayName = name
	}
	if u.NotificationFrequency != nil || u.NotificationTimes != nil {
		freq := p.NotificationFrequency
		if u.NotificationFrequency != nil {
			freq = strings.TrimSpace(*u.NotificationFrequency)
		}
		times := []string(p.NotificationTimes)
		if u.NotificationTimes != nil {
			times = *u.NotificationTimes
		}
		if err := p.SetSchedule(freq, times); err != nil {
			return nil, err
		}
	}
	if u.Timezone != nil {
		tz := strings.TrimSpace(*u.Timezone)
		if _, err := domain.LoadTimezone(tz); err != nil {
			return nil, err
		}
		if tz == "" {
			tz = "UTC"
		}
		p.Timezone = tz
	}
	if u.Locale != nil {
		if !i18n.Supported(*u.Locale) {
			return nil, ErrInvalidLocale
		}
		p.Locale = strings.ToLower(strings.TrimSpace(*u.Locale))
	}

	p.UpdatedAt = clock(s.Now)
	if err := repo.UpdateProfileSettings(ctx, s.DB, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// CoupleView is the caller's active couple together with the partner profile.
type CoupleView struct {
	Couple  *domain.Couple  `json:"couple"`
	Partner *domain.Profile `json:"partner"`
}

// CoupleService exposes the active couple of a profile.
type CoupleService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// ActiveCouple returns the caller's active couple or ErrNoActiveCouple.
func (s *CoupleService) ActiveCouple(ctx context.Context, profileID string) (*CoupleView, error) {
	tr := otel.Tracer("services/CoupleService")
	ctx, span := tr.Start(ctx, "ActiveCouple",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}
	partnerID, _ := c.PartnerOf(profileID)
	partner, err := loadProfile(ctx, s.DB, partnerID)
	if err != nil {
		return nil, err
	}
	return &CoupleView{Couple: c, Partner: partner}, nil
}

// Deactivate ends the caller's active couple. Both partners become free to
// pair again; entries, dimensions and messages are kept.
func (s *CoupleService) Deactivate(ctx context.Context, profileID string) (*domain.Couple, error) {
	tr := otel.Tracer("services/CoupleService")
	ctx, span := tr.Start(ctx, "Deactivate",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}
	now := clock(s.Now)
	if err := repo.DeactivateCouple(ctx, s.DB, c.ID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoActiveCouple
		}
		return nil, err
	}
	c.IsActive = false
	c.DeactivatedAt = &now
	return c, nil
}
