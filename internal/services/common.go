package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/repo"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clock returns now() in UTC, or the injected clock when set.
func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}

// pageBounds normalizes page/pageSize and returns offset/limit.
func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

// loadProfile maps a missing row to ErrProfileNotFound.
func loadProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	p, err := repo.GetProfile(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// activeCouple maps a missing row to ErrNoActiveCouple.
func activeCouple(ctx context.Context, db *gorm.DB, profileID string) (*domain.Couple, error) {
	c, err := repo.GetActiveCouple(ctx, db, profileID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoActiveCouple
	}
	return c, err
}

// authorizeReader allows the owner and the owner's active partner. It returns
// the owner profile.
func authorizeReader(ctx context.Context, db *gorm.DB, viewerID, ownerID string) (*domain.Profile, error) {
	if viewerID != ownerID {
		c, err := activeCouple(ctx, db, viewerID)
		if errors.Is(err, ErrNoActiveCouple) {
			return nil, ErrForbidden
		}
		if err != nil {
			return nil, err
		}
		if partner, _ := c.PartnerOf(viewerID); partner != ownerID {
			return nil, ErrForbidden
		}
	}
	return loadProfile(ctx, db, ownerID)
}

// publish emits an event and logs failures. Nothing is returned; the row is
// already committed.
func publish(ctx context.Context, pub events.Publisher, subject string, v any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
