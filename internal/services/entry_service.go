// Package services – EntryService
//
// EntryService records daily check-ins and serves them back to the owner and
// the owner's active partner. Entries are append-only: every save inserts a
// new row dated in the owner's timezone, and the latest row of a date is that
// day's value. Each save writes one custom value per dimension registered to
// the owner's active couple, using DefaultRating for dimensions the caller
// did not rate.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/repo"
)

// TrendDays is the number of distinct dates a trend covers.
const TrendDays = 30

// CheckIn is the payload of a save. Custom maps dimension IDs to values.
type CheckIn struct {
	Ratings domain.Ratings
	Custom  map[string]int
}

// EntryService implements the journal use-cases.
type EntryService struct {
	DB     *gorm.DB
	Events events.Publisher
	Now    func() time.Time
}

// Save validates and inserts a check-in for profileID.
func (s *EntryService) Save(ctx context.Context, profileID string, in CheckIn) (*domain.DailyEntry, error) {
	tr := otel.Tracer("services/EntryService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("profile.id", profileID),
			attribute.Int("custom.count", len(in.Custom)),
		),
	)
	defer span.End()

	if err := in.Ratings.Validate(); err != nil {
		return nil, err
	}
	for _, v := range in.Custom {
		if !domain.ValidRating(v) {
			return nil, ErrRatingOutOfRange
		}
	}

	p, err := loadProfile(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}

	var (
		coupleID string
		dims     []domain.CustomDimension
	)
	c, err := activeCouple(ctx, s.DB, profileID)
	switch {
	case err == nil:
		coupleID = c.ID
		if dims, err = repo.ListDimensions(ctx, s.DB, c.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNoActiveCouple):
	default:
		return nil, err
	}

	known := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		known[d.ID] = struct{}{}
	}
	for id := range in.Custom {
		if _, ok := known[id]; !ok {
			return nil, ErrUnknownDimension
		}
	}

	now := clock(s.Now)
	e, err := domain.NewDailyEntry(profileID, p.Today(now), in.Ratings)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = now

	values := make([]domain.CustomDimensionEntry, 0, len(dims))
	for _, d := range dims {
		v, ok := in.Custom[d.ID]
		if !ok {
			v = domain.DefaultRating
		}
		cv, err := domain.NewCustomDimensionEntry(d.ID, e.ID, v)
		if err != nil {
			return nil, err
		}
		values = append(values, *cv)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.CreateEntry(ctx, tx, e, values)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.SubjectEntrySaved, events.EntrySaved{
		EntryID:   e.ID,
		ProfileID: e.ProfileID,
		CoupleID:  coupleID,
		EntryDate: e.EntryDate,
		CreatedAt: e.CreatedAt,
	})
	return e, nil
}

// Get returns one entry with its custom values. The viewer must be the owner
// or the owner's active partner.
func (s *EntryService) Get(ctx context.Context, viewerID, entryID string) (*domain.DailyEntry, error) {
	e, err := repo.GetEntry(ctx, s.DB, entryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := authorizeReader(ctx, s.DB, viewerID, e.ProfileID); err != nil {
		return nil, err
	}
	return e, nil
}

// Today returns the latest entry of today's date in the owner's timezone.
func (s *EntryService) Today(ctx context.Context, viewerID, profileID string) (*domain.DailyEntry, error) {
	tr := otel.Tracer("services/EntryService")
	ctx, span := tr.Start(ctx, "Today",
		trace.WithAttributes(
			attribute.String("viewer.id", viewerID),
			attribute.String("profile.id", profileID),
		),
	)
	defer span.End()

	p, err := authorizeReader(ctx, s.DB, viewerID, profileID)
	if err != nil {
		return nil, err
	}
	e, err := repo.LatestEntryForDate(ctx, s.DB, profileID, p.Today(clock(s.Now)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// List returns a page of entries, newest date first and newest row first
// within a date, with custom values attached.
func (s *EntryService) List(ctx context.Context, viewerID, profileID string, r repo.DateRange, page, pageSize int) ([]domain.DailyEntry, int64, error) {
	tr := otel.Tracer("services/EntryService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("viewer.id", viewerID),
			attribute.String("profile.id", profileID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := validateRange(r); err != nil {
		return nil, 0, err
	}
	if _, err := authorizeReader(ctx, s.DB, viewerID, profileID); err != nil {
		return nil, 0, err
	}

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountEntries(ctx, s.DB, profileID, r)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DailyEntry{}, 0, nil
	}
	items, err := repo.ListEntriesPage(ctx, s.DB, profileID, r, offset, limit)
	return items, total, err
}

// Trend averages the owner's entries per date over the TrendDays most recent
// dates within r, oldest first.
func (s *EntryService) Trend(ctx context.Context, viewerID, profileID string, r repo.DateRange) ([]TrendPoint, error) {
	tr := otel.Tracer("services/EntryService")
	ctx, span := tr.Start(ctx, "Trend",
		trace.WithAttributes(
			attribute.String("viewer.id", viewerID),
			attribute.String("profile.id", profileID),
		),
	)
	defer span.End()

	if err := validateRange(r); err != nil {
		return nil, err
	}
	if _, err := authorizeReader(ctx, s.DB, viewerID, profileID); err != nil {
		return nil, err
	}
	entries, err := repo.ListEntriesForRecentDates(ctx, s.DB, profileID, r, TrendDays)
	if err != nil {
		return nil, err
	}
	return BuildTrend(entries, TrendDays), nil
}

// Stats returns the entry count and newest created_at for profileID. It backs
// the list ETag.
func (s *EntryService) Stats(ctx context.Context, viewerID, profileID string) (int64, *time.Time, error) {
	if _, err := authorizeReader(ctx, s.DB, viewerID, profileID); err != nil {
		return 0, nil, err
	}
	return repo.EntriesStats(ctx, s.DB, profileID)
}

func validateRange(r repo.DateRange) error {
	for _, d := range []string{r.From, r.To} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}
