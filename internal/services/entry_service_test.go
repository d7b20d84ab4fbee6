package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/repo"
)

func newEntryService(t *testing.T) (*EntryService, *events.Recorder, *fakeClock) {
	t.Helper()
	rec := &events.Recorder{}
	clk := newClock(t0)
	return &EntryService{DB: newTestDB(t), Events: rec, Now: clk.Now}, rec, clk
}

func seedDimension(t *testing.T, s *EntryService, c *domain.Couple, by, name string, at time.Time) *domain.CustomDimension {
	t.Helper()
	d, err := domain.NewCustomDimension(c.ID, by, name)
	if err != nil {
		t.Fatalf("NewCustomDimension: %v", err)
	}
	d.CreatedAt = at
	if err := repo.CreateDimension(context.Background(), s.DB, d); err != nil {
		t.Fatalf("CreateDimension: %v", err)
	}
	return d
}

func TestEntryService_SaveFansOutDimensions(t *testing.T) {
	s, rec, _ := newEntryService(t)
	ctx := context.Background()
	c, h, w := seedCouple(t, s.DB, "fan")
	touch := seedDimension(t, s, c, h.ID, "Affection", t0)
	talk := seedDimension(t, s, c, w.ID, "Communication", t0.Add(time.Second))

	e, err := s.Save(ctx, h.ID, CheckIn{
		Ratings: domain.Ratings{HorninessLevel: 70, GeneralFeeling: 0, SleepQuality: 100, EmotionalState: 30},
		Custom:  map[string]int{touch.ID: 0},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.EntryDate != "2026-05-01" || !e.CreatedAt.Equal(t0) {
		t.Fatalf("entry = %#v", e)
	}

	stored, err := repo.GetEntry(ctx, s.DB, e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if stored.GeneralFeeling != 0 || stored.SleepQuality != 100 {
		t.Fatalf("ratings = %#v", stored.Ratings)
	}
	values := map[string]int{}
	for _, cv := range stored.CustomValues {
		values[cv.DimensionID] = cv.Value
	}
	if len(values) != 2 || values[touch.ID] != 0 || values[talk.ID] != domain.DefaultRating {
		t.Fatalf("custom values = %v", values)
	}

	got := rec.Events()
	if len(got) != 1 || got[0].Subject != events.SubjectEntrySaved {
		t.Fatalf("events = %#v", got)
	}
	if p := got[0].Payload.(events.EntrySaved); p.EntryID != e.ID || p.CoupleID != c.ID {
		t.Fatalf("payload = %#v", p)
	}
}

func TestEntryService_SaveWithoutCouple(t *testing.T) {
	s, _, _ := newEntryService(t)
	ctx := context.Background()
	p := seedProfile(t, s.DB, "solo@example.com", domain.RoleWife, "UTC")

	e, err := s.Save(ctx, p.ID, CheckIn{Ratings: domain.DefaultRatings()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(e.CustomValues) != 0 {
		t.Fatalf("custom values = %v", e.CustomValues)
	}
	if _, err := s.Save(ctx, p.ID, CheckIn{Ratings: domain.DefaultRatings(), Custom: map[string]int{"x": 10}}); !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("custom without couple: %v", err)
	}
}

func TestEntryService_SaveRejects(t *testing.T) {
	s, rec, _ := newEntryService(t)
	ctx := context.Background()
	c, h, _ := seedCouple(t, s.DB, "rej")
	d := seedDimension(t, s, c, h.ID, "Fun", t0)

	other, oh, _ := seedCouple(t, s.DB, "other")
	foreign := seedDimension(t, s, other, oh.ID, "Theirs", t0)

	cases := []struct {
		name string
		in   CheckIn
		want error
	}{
		{"fixed above range", CheckIn{Ratings: domain.Ratings{HorninessLevel: 101}}, ErrRatingOutOfRange},
		{"fixed below range", CheckIn{Ratings: domain.Ratings{SleepQuality: -1}}, ErrRatingOutOfRange},
		{"custom out of range", CheckIn{Ratings: domain.DefaultRatings(), Custom: map[string]int{d.ID: 150}}, ErrRatingOutOfRange},
		{"other couple's dimension", CheckIn{Ratings: domain.DefaultRatings(), Custom: map[string]int{foreign.ID: 10}}, ErrUnknownDimension},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Save(ctx, h.ID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if n, _ := repo.CountEntries(ctx, s.DB, h.ID, repo.DateRange{}); n != 0 {
		t.Fatalf("rejected saves wrote %d entries", n)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("rejected saves published events")
	}
	if _, err := s.Save(ctx, "missing", CheckIn{Ratings: domain.DefaultRatings()}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("missing profile: %v", err)
	}
}

func TestEntryService_AppendOnlyToday(t *testing.T) {
	s, _, clk := newEntryService(t)
	ctx := context.Background()
	_, h, w := seedCouple(t, s.DB, "today")

	if _, err := s.Today(ctx, h.ID, h.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("empty today: %v", err)
	}

	first, err := s.Save(ctx, h.ID, CheckIn{Ratings: domain.Ratings{GeneralFeeling: 40}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	clk.Advance(time.Hour)
	second, err := s.Save(ctx, h.ID, CheckIn{Ratings: domain.Ratings{GeneralFeeling: 60}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.ID == second.ID || first.EntryDate != second.EntryDate {
		t.Fatalf("expected two rows on one date: %s %s", first.EntryDate, second.EntryDate)
	}

	today, err := s.Today(ctx, w.ID, h.ID)
	if err != nil {
		t.Fatalf("partner Today: %v", err)
	}
	if today.ID != second.ID || today.GeneralFeeling != 60 {
		t.Fatalf("today = %#v", today)
	}
	if n, _ := repo.CountEntries(ctx, s.DB, h.ID, repo.DateRange{}); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
}

func TestEntryService_DateFollowsOwnerTimezone(t *testing.T) {
	s, _, clk := newEntryService(t)
	ctx := context.Background()
	p := seedProfile(t, s.DB, "nz@example.com", domain.RoleWife, "Pacific/Auckland")

	// 2026-05-01 20:00 UTC is already May 2nd in Auckland.
	clk.Set(time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	e, err := s.Save(ctx, p.ID, CheckIn{Ratings: domain.DefaultRatings()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.EntryDate != "2026-05-02" {
		t.Fatalf("entry date = %s, want 2026-05-02", e.EntryDate)
	}
}

func TestEntryService_ReadAuthorization(t *testing.T) {
	s, _, _ := newEntryService(t)
	ctx := context.Background()
	_, h, w := seedCouple(t, s.DB, "auth")
	_, stranger, _ := seedCouple(t, s.DB, "strange")
	lone := seedProfile(t, s.DB, "lone@example.com", domain.RoleHusband, "UTC")

	if _, err := s.Save(ctx, w.ID, CheckIn{Ratings: domain.DefaultRatings()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := s.List(ctx, h.ID, w.ID, repo.DateRange{}, 1, 10); err != nil {
		t.Fatalf("partner List: %v", err)
	}
	for _, viewer := range []string{stranger.ID, lone.ID} {
		if _, _, err := s.List(ctx, viewer, w.ID, repo.DateRange{}, 1, 10); !errors.Is(err, ErrForbidden) {
			t.Fatalf("List by %s: %v", viewer, err)
		}
		if _, err := s.Today(ctx, viewer, w.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("Today by %s: %v", viewer, err)
		}
		if _, err := s.Trend(ctx, viewer, w.ID, repo.DateRange{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("Trend by %s: %v", viewer, err)
		}
	}
}

func TestEntryService_ListAndTrend(t *testing.T) {
	s, _, clk := newEntryService(t)
	ctx := context.Background()
	p := seedProfile(t, s.DB, "list@example.com", domain.RoleWife, "UTC")

	// Two entries on May 1st (40, 60), one on May 2nd (90).
	for _, step := range []struct {
		at      time.Time
		feeling int
	}{
		{t0, 40},
		{t0.Add(time.Hour), 60},
		{t0.Add(24 * time.Hour), 90},
	} {
		clk.Set(step.at)
		if _, err := s.Save(ctx, p.ID, CheckIn{Ratings: domain.Ratings{GeneralFeeling: step.feeling}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	items, total, err := s.List(ctx, p.ID, p.ID, repo.DateRange{}, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}
	if items[0].EntryDate != "2026-05-02" || items[1].GeneralFeeling != 60 {
		t.Fatalf("order = %s/%d, %s/%d", items[0].EntryDate, items[0].GeneralFeeling, items[1].EntryDate, items[1].GeneralFeeling)
	}

	ranged, total, err := s.List(ctx, p.ID, p.ID, repo.DateRange{From: "2026-05-01", To: "2026-05-01"}, 1, 10)
	if err != nil || total != 2 || len(ranged) != 2 {
		t.Fatalf("ranged = %d/%d, %v", len(ranged), total, err)
	}
	if _, _, err := s.List(ctx, p.ID, p.ID, repo.DateRange{From: "May 1"}, 1, 10); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("bad date: %v", err)
	}

	trend, err := s.Trend(ctx, p.ID, p.ID, repo.DateRange{})
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(trend) != 2 || trend[0].Date != "2026-05-01" || trend[0].GeneralFeeling != 50 || trend[0].Entries != 2 || trend[1].GeneralFeeling != 90 {
		t.Fatalf("trend = %#v", trend)
	}

	n, latest, err := s.Stats(ctx, p.ID, p.ID)
	if err != nil || n != 3 || latest == nil || !latest.Equal(t0.Add(24*time.Hour)) {
		t.Fatalf("stats = %d %v %v", n, latest, err)
	}
}

func TestEntryService_PublishFailureDoesNotFailSave(t *testing.T) {
	s, rec, _ := newEntryService(t)
	rec.Err = errors.New("bus down")
	p := seedProfile(t, s.DB, "pub@example.com", domain.RoleWife, "UTC")
	if _, err := s.Save(context.Background(), p.ID, CheckIn{Ratings: domain.DefaultRatings()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestEntryService_Get(t *testing.T) {
	s, _, _ := newEntryService(t)
	ctx := context.Background()
	_, h, w := seedCouple(t, s.DB, "get")
	_, stranger, _ := seedCouple(t, s.DB, "getx")

	e, err := s.Save(ctx, w.ID, CheckIn{Ratings: domain.DefaultRatings()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, viewer := range []string{w.ID, h.ID} {
		got, err := s.Get(ctx, viewer, e.ID)
		if err != nil || got.ID != e.ID {
			t.Fatalf("Get by %s = %v, %v", viewer, got, err)
		}
	}
	if _, err := s.Get(ctx, stranger.ID, e.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger Get: %v", err)
	}
	if _, err := s.Get(ctx, w.ID, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("missing Get: %v", err)
	}
}
