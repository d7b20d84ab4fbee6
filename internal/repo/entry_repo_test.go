package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/couple-checkin/internal/domain"
)

func mustEntry(t *testing.T, profileID, date string, feeling int, at time.Time) *domain.DailyEntry {
	t.Helper()
	r := domain.DefaultRatings()
	r.GeneralFeeling = feeling
	e, err := domain.NewDailyEntry(profileID, date, r)
	if err != nil {
		t.Fatalf("NewDailyEntry: %v", err)
	}
	e.CreatedAt = at
	return e
}

func TestCreateEntry_WithCustomValues(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, h, _ := seedCouple(t, db, "e")

	d, _ := domain.NewCustomDimension(c.ID, h.ID, "Closeness")
	if err := CreateDimension(ctx, db, d); err != nil {
		t.Fatalf("CreateDimension: %v", err)
	}

	e := mustEntry(t, h.ID, "2026-05-01", 40, t0)
	v, _ := domain.NewCustomDimensionEntry(d.ID, e.ID, 80)
	if err := CreateEntry(ctx, db, e, []domain.CustomDimensionEntry{*v}); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	got, err := GetEntry(ctx, db, e.ID)
	if err != nil || len(got.CustomValues) != 1 || got.CustomValues[0].Value != 80 {
		t.Fatalf("GetEntry: %v %+v", err, got)
	}

	plain := mustEntry(t, h.ID, "2026-05-01", 40, t0.Add(time.Minute))
	if err := CreateEntry(ctx, db, plain, nil); err != nil || plain.CustomValues == nil {
		t.Fatalf("CreateEntry without values: %v %+v", err, plain.CustomValues)
	}
}

func TestLatestEntryForDate_AppendOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, db, "j@example.com", domain.RoleWife)

	var last *domain.DailyEntry
	for i := 0; i < 3; i++ {
		last = mustEntry(t, p.ID, "2026-05-01", 10*i, t0.Add(time.Duration(i)*time.Hour))
		if err := CreateEntry(ctx, db, last, nil); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}
	n, err := CountEntries(ctx, db, p.ID, DateRange{})
	if err != nil || n != 3 {
		t.Fatalf("CountEntries = %d, %v; want 3", n, err)
	}
	got, err := LatestEntryForDate(ctx, db, p.ID, "2026-05-01")
	if err != nil || got.ID != last.ID {
		t.Fatalf("LatestEntryForDate = %+v, %v; want %s", got, err, last.ID)
	}
	if _, err := LatestEntryForDate(ctx, db, p.ID, "2026-05-02"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestEntryForDate_SameCreatedAtPrefersLaterInsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, db, "tie@example.com", domain.RoleHusband)

	var last *domain.DailyEntry
	for i := 0; i < 5; i++ {
		last = mustEntry(t, p.ID, "2026-05-03", 10*i, t0)
		if err := CreateEntry(ctx, db, last, nil); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		got, err := LatestEntryForDate(ctx, db, p.ID, "2026-05-03")
		if err != nil || got.ID != last.ID || got.GeneralFeeling != 40 {
			t.Fatalf("LatestEntryForDate = %+v, %v; want %s", got, err, last.ID)
		}
	}
}

func TestListEntriesPage_OrderAndRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, db, "o@example.com", domain.RoleWife)

	seed := []struct {
		date string
		at   time.Duration
	}{
		{"2026-04-29", 0},
		{"2026-04-30", time.Hour},
		{"2026-04-30", 2 * time.Hour},
		{"2026-05-01", 3 * time.Hour},
	}
	ids := make([]string, len(seed))
	for i, s := range seed {
		e := mustEntry(t, p.ID, s.date, 50, t0.Add(s.at))
		if err := CreateEntry(ctx, db, e, nil); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		ids[i] = e.ID
	}

	page, err := ListEntriesPage(ctx, db, p.ID, DateRange{}, 0, 10)
	if err != nil || len(page) != 4 {
		t.Fatalf("ListEntriesPage: %v len=%d", err, len(page))
	}
	want := []string{ids[3], ids[2], ids[1], ids[0]}
	for i := range want {
		if page[i].ID != want[i] {
			t.Fatalf("order[%d] = %s; want %s", i, page[i].ID, want[i])
		}
	}

	r := DateRange{From: "2026-04-30", To: "2026-04-30"}
	page, _ = ListEntriesPage(ctx, db, p.ID, r, 0, 10)
	if len(page) != 2 {
		t.Fatalf("range filter returned %d rows", len(page))
	}
	if n, _ := CountEntries(ctx, db, p.ID, r); n != 2 {
		t.Fatalf("CountEntries(range) = %d", n)
	}
	page, _ = ListEntriesPage(ctx, db, p.ID, DateRange{}, 1, 2)
	if len(page) != 2 || page[0].ID != ids[2] {
		t.Fatalf("offset/limit unexpected: %+v", page)
	}
}

func TestListEntriesForRecentDates_CapsDistinctDates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProfile(t, db, "r@example.com", domain.RoleHusband)

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		date := day.AddDate(0, 0, i).Format(domain.DateLayout)
		for k := 0; k < 2; k++ {
			e := mustEntry(t, p.ID, date, 50, t0.Add(time.Duration(i*2+k)*time.Minute))
			if err := CreateEntry(ctx, db, e, nil); err != nil {
				t.Fatalf("CreateEntry: %v", err)
			}
		}
	}

	got, err := ListEntriesForRecentDates(ctx, db, p.ID, DateRange{}, 3)
	if err != nil {
		t.Fatalf("ListEntriesForRecentDates: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 entries over 3 dates, got %d", len(got))
	}
	if got[0].EntryDate != "2026-01-05" || got[5].EntryDate != "2026-01-03" {
		t.Fatalf("unexpected dates: first=%s last=%s", got[0].EntryDate, got[5].EntryDate)
	}

	empty, err := ListEntriesForRecentDates(ctx, db, "nobody", DateRange{}, 30)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v %v", empty, err)
	}
}

func TestListDimensions_CreationOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, h, w := seedCouple(t, db, "d")

	d1, _ := domain.NewCustomDimension(c.ID, h.ID, "First")
	d1.CreatedAt = t0
	d2, _ := domain.NewCustomDimension(c.ID, w.ID, "Second")
	d2.CreatedAt = t0.Add(time.Second)
	for _, d := range []*domain.CustomDimension{d2, d1} {
		if err := CreateDimension(ctx, db, d); err != nil {
			t.Fatalf("CreateDimension: %v", err)
		}
	}
	got, err := ListDimensions(ctx, db, c.ID)
	if err != nil || len(got) != 2 || got[0].Name != "First" || got[1].Name != "Second" {
		t.Fatalf("ListDimensions = %+v, %v", got, err)
	}
}
