package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/couple-checkin/internal/domain"
)

func TestCouple_ActiveLookupAndDeactivate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, h, w := seedCouple(t, db, "a")

	for _, id := range []string{h.ID, w.ID} {
		got, err := GetActiveCouple(ctx, db, id)
		if err != nil || got.ID != c.ID {
			t.Fatalf("GetActiveCouple(%s): %v %+v", id, err, got)
		}
		if ok, err := HasActiveCouple(ctx, db, id); err != nil || !ok {
			t.Fatalf("HasActiveCouple(%s) = %v, %v", id, ok, err)
		}
	}

	if err := DeactivateCouple(ctx, db, c.ID, t0); err != nil {
		t.Fatalf("DeactivateCouple: %v", err)
	}
	if err := DeactivateCouple(ctx, db, c.ID, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second deactivate: want ErrNotFound, got %v", err)
	}
	if _, err := GetActiveCouple(ctx, db, h.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active couple, got %v", err)
	}

	// History is retained.
	var stored domain.Couple
	if err := db.First(&stored, "id = ?", c.ID).Error; err != nil || stored.IsActive || stored.DeactivatedAt == nil {
		t.Fatalf("expected retained inactive couple, got %+v (%v)", stored, err)
	}
}

func TestCreateCouple_SecondActiveIsDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, h, _ := seedCouple(t, db, "b")
	w2 := seedProfile(t, db, "b-w2@example.com", domain.RoleWife)

	c2, _ := domain.NewCouple(h, w2)
	if err := CreateCouple(ctx, db, c2); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestInvitation_SingleUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := seedProfile(t, db, "s@example.com", domain.RoleHusband)
	r := seedProfile(t, db, "r@example.com", domain.RoleWife)

	inv := domain.NewInvitation(s.ID, "tok-1", t0, 7*24*time.Hour)
	if err := CreateInvitation(ctx, db, inv); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}
	if err := CreateInvitation(ctx, db, domain.NewInvitation(s.ID, "tok-1", t0, time.Hour)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("token collision: want ErrDuplicate, got %v", err)
	}

	got, err := GetUnusedInvitation(ctx, db, "tok-1")
	if err != nil || got.ID != inv.ID {
		t.Fatalf("GetUnusedInvitation: %v %+v", err, got)
	}
	if err := MarkInvitationUsed(ctx, db, inv.ID, r.ID, t0); err != nil {
		t.Fatalf("MarkInvitationUsed: %v", err)
	}
	if err := MarkInvitationUsed(ctx, db, inv.ID, r.ID, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second mark: want ErrNotFound, got %v", err)
	}
	if _, err := GetUnusedInvitation(ctx, db, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("used token must not be found, got %v", err)
	}
}
