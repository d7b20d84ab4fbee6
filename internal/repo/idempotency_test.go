package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/couple-checkin/internal/domain"
)

func TestGetIdempotency_EmptyScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	for _, tc := range [][2]string{{"  ", "k1"}, {domain.ScopeEntries, ""}} {
		rec, err := GetIdempotency(context.Background(), db, "u1", tc[0], tc[1], t0)
		if rec != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", rec, err)
		}
	}
}

func TestIdempotency_CreateGetExpire(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", domain.ScopeEntries, "k1", "e1", 201, t0, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if !rec.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "u1", domain.ScopeEntries, "k1", t0.Add(time.Minute))
	if err != nil || got.ResourceID != "e1" || got.Status != 201 {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", domain.ScopeOliveBranches, "k1", t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other scope must miss, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", domain.ScopeEntries, "k1", t0.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record must miss, got %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", domain.ScopeEntries, "k1", "e2", 201, t0, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	n, err := DeleteExpiredIdempotency(ctx, db, t0.Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredIdempotency = %d, %v", n, err)
	}
}
