package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeClock is a settable clock for Now fields.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func seedProfile(t *testing.T, db *gorm.DB, email, role, tz string) *domain.Profile {
	t.Helper()
	a, err := domain.NewAccount(email, "hash")
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	p, err := domain.NewProfile("", strings.Split(email, "@")[0], role, tz)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if err := repo.CreateAccountWithProfile(context.Background(), db, a, p); err != nil {
		t.Fatalf("CreateAccountWithProfile: %v", err)
	}
	return p
}

func seedCouple(t *testing.T, db *gorm.DB, prefix string) (*domain.Couple, *domain.Profile, *domain.Profile) {
	t.Helper()
	h := seedProfile(t, db, prefix+"-h@example.com", domain.RoleHusband, "UTC")
	w := seedProfile(t, db, prefix+"-w@example.com", domain.RoleWife, "UTC")
	c, err := domain.NewCouple(h, w)
	if err != nil {
		t.Fatalf("NewCouple: %v", err)
	}
	if err := repo.CreateCouple(context.Background(), db, c); err != nil {
		t.Fatalf("CreateCouple: %v", err)
	}
	return c, h, w
}

func ptr[T any](v T) *T { return &v }
