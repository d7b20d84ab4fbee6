package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// newTestDB opens a unique in-memory database per test. With no models it
// migrates the full schema; pass models to migrate only those.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) == 0 {
		migrate = Models()
	}
	if err := db.AutoMigrate(migrate...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedProfile creates an account and profile with the given role.
func seedProfile(t *testing.T, db *gorm.DB, email, role string) *domain.Profile {
	t.Helper()
	a, err := domain.NewAccount(email, "hash")
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	p, err := domain.NewProfile("", strings.Split(email, "@")[0], role, "UTC")
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	if err := CreateAccountWithProfile(context.Background(), db, a, p); err != nil {
		t.Fatalf("CreateAccountWithProfile: %v", err)
	}
	return p
}

// seedCouple pairs two fresh profiles.
func seedCouple(t *testing.T, db *gorm.DB, prefix string) (*domain.Couple, *domain.Profile, *domain.Profile) {
	t.Helper()
	h := seedProfile(t, db, prefix+"-h@example.com", domain.RoleHusband)
	w := seedProfile(t, db, prefix+"-w@example.com", domain.RoleWife)
	c, err := domain.NewCouple(h, w)
	if err != nil {
		t.Fatalf("NewCouple: %v", err)
	}
	if err := CreateCouple(context.Background(), db, c); err != nil {
		t.Fatalf("CreateCouple: %v", err)
	}
	return c, h, w
}

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
