// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/migrations"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&domain.Account{},
		&domain.Profile{},
		&domain.Couple{},
		&domain.Invitation{},
		&domain.DailyEntry{},
		&domain.CustomDimension{},
		&domain.CustomDimensionEntry{},
		&domain.OliveBranchMessage{},
		&domain.Quote{},
		&domain.Idempotency{},
	}
}

// Open connects using the named driver. target is a file path for SQLite and
// a DSN for PostgreSQL.
func Open(ctx context.Context, driver, target string) (*gorm.DB, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(target)
	case DriverPostgres:
		return OpenPostgres(ctx, target)
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres opens a pooled PostgreSQL connection and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// UseTracing installs the OpenTelemetry GORM plugin so every query becomes a span.
func UseTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// Close releases the underlying sql.DB.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates all tables from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// MigratePostgres applies the embedded SQL migrations with goose.
func MigratePostgres(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("nil db provided")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations.Files)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, ".")
}

// Migrate brings the schema up to date for the given driver.
func Migrate(ctx context.Context, db *gorm.DB, driver string) error {
	if driver == DriverPostgres {
		return MigratePostgres(ctx, db)
	}
	return AutoMigrate(db)
}
