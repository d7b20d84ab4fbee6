// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for accounts and
// profiles.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Unique violations are reported as ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique constraint rejected the write.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognizes unique violations from both drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "sqlstate 23505")
}

// CreateAccountWithProfile inserts an account and its profile atomically.
// It returns ErrDuplicate when the email is already registered.
func CreateAccountWithProfile(ctx context.Context, db *gorm.DB, a *domain.Account, p *domain.Profile) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		p.AuthID = a.ID
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// GetAccountByEmail fetches an account by normalized email.
func GetAccountByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount fetches an account by ID.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetProfile fetches a profile by ID.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByAuth fetches the profile linked to an account.
func GetProfileByAuth(ctx context.Context, db *gorm.DB, authID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("auth_id = ?", authID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfileSettings persists the mutable profile columns. Role and
// auth_id are never written here.
func UpdateProfileSettings(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"display_name":           p.DisplayName,
			"notification_frequency": p.NotificationFrequency,
			"notification_times":     p.NotificationTimes,
			"timezone":               p.Timezone,
			"locale":                 p.Locale,
			"updated_at":             p.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
