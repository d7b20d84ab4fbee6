// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for couples and
// pairing invitations.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// CreateCouple inserts an active couple. A member that is already active in
// another couple trips the partial unique index and yields ErrDuplicate.
func CreateCouple(ctx context.Context, db *gorm.DB, c *domain.Couple) error {
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetActiveCouple returns the active couple referencing profileID.
func GetActiveCouple(ctx context.Context, db *gorm.DB, profileID string) (*domain.Couple, error) {
	var c domain.Couple
	err := db.WithContext(ctx).
		Where("is_active = ? AND (husband_id = ? OR wife_id = ?)", true, profileID, profileID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// HasActiveCouple reports whether profileID is in an active couple.
func HasActiveCouple(ctx context.Context, db *gorm.DB, profileID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Couple{}).
		Where("is_active = ? AND (husband_id = ? OR wife_id = ?)", true, profileID, profileID).
		Count(&n).Error
	return n > 0, err
}

// DeactivateCouple flips an active couple to inactive. It returns ErrNotFound
// when the couple is missing or already inactive.
func DeactivateCouple(ctx context.Context, db *gorm.DB, coupleID string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Couple{}).
		Where("id = ? AND is_active = ?", coupleID, true).
		Updates(map[string]any{"is_active": false, "deactivated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateInvitation inserts a new invitation. Token collisions yield ErrDuplicate.
func CreateInvitation(ctx context.Context, db *gorm.DB, inv *domain.Invitation) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUnusedInvitation looks up an invitation by token that has not been redeemed.
func GetUnusedInvitation(ctx context.Context, db *gorm.DB, token string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := db.WithContext(ctx).
		Where("token = ? AND used_at IS NULL", token).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkInvitationUsed consumes an invitation only if it is still unused.
// Losing a race to another redeemer yields ErrNotFound.
func MarkInvitationUsed(ctx context.Context, db *gorm.DB, id, usedBy string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND used_at IS NULL", id).
		Updates(map[string]any{"used_at": now, "used_by": usedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}
