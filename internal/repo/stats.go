// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// latest returns the row count and greatest created_at of q.
func latest(q *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// EntriesStats returns the number of entries a profile has and the newest
// created_at among them. Entries are append-only, so the pair changes on
// every write.
func EntriesStats(ctx context.Context, db *gorm.DB, profileID string) (int64, *time.Time, error) {
	return latest(db.WithContext(ctx).Model(&domain.DailyEntry{}).Where("profile_id = ?", profileID))
}

// OliveBranchStats returns the number of messages in a couple and the newest
// created_at among them.
func OliveBranchStats(ctx context.Context, db *gorm.DB, coupleID string) (int64, *time.Time, error) {
	return latest(db.WithContext(ctx).Model(&domain.OliveBranchMessage{}).Where("couple_id = ?", coupleID))
}
