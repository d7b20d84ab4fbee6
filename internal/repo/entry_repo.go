// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the daily
// entry journal and custom dimensions.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// DateRange optionally bounds entry_date (inclusive). Empty means open.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) apply(q *gorm.DB) *gorm.DB {
	if r.From != "" {
		q = q.Where("entry_date >= ?", r.From)
	}
	if r.To != "" {
		q = q.Where("entry_date <= ?", r.To)
	}
	return q
}

// CreateEntry inserts an entry and its custom values. Callers wanting
// atomicity pass a transaction handle.
func CreateEntry(ctx context.Context, db *gorm.DB, e *domain.DailyEntry, values []domain.CustomDimensionEntry) error {
	tx := db.WithContext(ctx)
	if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
		return err
	}
	if len(values) == 0 {
		e.CustomValues = []domain.CustomDimensionEntry{}
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(&values).Error; err != nil {
		return err
	}
	e.CustomValues = values
	return nil
}

// GetEntry fetches an entry with its custom values.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.DailyEntry, error) {
	var e domain.DailyEntry
	err := db.WithContext(ctx).Preload("CustomValues").Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LatestEntryForDate returns the most recently created entry for a date.
// Entries with equal created_at fall back to id, which is time-ordered
// (domain.NewDailyEntryID), so the later insert wins.
func LatestEntryForDate(ctx context.Context, db *gorm.DB, profileID, date string) (*domain.DailyEntry, error) {
	var e domain.DailyEntry
	err := db.WithContext(ctx).
		Preload("CustomValues").
		Where("profile_id = ? AND entry_date = ?", profileID, date).
		Order("created_at DESC, id DESC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountEntries returns the number of entries for profileID within r.
func CountEntries(ctx context.Context, db *gorm.DB, profileID string, r DateRange) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.DailyEntry{}).Where("profile_id = ?", profileID)
	err := r.apply(q).Count(&total).Error
	return total, err
}

// ListEntriesPage returns a page ordered entry_date DESC, created_at DESC.
func ListEntriesPage(ctx context.Context, db *gorm.DB, profileID string, r DateRange, offset, limit int) ([]domain.DailyEntry, error) {
	var out []domain.DailyEntry
	q := db.WithContext(ctx).Preload("CustomValues").Where("profile_id = ?", profileID)
	err := r.apply(q).
		Order("entry_date DESC, created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListEntriesForRecentDates returns every entry on the maxDates most recent
// distinct dates within r, newest first.
func ListEntriesForRecentDates(ctx context.Context, db *gorm.DB, profileID string, r DateRange, maxDates int) ([]domain.DailyEntry, error) {
	var dates []string
	q := db.WithContext(ctx).Model(&domain.DailyEntry{}).Where("profile_id = ?", profileID)
	err := r.apply(q).
		Distinct().
		Order("entry_date DESC").
		Limit(maxDates).
		Pluck("entry_date", &dates).Error
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []domain.DailyEntry{}, nil
	}

	var out []domain.DailyEntry
	err = db.WithContext(ctx).
		Preload("CustomValues").
		Where("profile_id = ? AND entry_date IN ?", profileID, dates).
		Order("entry_date DESC, created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// CreateDimension inserts a custom dimension.
func CreateDimension(ctx context.Context, db *gorm.DB, d *domain.CustomDimension) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(d).Error
}

// ListDimensions returns a couple's dimensions in creation order.
func ListDimensions(ctx context.Context, db *gorm.DB, coupleID string) ([]domain.CustomDimension, error) {
	var out []domain.CustomDimension
	err := db.WithContext(ctx).
		Where("couple_id = ?", coupleID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
