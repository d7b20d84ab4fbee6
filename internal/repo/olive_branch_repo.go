// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for olive branch
// messages and quotes.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// CreateOliveBranch inserts a message.
func CreateOliveBranch(ctx context.Context, db *gorm.DB, m *domain.OliveBranchMessage) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

// GetOliveBranch fetches a message by ID.
func GetOliveBranch(ctx context.Context, db *gorm.DB, id string) (*domain.OliveBranchMessage, error) {
	var m domain.OliveBranchMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountOliveBranches returns the number of messages exchanged in a couple.
func CountOliveBranches(ctx context.Context, db *gorm.DB, coupleID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.OliveBranchMessage{}).
		Where("couple_id = ?", coupleID).
		Count(&total).Error
	return total, err
}

// ListOliveBranchesPage returns a page of a couple's messages, newest first.
func ListOliveBranchesPage(ctx context.Context, db *gorm.DB, coupleID string, offset, limit int) ([]domain.OliveBranchMessage, error) {
	var out []domain.OliveBranchMessage
	err := db.WithContext(ctx).
		Where("couple_id = ?", coupleID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpsertQuote inserts a quote or refreshes the source of an existing one with
// the same message.
func UpsertQuote(ctx context.Context, db *gorm.DB, q *domain.Quote) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message"}},
			DoUpdates: clause.AssignmentColumns([]string{"source"}),
		}).
		Create(q).Error
}

// ListQuotes returns all quotes in a stable order.
func ListQuotes(ctx context.Context, db *gorm.DB) ([]domain.Quote, error) {
	var out []domain.Quote
	err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// CountQuotes returns the number of stored quotes.
func CountQuotes(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Quote{}).Count(&total).Error
	return total, err
}

// QuoteAt returns the quote at a zero-based offset in stable order.
func QuoteAt(ctx context.Context, db *gorm.DB, offset int) (*domain.Quote, error) {
	var q domain.Quote
	err := db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(1).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}
