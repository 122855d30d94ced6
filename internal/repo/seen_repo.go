// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-user
// viewed-set records.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

// ListSeen returns the vault message IDs already delivered to userID.
// The slice is empty when nothing has been recorded.
func ListSeen(ctx context.Context, db *gorm.DB, userID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.SeenMedia{}).
		Where("user_id = ?", userID).
		Pluck("message_id", &ids).Error
	return ids, err
}

// MarkSeen records that messageID was delivered to userID. The unique pair
// index plus ON CONFLICT DO NOTHING makes the write idempotent under
// concurrent duplicate requests.
func MarkSeen(ctx context.Context, db *gorm.DB, userID, messageID int64) error {
	row := &domain.SeenMedia{
		UserID:    userID,
		MessageID: messageID,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

// ResetSeen clears the whole viewed-set for userID.
func ResetSeen(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).
		Delete(&domain.SeenMedia{}, "user_id = ?", userID).Error
}

// CountSeen returns the size of the viewed-set for userID.
func CountSeen(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SeenMedia{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
