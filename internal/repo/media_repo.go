// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the vault
// media catalog.
//
// Error semantics:
//   - RegisterMedia surfaces gorm.ErrDuplicatedKey when the dedup key is
//     already cataloged (requires TranslateError, see OpenSQLite).
//   - InvalidateMedia is idempotent: deleting an absent item affects zero
//     rows and is not an error.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

// RegisterMedia inserts a catalog entry for the vault message with the given
// content fingerprint. The unique index on dedup_key rejects re-uploads of
// the same underlying asset with gorm.ErrDuplicatedKey.
func RegisterMedia(ctx context.Context, db *gorm.DB, messageID int64, dedupKey string) error {
	m := &domain.MediaItem{
		MessageID: messageID,
		DedupKey:  dedupKey,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(m).Error
}

// SampleUnseenMedia returns up to limit vault message IDs not present in
// excluded, selected uniformly at random without replacement. Fewer than
// limit rows (possibly zero) is a normal result when the catalog is
// exhausted for this caller.
func SampleUnseenMedia(ctx context.Context, db *gorm.DB, excluded []int64, limit int) ([]int64, error) {
	q := db.WithContext(ctx).Model(&domain.MediaItem{})
	// An empty NOT IN list renders as NOT IN (NULL) and matches nothing,
	// so the filter is applied only when there are exclusions.
	if len(excluded) > 0 {
		q = q.Where("message_id NOT IN ?", excluded)
	}
	var ids []int64
	err := q.Order("RANDOM()").Limit(limit).Pluck("message_id", &ids).Error
	return ids, err
}

// InvalidateMedia removes the catalog entry and every viewed-set row that
// references it, in one transaction. Either both are gone afterwards or
// neither is; a second call for the same ID is a no-op.
func InvalidateMedia(ctx context.Context, db *gorm.DB, messageID int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.MediaItem{}, "message_id = ?", messageID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.SeenMedia{}, "message_id = ?", messageID).Error
	})
}

// MediaExists reports whether a catalog entry with the given dedup key exists.
func MediaExists(ctx context.Context, db *gorm.DB, dedupKey string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.MediaItem{}).
		Where("dedup_key = ?", dedupKey).
		Count(&total).Error
	return total > 0, err
}

// CountMedia returns the number of cataloged items.
func CountMedia(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.MediaItem{}).Count(&total).Error
	return total, err
}
