// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Balance mutations are expressed as single atomic UPDATE statements so that
// concurrent adjustments for the same account never lose increments, and the
// balance is clamped at zero inside the statement rather than read-modify-write.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrCreateAccount returns the account for userID, inserting a fresh row
// with startingBalance when none exists. The insert uses ON CONFLICT DO
// NOTHING so concurrent first interactions from the same user cannot fail.
func GetOrCreateAccount(ctx context.Context, db *gorm.DB, userID, startingBalance int64) (*domain.Account, error) {
	acc := &domain.Account{ID: userID, Balance: startingBalance}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(acc).Error
	if err != nil {
		return nil, err
	}
	var out domain.Account
	if err := db.WithContext(ctx).First(&out, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccount fetches an account by ID, or ErrNotFound if missing.
func GetAccount(ctx context.Context, db *gorm.DB, userID int64) (*domain.Account, error) {
	var acc domain.Account
	if err := db.WithContext(ctx).First(&acc, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// AdjustBalance applies delta to the account balance in a single UPDATE,
// clamping the result at zero, and returns the new balance. The row must
// already exist (use GetOrCreateAccount first); ErrNotFound is returned
// otherwise.
func AdjustBalance(ctx context.Context, db *gorm.DB, userID, delta int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("MAX(balance + ?, 0)", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var balance int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", userID).
		Pluck("balance", &balance).Error
	return balance, err
}

// SetBanned flips the banned flag for userID, creating the account row with
// a zero balance when it does not exist yet (bans may precede first contact).
func SetBanned(ctx context.Context, db *gorm.DB, userID int64, banned bool) error {
	acc := &domain.Account{ID: userID, Banned: banned}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{"banned": banned}),
		}).
		Create(acc).Error
}

// SetSudo flips the sudo flag for userID, upserting the row as SetBanned does.
func SetSudo(ctx context.Context, db *gorm.DB, userID int64, sudo bool) error {
	acc := &domain.Account{ID: userID, Sudo: sudo}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{"sudo": sudo}),
		}).
		Create(acc).Error
}

// SetReferredBy records the one-time referral edge on userID. The guarded
// UPDATE only fires when referred_by is still NULL and the edge is not a
// self-reference; it reports whether the edge was set by this call.
func SetReferredBy(ctx context.Context, db *gorm.DB, userID, referrerID int64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ? AND referred_by IS NULL AND id <> ?", userID, referrerID).
		Update("referred_by", referrerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementReferrals bumps the referral counter for userID.
func IncrementReferrals(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", userID).
		Update("referrals", gorm.Expr("referrals + 1")).Error
}

// AccountExists reports whether an account row exists for userID.
func AccountExists(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", userID).
		Count(&total).Error
	return total > 0, err
}

// ListAccountIDs returns every account ID, used for broadcast fan-out.
func ListAccountIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// CreditAll adds delta to every account balance in one statement and returns
// the number of accounts credited.
func CreditAll(ctx context.Context, db *gorm.DB, delta int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("1 = 1").
		Update("balance", gorm.Expr("MAX(balance + ?, 0)", delta))
	return res.RowsAffected, res.Error
}

// CountAccounts returns the total number of accounts.
func CountAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Account{}).Count(&total).Error
	return total, err
}

// CountBanned returns the number of banned accounts.
func CountBanned(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("banned = ?", true).
		Count(&total).Error
	return total, err
}

// CountSudo returns the number of sudo accounts.
func CountSudo(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("sudo = ?", true).
		Count(&total).Error
	return total, err
}
