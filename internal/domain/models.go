// Package domain defines the persistence models for user accounts, vault
// media items, and per-user viewed-set records. These types are mapped with
// GORM and form the core data layer of the vault bot.
package domain

import (
	"time"
)

// Account represents a bot user and their spendable balance. Accounts are
// created lazily on first interaction; a missing row is equivalent to a fresh
// account with the configured starting balance.
//
// Fields:
//   - ID: Telegram user ID (externally issued, stable).
//   - Balance: remaining media requests; never negative.
//   - Banned: when true, dispensing and most commands are refused.
//   - Sudo: delegated admin status; exempt from balance deduction.
//   - ReferredBy: the referrer's user ID, set at most once on activation.
//   - Referrals: number of successful referrals credited to this account.
type Account struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	Balance    int64     `json:"balance"     gorm:"not null;default:0"`
	Banned     bool      `json:"banned"      gorm:"not null;default:false"`
	Sudo       bool      `json:"sudo"        gorm:"not null;default:false"`
	ReferredBy *int64    `json:"referred_by,omitempty"`
	Referrals  int64     `json:"referrals"   gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// MediaItem is a catalog entry for one asset stored in the vault channel.
// The vault message ID is the locator used to re-deliver the item; the dedup
// key is the platform content fingerprint (file_unique_id) preventing the
// same asset from being cataloged twice.
type MediaItem struct {
	MessageID int64     `json:"message_id" gorm:"primaryKey;autoIncrement:false"`
	DedupKey  string    `json:"dedup_key"  gorm:"type:varchar(64);not null;uniqueIndex:ux_media_dedup"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MediaItem.
func (MediaItem) TableName() string { return "media_items" }

// SeenMedia records that one media item was delivered to one user. The pair
// (UserID, MessageID) is unique, which makes marking idempotent. Rows are
// removed system-wide when the referenced item is invalidated, and per-user
// when the viewed-set is reset.
type SeenMedia struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    int64     `json:"user_id"    gorm:"not null;uniqueIndex:ux_seen_user_media,priority:1;index"`
	MessageID int64     `json:"message_id" gorm:"not null;uniqueIndex:ux_seen_user_media,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for SeenMedia.
func (SeenMedia) TableName() string { return "seen_media" }
