// Package services – ReferralService
//
// Activation records the one-time referrer-referee edge and credits the
// referrer exactly once. The edge is written with a guarded set-if-absent
// UPDATE so a duplicated /start payload (or two racing activations) cannot
// double-credit; notifying the referrer is best effort and never fails the
// activation.
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rs/zerolog"
)

// ReferralAccounts is the account contract required by ReferralService.
type ReferralAccounts interface {
	SetReferredBy(ctx context.Context, db *gorm.DB, userID, referrerID int64) (bool, error)
	IncrementReferrals(ctx context.Context, db *gorm.DB, userID int64) error
	AdjustBalance(ctx context.Context, db *gorm.DB, userID, delta int64) (int64, error)
	AccountExists(ctx context.Context, db *gorm.DB, userID int64) (bool, error)
}

// Notifier delivers the best-effort "you earned coins" message.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ReferralService credits referrers when the users they invited activate.
type ReferralService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the account repository used by this service.
	Repo ReferralAccounts
	// Notify delivers the reward notice; may be nil in tests.
	Notify Notifier

	// Reward is the balance credit per successful referral.
	Reward int64

	Log zerolog.Logger
}

// NewReferralService constructs a ReferralService.
func NewReferralService(db *gorm.DB, r ReferralAccounts, n Notifier, reward int64, log zerolog.Logger) *ReferralService {
	return &ReferralService{DB: db, Repo: r, Notify: n, Reward: reward, Log: log}
}

// Activate processes the referral payload carried by newUserID's first
// /start. Self-referrals, repeated activations, and unknown referrers are
// silent no-ops. On the first successful activation the referrer's balance
// grows by exactly Reward and they are notified best-effort.
func (s *ReferralService) Activate(ctx context.Context, newUserID, referrerID int64) error {
	if referrerID == 0 || newUserID == referrerID {
		return nil
	}

	// The referrer must already be a user; arbitrary payload numbers do
	// not mint accounts.
	exists, err := s.Repo.AccountExists(ctx, s.DB, referrerID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	set, err := s.Repo.SetReferredBy(ctx, s.DB, newUserID, referrerID)
	if err != nil {
		return err
	}
	if !set {
		// Edge already present or account row missing: nothing to credit.
		return nil
	}

	if _, err := s.Repo.AdjustBalance(ctx, s.DB, referrerID, s.Reward); err != nil {
		return err
	}
	if err := s.Repo.IncrementReferrals(ctx, s.DB, referrerID); err != nil {
		return err
	}

	if s.Notify != nil {
		text := fmt.Sprintf("You earned %d coins for a successful referral!", s.Reward)
		if err := s.Notify.SendText(ctx, referrerID, text); err != nil && !errors.Is(err, context.Canceled) {
			s.Log.Debug().
				Int64("referrer_id", referrerID).
				Err(err).
				Msg("referral notice not delivered")
		}
	}
	return nil
}
