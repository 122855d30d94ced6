// Package services – BalanceService
//
// This file implements the BalanceService, which owns account lifecycle and
// the spendable coin balance. Accounts are upserted lazily on first contact,
// balance mutations are delegated to the repository's atomic UPDATE so that
// concurrent adjustments (dispenser debits, referral credits, admin grants)
// never lose increments, and the privileged check combines the configured
// owner identity with the per-account sudo flag.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

// AccountRepo defines the repository contract required by BalanceService.
type AccountRepo interface {
	// GetOrCreateAccount upserts the account with the starting balance.
	GetOrCreateAccount(ctx context.Context, db *gorm.DB, userID, startingBalance int64) (*domain.Account, error)

	// GetAccount fetches an account or repo.ErrNotFound.
	GetAccount(ctx context.Context, db *gorm.DB, userID int64) (*domain.Account, error)

	// AdjustBalance atomically applies delta, clamped at zero.
	AdjustBalance(ctx context.Context, db *gorm.DB, userID, delta int64) (int64, error)

	// SetBanned / SetSudo flip status flags, upserting the row.
	SetBanned(ctx context.Context, db *gorm.DB, userID int64, banned bool) error
	SetSudo(ctx context.Context, db *gorm.DB, userID int64, sudo bool) error
}

// BalanceService provides balance and status operations for user accounts.
type BalanceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the account repository used by this service.
	Repo AccountRepo

	// StartingBalance seeds newly created accounts.
	StartingBalance int64
	// OwnerID is always privileged regardless of account flags.
	OwnerID int64
}

// NewBalanceService constructs a BalanceService.
func NewBalanceService(db *gorm.DB, r AccountRepo, startingBalance, ownerID int64) *BalanceService {
	return &BalanceService{DB: db, Repo: r, StartingBalance: startingBalance, OwnerID: ownerID}
}

// GetOrCreate returns the account for userID, creating it with the starting
// balance on first contact.
func (s *BalanceService) GetOrCreate(ctx context.Context, userID int64) (*domain.Account, error) {
	return s.Repo.GetOrCreateAccount(ctx, s.DB, userID, s.StartingBalance)
}

// Adjust applies delta to the balance and returns the new value. The account
// is created first when missing so admin grants work before first contact.
func (s *BalanceService) Adjust(ctx context.Context, userID, delta int64) (int64, error) {
	if _, err := s.Repo.GetOrCreateAccount(ctx, s.DB, userID, s.StartingBalance); err != nil {
		return 0, err
	}
	return s.Repo.AdjustBalance(ctx, s.DB, userID, delta)
}

// IsBanned reports whether userID is banned. Unknown users are not banned.
func (s *BalanceService) IsBanned(ctx context.Context, userID int64) (bool, error) {
	acc, err := s.Repo.GetAccount(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return acc.Banned, nil
}

// Ban marks userID banned, creating the account row if needed.
func (s *BalanceService) Ban(ctx context.Context, userID int64) error {
	return s.Repo.SetBanned(ctx, s.DB, userID, true)
}

// Unban clears the banned flag for userID.
func (s *BalanceService) Unban(ctx context.Context, userID int64) error {
	return s.Repo.SetBanned(ctx, s.DB, userID, false)
}

// IsPrivileged reports whether userID is the configured owner or carries the
// sudo flag. Privileged users bypass balance deduction.
func (s *BalanceService) IsPrivileged(ctx context.Context, userID int64) (bool, error) {
	if userID == s.OwnerID {
		return true, nil
	}
	acc, err := s.Repo.GetAccount(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return acc.Sudo, nil
}

// Promote grants the sudo flag to userID.
func (s *BalanceService) Promote(ctx context.Context, userID int64) error {
	return s.Repo.SetSudo(ctx, s.DB, userID, true)
}

// Demote removes the sudo flag from userID.
func (s *BalanceService) Demote(ctx context.Context, userID int64) error {
	return s.Repo.SetSudo(ctx, s.DB, userID, false)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
