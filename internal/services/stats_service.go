// Package services – StatsService
package services

import (
	"context"

	"gorm.io/gorm"
)

// Stats summarizes the bot's persisted state for the admin surface and the
// ops endpoint.
type Stats struct {
	MediaItems int64 `json:"media_items"`
	Accounts   int64 `json:"accounts"`
	Sudo       int64 `json:"sudo"`
	Banned     int64 `json:"banned"`
}

// StatsRepo is the counting contract required by StatsService.
type StatsRepo interface {
	CountMedia(ctx context.Context, db *gorm.DB) (int64, error)
	CountAccounts(ctx context.Context, db *gorm.DB) (int64, error)
	CountSudo(ctx context.Context, db *gorm.DB) (int64, error)
	CountBanned(ctx context.Context, db *gorm.DB) (int64, error)
}

// StatsService aggregates collection counts.
type StatsService struct {
	DB   *gorm.DB
	Repo StatsRepo
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB, r StatsRepo) *StatsService {
	return &StatsService{DB: db, Repo: r}
}

// Collect gathers current counts for media, accounts, sudo, and banned.
func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.MediaItems, err = s.Repo.CountMedia(ctx, s.DB); err != nil {
		return nil, err
	}
	if st.Accounts, err = s.Repo.CountAccounts(ctx, s.DB); err != nil {
		return nil, err
	}
	if st.Sudo, err = s.Repo.CountSudo(ctx, s.DB); err != nil {
		return nil, err
	}
	if st.Banned, err = s.Repo.CountBanned(ctx, s.DB); err != nil {
		return nil, err
	}
	return &st, nil
}
