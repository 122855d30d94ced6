// Package services – BroadcastService
//
// Broadcast fan-out walks every known account and sends the message through
// the relay, throttled by a token bucket so a large user base cannot trip
// platform rate limits. Individual delivery failures (blocked bot,
// deactivated user) are counted and skipped, matching the bot's best-effort
// broadcast semantics. GiftAll credits every account in a single statement.
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/metrics"
)

// BroadcastAccounts is the account contract required by BroadcastService.
type BroadcastAccounts interface {
	ListAccountIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
	CreditAll(ctx context.Context, db *gorm.DB, delta int64) (int64, error)
}

// BroadcastService fans announcements out to every user.
type BroadcastService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the account repository used by this service.
	Repo BroadcastAccounts
	// Relay delivers the messages.
	Relay Notifier
	// Limiter throttles fan-out; nil disables throttling (tests).
	Limiter *rate.Limiter

	Log zerolog.Logger
}

// NewBroadcastService constructs a BroadcastService throttled at rps/burst.
func NewBroadcastService(db *gorm.DB, r BroadcastAccounts, relay Notifier, rps float64, burst int, log zerolog.Logger) *BroadcastService {
	if burst <= 0 {
		burst = 1
	}
	return &BroadcastService{
		DB:      db,
		Repo:    r,
		Relay:   relay,
		Limiter: rate.NewLimiter(rate.Limit(rps), burst),
		Log:     log,
	}
}

// BroadcastText sends text to every account and returns how many deliveries
// succeeded. Per-user failures are swallowed; the context cancels the whole
// job.
func (s *BroadcastService) BroadcastText(ctx context.Context, text string) (int, error) {
	ids, err := s.Repo.ListAccountIDs(ctx, s.DB)
	if err != nil {
		return 0, err
	}

	jobID := uuid.NewString()
	log := s.Log.With().Str("job_id", jobID).Int("recipients", len(ids)).Logger()
	log.Info().Msg("broadcast started")

	sent := 0
	for _, id := range ids {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				log.Warn().Int("sent", sent).Err(err).Msg("broadcast canceled")
				return sent, err
			}
		}
		err := s.Relay.SendText(ctx, id, text)
		metrics.CountBroadcast(err == nil)
		if err != nil {
			continue
		}
		sent++
	}

	log.Info().Int("sent", sent).Msg("broadcast finished")
	return sent, nil
}

// GiftAll credits every account with amount coins and returns how many
// accounts were credited.
func (s *BroadcastService) GiftAll(ctx context.Context, amount int64) (int64, error) {
	return s.Repo.CreditAll(ctx, s.DB, amount)
}
