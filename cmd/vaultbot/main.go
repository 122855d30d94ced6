// Command vaultbot runs the coin-gated Telegram media vault bot together
// with its ops HTTP server (health, stats, Prometheus metrics).
//
// Configuration is taken from the environment (a .env file is honored when
// present). The process shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/bot"
	"github.com/dkarpov/go-vault-bot/internal/config"
	"github.com/dkarpov/go-vault-bot/internal/domain"
	httpapi "github.com/dkarpov/go-vault-bot/internal/http"
	"github.com/dkarpov/go-vault-bot/internal/observability"
	"github.com/dkarpov/go-vault-bot/internal/relay"
	"github.com/dkarpov/go-vault-bot/internal/repo"
	"github.com/dkarpov/go-vault-bot/internal/services"
	"github.com/dkarpov/go-vault-bot/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// accountRepoShim adapts the repository free functions to the account
// interfaces expected by the services. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type accountRepoShim struct{}

// GetOrCreateAccount proxies repo.GetOrCreateAccount.
func (accountRepoShim) GetOrCreateAccount(ctx context.Context, db *gorm.DB, userID, startingBalance int64) (*domain.Account, error) {
	return repo.GetOrCreateAccount(ctx, db, userID, startingBalance)
}

// GetAccount proxies repo.GetAccount.
func (accountRepoShim) GetAccount(ctx context.Context, db *gorm.DB, userID int64) (*domain.Account, error) {
	return repo.GetAccount(ctx, db, userID)
}

// AdjustBalance proxies repo.AdjustBalance.
func (accountRepoShim) AdjustBalance(ctx context.Context, db *gorm.DB, userID, delta int64) (int64, error) {
	return repo.AdjustBalance(ctx, db, userID, delta)
}

// SetBanned proxies repo.SetBanned.
func (accountRepoShim) SetBanned(ctx context.Context, db *gorm.DB, userID int64, banned bool) error {
	return repo.SetBanned(ctx, db, userID, banned)
}

// SetSudo proxies repo.SetSudo.
func (accountRepoShim) SetSudo(ctx context.Context, db *gorm.DB, userID int64, sudo bool) error {
	return repo.SetSudo(ctx, db, userID, sudo)
}

// SetReferredBy proxies repo.SetReferredBy.
func (accountRepoShim) SetReferredBy(ctx context.Context, db *gorm.DB, userID, referrerID int64) (bool, error) {
	return repo.SetReferredBy(ctx, db, userID, referrerID)
}

// IncrementReferrals proxies repo.IncrementReferrals.
func (accountRepoShim) IncrementReferrals(ctx context.Context, db *gorm.DB, userID int64) error {
	return repo.IncrementReferrals(ctx, db, userID)
}

// AccountExists proxies repo.AccountExists.
func (accountRepoShim) AccountExists(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	return repo.AccountExists(ctx, db, userID)
}

// ListAccountIDs proxies repo.ListAccountIDs.
func (accountRepoShim) ListAccountIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	return repo.ListAccountIDs(ctx, db)
}

// CreditAll proxies repo.CreditAll.
func (accountRepoShim) CreditAll(ctx context.Context, db *gorm.DB, delta int64) (int64, error) {
	return repo.CreditAll(ctx, db, delta)
}

// mediaRepoShim adapts the media repository free functions to the
// services.MediaRepo interface.
type mediaRepoShim struct{}

// RegisterMedia proxies repo.RegisterMedia.
func (mediaRepoShim) RegisterMedia(ctx context.Context, db *gorm.DB, messageID int64, dedupKey string) error {
	return repo.RegisterMedia(ctx, db, messageID, dedupKey)
}

// SampleUnseenMedia proxies repo.SampleUnseenMedia.
func (mediaRepoShim) SampleUnseenMedia(ctx context.Context, db *gorm.DB, excluded []int64, limit int) ([]int64, error) {
	return repo.SampleUnseenMedia(ctx, db, excluded, limit)
}

// InvalidateMedia proxies repo.InvalidateMedia.
func (mediaRepoShim) InvalidateMedia(ctx context.Context, db *gorm.DB, messageID int64) error {
	return repo.InvalidateMedia(ctx, db, messageID)
}

// MediaExists proxies repo.MediaExists.
func (mediaRepoShim) MediaExists(ctx context.Context, db *gorm.DB, dedupKey string) (bool, error) {
	return repo.MediaExists(ctx, db, dedupKey)
}

// CountMedia proxies repo.CountMedia.
func (mediaRepoShim) CountMedia(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMedia(ctx, db)
}

// seenRepoShim adapts the viewed-set repository free functions to the
// services.SeenRepo interface.
type seenRepoShim struct{}

// ListSeen proxies repo.ListSeen.
func (seenRepoShim) ListSeen(ctx context.Context, db *gorm.DB, userID int64) ([]int64, error) {
	return repo.ListSeen(ctx, db, userID)
}

// MarkSeen proxies repo.MarkSeen.
func (seenRepoShim) MarkSeen(ctx context.Context, db *gorm.DB, userID, messageID int64) error {
	return repo.MarkSeen(ctx, db, userID, messageID)
}

// ResetSeen proxies repo.ResetSeen.
func (seenRepoShim) ResetSeen(ctx context.Context, db *gorm.DB, userID int64) error {
	return repo.ResetSeen(ctx, db, userID)
}

// statsRepoShim adapts the counting free functions to services.StatsRepo.
type statsRepoShim struct{}

// CountMedia proxies repo.CountMedia.
func (statsRepoShim) CountMedia(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMedia(ctx, db)
}

// CountAccounts proxies repo.CountAccounts.
func (statsRepoShim) CountAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountAccounts(ctx, db)
}

// CountSudo proxies repo.CountSudo.
func (statsRepoShim) CountSudo(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountSudo(ctx, db)
}

// CountBanned proxies repo.CountBanned.
func (statsRepoShim) CountBanned(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountBanned(ctx, db)
}

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	logger := log.With().Str("service", "vaultbot").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	// Telegram
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram auth failed")
	}
	tg := relay.NewTelegram(api, cfg.VaultChannelID)

	// Services
	balanceSvc := services.NewBalanceService(db, accountRepoShim{}, cfg.StartingBalance, cfg.OwnerID)
	catalogSvc := services.NewCatalogService(db, mediaRepoShim{})
	seenSvc := services.NewSeenService(db, seenRepoShim{})
	statsSvc := services.NewStatsService(db, statsRepoShim{})
	referralSvc := services.NewReferralService(db, accountRepoShim{}, tg, cfg.ReferralReward, logger)
	broadcastSvc := services.NewBroadcastService(db, accountRepoShim{}, tg, cfg.BroadcastRPS, cfg.BroadcastBurst, logger)
	expiry := services.NewExpiryScheduler(tg, logger)

	dispenser := services.NewDispenserService(balanceSvc, catalogSvc, seenSvc, tg, expiry, logger)
	dispenser.CostPerItem = cfg.CostPerItem
	dispenser.BatchSize = cfg.BatchSize
	dispenser.Retention = cfg.Retention
	dispenser.OnExhausted = services.ParseExhaustPolicy(cfg.OnExhausted)
	dispenser.Audit = tg
	dispenser.AuditChatID = cfg.LogChannelID

	// Ops HTTP server
	router := httpapi.NewRouter(cfg, statsSvc)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	b := bot.New(cfg, bot.Deps{
		API:       api,
		Dispenser: dispenser,
		Balance:   balanceSvc,
		Catalog:   catalogSvc,
		Referral:  referralSvc,
		Broadcast: broadcastSvc,
		Stats:     statsSvc,
		Oracle:    tg,
	}, logger)

	if err := b.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("bot stopped with error")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("ops server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
