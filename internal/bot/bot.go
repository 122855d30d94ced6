// Package bot implements the Telegram surface: the long-polling update loop,
// command and callback handlers, the force-join gate, uploads, and the admin
// command set. Handlers are thin wrappers that translate updates into service
// calls and service results into messages; every business rule lives in the
// services package.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dkarpov/go-vault-bot/internal/config"
	"github.com/dkarpov/go-vault-bot/internal/relay"
	"github.com/dkarpov/go-vault-bot/internal/services"
	"github.com/dkarpov/go-vault-bot/internal/sysutil"
)

// Bot owns the Telegram client and dispatches updates to handlers. Each
// update is handled on its own goroutine; handlers must therefore only touch
// the injected services, which are safe for concurrent use.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg config.Config
	log zerolog.Logger

	dispenser *services.DispenserService
	balance   *services.BalanceService
	catalog   *services.CatalogService
	referral  *services.ReferralService
	broadcast *services.BroadcastService
	stats     *services.StatsService
	oracle    relay.MembershipOracle

	limiter *UserLimiter
}

// Deps bundles the collaborators a Bot needs.
type Deps struct {
	API       *tgbotapi.BotAPI
	Dispenser *services.DispenserService
	Balance   *services.BalanceService
	Catalog   *services.CatalogService
	Referral  *services.ReferralService
	Broadcast *services.BroadcastService
	Stats     *services.StatsService
	Oracle    relay.MembershipOracle
}

// New constructs a Bot from config and collaborators.
func New(cfg config.Config, d Deps, log zerolog.Logger) *Bot {
	return &Bot{
		api:       d.API,
		cfg:       cfg,
		log:       log,
		dispenser: d.Dispenser,
		balance:   d.Balance,
		catalog:   d.Catalog,
		referral:  d.Referral,
		broadcast: d.Broadcast,
		stats:     d.Stats,
		oracle:    d.Oracle,
		limiter:   NewUserLimiter(cfg.RateRPS, cfg.RateBurst),
	}
}

// Run starts long polling and blocks until ctx is canceled or the update
// channel closes. Each update runs as an independent short-lived task.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate routes one update. Panics are contained here so a misbehaving
// handler cannot take the process down.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("handler panic recovered")
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Video != nil:
		b.handleUpload(ctx, upd.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "balance":
		b.handleBalance(ctx, msg.From.ID, msg.Chat.ID)
	case "help":
		b.reply(msg.Chat.ID, "Need help? Contact the developer.")
	case "privacy":
		b.handlePrivacy(msg.Chat.ID)
	case "addcoins", "removecoins", "ban", "unban", "addsudo", "remsudo",
		"stats", "status", "broadcast", "gift":
		b.handleAdminCommand(ctx, msg)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	b.answerCallback(cq.ID)
	if cq.Message == nil {
		return
	}
	switch cq.Data {
	case "get_media":
		b.handleGetMedia(ctx, cq)
	case "check_balance":
		b.handleBalance(ctx, cq.From.ID, cq.Message.Chat.ID)
	case "referral_link":
		b.handleReferralLink(cq.From.ID, cq.Message.Chat.ID)
	case "force_check":
		b.handleForceCheck(ctx, cq)
	case "show_help":
		b.reply(cq.Message.Chat.ID, "/privacy - View the bot's Terms and Conditions")
	}
}

// reply sends plain text, logging delivery failures instead of propagating
// them: a user who blocked the bot must not break the handler.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Debug().Int64("chat_id", chatID).Err(err).Msg("reply not delivered")
	}
}

// replyMarkup sends text with an inline keyboard attached.
func (b *Bot) replyMarkup(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Debug().Int64("chat_id", chatID).Err(err).Msg("reply not delivered")
	}
}

// answerCallback acknowledges a callback query so the client stops the
// spinner; failures are irrelevant.
func (b *Bot) answerCallback(id string) {
	_, _ = b.api.Request(tgbotapi.NewCallback(id, ""))
}

// logToChannel mirrors a notice into the audit channel when one is
// configured. Best effort.
func (b *Bot) logToChannel(text string) {
	if b.cfg.LogChannelID == 0 {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(b.cfg.LogChannelID, text)); err != nil {
		b.log.Debug().Err(err).Msg("audit notice not delivered")
	}
}

// userLabel formats a user for audit notices.
func userLabel(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	name := sysutil.FirstNonEmpty(u.UserName, u.FirstName, "N/A")
	return fmt.Sprintf("%s (%d)", name, u.ID)
}
