package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkarpov/go-vault-bot/internal/services"
)

// handleStart processes /start: ban check, force-join gate, lazy account
// creation, referral payload activation, audit notice, and the welcome
// screen.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.From.ID

	banned, err := b.balance.IsBanned(ctx, uid)
	if err != nil {
		b.log.Error().Int64("user_id", uid).Err(err).Msg("ban check failed")
		return
	}
	if banned {
		b.reply(msg.Chat.ID, "🚫 You are banned from using this bot.")
		return
	}

	if missing := b.missingChannels(ctx, uid); len(missing) > 0 {
		b.replyMarkup(msg.Chat.ID,
			"🚫 You must join all required channels to use this bot:",
			joinKeyboard(missing))
		return
	}

	if _, err := b.balance.GetOrCreate(ctx, uid); err != nil {
		b.log.Error().Int64("user_id", uid).Err(err).Msg("account upsert failed")
		return
	}

	// A numeric /start payload is a referral from that user.
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		if refID, err := strconv.ParseInt(args, 10, 64); err == nil {
			if err := b.referral.Activate(ctx, uid, refID); err != nil {
				b.log.Error().Int64("user_id", uid).Int64("referrer_id", refID).
					Err(err).Msg("referral activation failed")
			}
		}
	}

	b.logToChannel(fmt.Sprintf("📥 New user started the bot: %s", userLabel(msg.From)))
	b.sendWelcome(msg.Chat.ID)
}

// sendWelcome delivers the welcome photo (or plain text when no image is
// configured) with the main keyboard, followed by the disclaimer.
func (b *Bot) sendWelcome(chatID int64) {
	caption := fmt.Sprintf(
		"Welcome to %s!\nHere you get random media from our private vault.\n👇 Tap below to explore:",
		b.api.Self.FirstName)

	if b.cfg.WelcomeImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(b.cfg.WelcomeImageURL))
		photo.Caption = caption
		photo.ReplyMarkup = b.welcomeKeyboard()
		if _, err := b.api.Send(photo); err != nil {
			b.log.Debug().Int64("chat_id", chatID).Err(err).Msg("welcome photo not delivered")
		}
	} else {
		b.replyMarkup(chatID, caption, b.welcomeKeyboard())
	}

	disclaimer := tgbotapi.NewMessage(chatID,
		"⚠️ Disclaimer ⚠️\n\nWe do NOT produce or host any content.\nThis bot only forwards files.")
	if b.cfg.TermsURL != "" {
		disclaimer.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("📘 Terms & Conditions", b.cfg.TermsURL)))
	}
	if _, err := b.api.Send(disclaimer); err != nil {
		b.log.Debug().Int64("chat_id", chatID).Err(err).Msg("disclaimer not delivered")
	}
}

// welcomeKeyboard builds the main menu; URL rows are present only when the
// corresponding link is configured.
func (b *Bot) welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📩 Get Random Media", "get_media")),
	}
	if b.cfg.DeveloperURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Developer", b.cfg.DeveloperURL)))
	}
	row := []tgbotapi.InlineKeyboardButton{}
	if b.cfg.SupportURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Support", b.cfg.SupportURL))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Help", "show_help"))
	rows = append(rows, row)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleGetMedia runs the dispenser for the requesting user and maps each
// result variant onto exactly one user-visible message.
func (b *Bot) handleGetMedia(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	uid := cq.From.ID
	chatID := cq.Message.Chat.ID

	if !b.limiter.Allow(uid) {
		b.reply(chatID, "⏳ Slow down a little, then try again.")
		return
	}

	delivered, err := b.dispenser.RequestMedia(ctx, uid, b.cfg.BatchSize)
	switch {
	case errors.Is(err, services.ErrBanned):
		b.reply(chatID, "🚫 You are banned from using this bot.")
	case errors.Is(err, services.ErrInsufficientBalance):
		b.replyMarkup(chatID,
			"🪙 You don't have enough coins.\n\n🎁 Invite friends to earn more coins!",
			b.earnKeyboard())
	case errors.Is(err, services.ErrExhausted):
		b.reply(chatID, "📭 No more unseen media. Please wait for new uploads.")
	case errors.Is(err, services.ErrDeliveryFailed):
		b.reply(chatID, "⚠️ Delivery failed, please try again later.")
	case err != nil:
		b.log.Error().Int64("user_id", uid).Err(err).Msg("dispense failed")
		b.reply(chatID, "⚠️ Something went wrong, please try again.")
	default:
		text := fmt.Sprintf("These will auto-destruct in %s ⏳", b.cfg.Retention)
		b.replyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📩 Get More Random Media", "get_media"))))
		b.log.Info().Int64("user_id", uid).Int("count", len(delivered)).Msg("media dispensed")
	}
}

// earnKeyboard offers the ways to get more coins.
func (b *Bot) earnKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if b.cfg.DeveloperURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💎 Buy Premium", b.cfg.DeveloperURL)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🎁 Invite & Earn", "referral_link")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleBalance reports the user's coins and referral count.
func (b *Bot) handleBalance(ctx context.Context, uid, chatID int64) {
	acc, err := b.balance.GetOrCreate(ctx, uid)
	if err != nil {
		b.log.Error().Int64("user_id", uid).Err(err).Msg("balance lookup failed")
		return
	}
	b.reply(chatID, fmt.Sprintf("💰 Coins: %d\n🎯 Referrals: %d", acc.Balance, acc.Referrals))
}

// handleReferralLink sends the user their personal invite link.
func (b *Bot) handleReferralLink(uid, chatID int64) {
	link := fmt.Sprintf("https://t.me/%s?start=%d", b.api.Self.UserName, uid)
	b.reply(chatID, fmt.Sprintf(
		"🎁 Invite your friends with the link below and earn %d coins per successful referral:\n\n%s",
		b.cfg.ReferralReward, link))
}

// handlePrivacy points the user at the terms document.
func (b *Bot) handlePrivacy(chatID int64) {
	if b.cfg.TermsURL == "" {
		b.reply(chatID, "⚠️ No privacy policy is configured.")
		return
	}
	b.reply(chatID, "📘 Terms & Conditions:\n"+b.cfg.TermsURL)
}

// handleUpload catalogs a video sent by a privileged user: dedup on the
// platform content fingerprint, copy into the vault channel, register the
// vault locator.
func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.From.ID
	priv, err := b.balance.IsPrivileged(ctx, uid)
	if err != nil || !priv {
		return
	}

	fingerprint := msg.Video.FileUniqueID
	exists, err := b.catalog.Exists(ctx, fingerprint)
	if err != nil {
		b.log.Error().Err(err).Msg("dedup lookup failed")
		return
	}
	if exists {
		b.reply(msg.Chat.ID, "⚠️ This media already exists in the vault.")
		return
	}

	res, err := b.api.CopyMessage(tgbotapi.NewCopyMessage(b.cfg.VaultChannelID, msg.Chat.ID, msg.MessageID))
	if err != nil {
		b.reply(msg.Chat.ID, "⚠️ Upload failed.")
		b.logToChannel(fmt.Sprintf("❌ Upload error by %s: %v", userLabel(msg.From), err))
		return
	}

	switch err := b.catalog.Register(ctx, int64(res.MessageID), fingerprint); {
	case errors.Is(err, services.ErrAlreadyExists):
		b.reply(msg.Chat.ID, "⚠️ This media already exists in the vault.")
	case err != nil:
		b.log.Error().Err(err).Msg("catalog register failed")
		b.reply(msg.Chat.ID, "⚠️ Upload failed.")
	default:
		b.reply(msg.Chat.ID, "✅ Uploaded to vault and saved.")
	}
}
