package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkarpov/go-vault-bot/internal/config"
)

// missingChannels returns the configured channels the user has not joined
// yet. A failed membership lookup counts as not joined, matching the
// fail-closed posture of the gate.
func (b *Bot) missingChannels(ctx context.Context, userID int64) []config.Channel {
	var missing []config.Channel
	for _, ch := range b.cfg.ForceJoin {
		username := ""
		if ch.Username != "" {
			username = "@" + ch.Username
		}
		status, err := b.oracle.MemberStatus(ctx, ch.ChatID, username, userID)
		if err != nil {
			b.log.Debug().Str("channel", ch.Name).Err(err).Msg("membership lookup failed")
			missing = append(missing, ch)
			continue
		}
		switch status {
		case "left", "kicked":
			missing = append(missing, ch)
		}
	}
	return missing
}

// joinKeyboard builds one URL button per missing channel plus the re-check
// button.
func joinKeyboard(missing []config.Channel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(missing)+1)
	for _, ch := range missing {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Join "+ch.Name, ch.JoinURL())))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ I Joined", "force_check")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleForceCheck re-runs the gate when the user claims to have joined.
func (b *Bot) handleForceCheck(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	uid := cq.From.ID
	chatID := cq.Message.Chat.ID

	if missing := b.missingChannels(ctx, uid); len(missing) > 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID,
			"❗ You still haven't joined all required channels.",
			joinKeyboard(missing))
		if _, err := b.api.Send(edit); err != nil {
			b.log.Debug().Err(err).Msg("gate message edit failed")
		}
		return
	}

	if _, err := b.balance.GetOrCreate(ctx, uid); err != nil {
		b.log.Error().Int64("user_id", uid).Err(err).Msg("account upsert failed")
		return
	}
	_, _ = b.api.Request(tgbotapi.NewDeleteMessage(chatID, cq.Message.MessageID))
	b.sendWelcome(chatID)
}
