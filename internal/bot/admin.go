package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleAdminCommand gates and dispatches the admin command set. Sudo status
// covers everything except sudo management itself, which is owner-only.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.From.ID
	cmd := msg.Command()

	if cmd == "addsudo" || cmd == "remsudo" {
		if uid != b.cfg.OwnerID {
			return
		}
	} else {
		priv, err := b.balance.IsPrivileged(ctx, uid)
		if err != nil || !priv {
			return
		}
	}

	args := strings.Fields(msg.CommandArguments())
	chatID := msg.Chat.ID

	switch cmd {
	case "addcoins":
		b.adjustCoins(ctx, chatID, args, 1, "/addcoins user_id amount")
	case "removecoins":
		b.adjustCoins(ctx, chatID, args, -1, "/removecoins user_id amount")
	case "ban":
		if target, ok := parseID(args); ok {
			if err := b.balance.Ban(ctx, target); err == nil {
				b.reply(chatID, fmt.Sprintf("🚫 Banned user %d", target))
			}
			return
		}
		b.reply(chatID, "⚠️ Usage: /ban user_id")
	case "unban":
		if target, ok := parseID(args); ok {
			if err := b.balance.Unban(ctx, target); err == nil {
				b.reply(chatID, fmt.Sprintf("✅ Unbanned user %d", target))
			}
			return
		}
		b.reply(chatID, "⚠️ Usage: /unban user_id")
	case "addsudo":
		if target, ok := parseID(args); ok {
			if err := b.balance.Promote(ctx, target); err == nil {
				b.reply(chatID, fmt.Sprintf("✅ Added %d as sudo.", target))
			}
			return
		}
		b.reply(chatID, "⚠️ Usage: /addsudo user_id")
	case "remsudo":
		if target, ok := parseID(args); ok {
			if err := b.balance.Demote(ctx, target); err == nil {
				b.reply(chatID, fmt.Sprintf("❌ Removed %d from sudo.", target))
			}
			return
		}
		b.reply(chatID, "⚠️ Usage: /remsudo user_id")
	case "stats", "status":
		b.handleStats(ctx, chatID)
	case "broadcast":
		text := strings.TrimSpace(msg.CommandArguments())
		if text == "" {
			b.reply(chatID, "⚠️ Usage: /broadcast your message")
			return
		}
		sent, err := b.broadcast.BroadcastText(ctx, text)
		if err != nil {
			b.log.Error().Err(err).Msg("broadcast failed")
			return
		}
		b.reply(chatID, fmt.Sprintf("✅ Broadcast sent to %d users.", sent))
	case "gift":
		amount, ok := parseID(args)
		if !ok || amount <= 0 {
			b.reply(chatID, "⚠️ Usage: /gift amount")
			return
		}
		count, err := b.broadcast.GiftAll(ctx, amount)
		if err != nil {
			b.log.Error().Err(err).Msg("gift failed")
			return
		}
		b.reply(chatID, fmt.Sprintf("🎁 Gifted %d coins to %d users.", amount, count))
	}
}

// adjustCoins implements /addcoins and /removecoins; sign flips the delta.
func (b *Bot) adjustCoins(ctx context.Context, chatID int64, args []string, sign int64, usage string) {
	if len(args) != 2 {
		b.reply(chatID, "⚠️ Usage: "+usage)
		return
	}
	target, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || amount <= 0 {
		b.reply(chatID, "⚠️ Usage: "+usage)
		return
	}
	newBalance, err := b.balance.Adjust(ctx, target, sign*amount)
	if err != nil {
		b.log.Error().Int64("target", target).Err(err).Msg("balance adjust failed")
		return
	}
	if sign > 0 {
		b.reply(chatID, fmt.Sprintf("✅ Added %d coins to %d (now %d).", amount, target, newBalance))
	} else {
		b.reply(chatID, fmt.Sprintf("❌ Removed %d coins from %d (now %d).", amount, target, newBalance))
	}
}

// handleStats reports collection counts to the admin.
func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	st, err := b.stats.Collect(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("stats failed")
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"📊 Bot Stats\n\n🎞 Media: %d\n👥 Users: %d\n🛡 Sudo: %d\n🚫 Banned: %d",
		st.MediaItems, st.Accounts, st.Sudo, st.Banned))
}

// parseID extracts a single int64 argument.
func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
