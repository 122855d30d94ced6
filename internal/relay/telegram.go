package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkarpov/go-vault-bot/internal/metrics"
)

// Telegram implements Relay and MembershipOracle on top of the Bot API.
// Copies out of the vault are sent with protected content so recipients
// cannot re-forward them.
type Telegram struct {
	api            *tgbotapi.BotAPI
	vaultChannelID int64
}

// NewTelegram wraps an authorized Bot API client. vaultChannelID is the
// private channel the catalog locators point into.
func NewTelegram(api *tgbotapi.BotAPI, vaultChannelID int64) *Telegram {
	return &Telegram{api: api, vaultChannelID: vaultChannelID}
}

// copyParams builds the raw copyMessage request. The client library's typed
// CopyMessageConfig predates the protect_content field, so the call goes
// through MakeRequest with the flag set by hand.
func copyParams(toChatID, fromChatID, messageID int64) tgbotapi.Params {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", toChatID)
	params.AddNonZero64("from_chat_id", fromChatID)
	params.AddNonZero64("message_id", messageID)
	params.AddBool("protect_content", true)
	return params
}

// CopyFromVault copies the vault message into the target chat and returns
// the delivered copy's message ID. Errors come back classified.
func (t *Telegram) CopyFromVault(ctx context.Context, toChatID int64, vaultMessageID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := t.api.MakeRequest("copyMessage", copyParams(toChatID, t.vaultChannelID, vaultMessageID))
	metrics.ObserveRelayCall("copy_message", time.Since(start), err)
	if err != nil {
		return 0, Classify(err)
	}
	var copied tgbotapi.MessageID
	if err := json.Unmarshal(resp.Result, &copied); err != nil {
		return 0, err
	}
	return copied.MessageID, nil
}

// DeleteMessage removes a delivered copy from the recipient's chat.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveRelayCall("delete_message", time.Since(start), err)
	if err != nil {
		return Classify(err)
	}
	return nil
}

// SendText delivers a plain text message to the chat.
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	metrics.ObserveRelayCall("send_message", time.Since(start), err)
	if err != nil {
		return Classify(err)
	}
	return nil
}

// MemberStatus resolves the user's membership status in a channel, addressed
// either by numeric chat ID (private channels) or @username (public ones).
func (t *Telegram) MemberStatus(ctx context.Context, chatID int64, chatUsername string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chatID,
			SuperGroupUsername: chatUsername,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", Classify(err)
	}
	return member.Status, nil
}

// Classify maps a Bot API error onto the relay taxonomy. Classification is
// substring-based because the platform reports most conditions through the
// description text; the numeric code disambiguates rate limits and
// permission failures.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	desc := strings.ToLower(err.Error())

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.RetryAfter > 0:
			kind = KindRateLimited
		case apiErr.Code == 403:
			kind = KindPermissionDenied
		}
	}

	if kind == KindUnknown {
		switch {
		case strings.Contains(desc, "message to copy not found"),
			strings.Contains(desc, "message to forward not found"),
			strings.Contains(desc, "message_id_invalid"),
			strings.Contains(desc, "message can't be copied"):
			kind = KindPermanentlyInvalid
		case strings.Contains(desc, "too many requests"):
			kind = KindRateLimited
		case strings.Contains(desc, "bot was blocked"),
			strings.Contains(desc, "user is deactivated"),
			strings.Contains(desc, "chat not found"),
			strings.Contains(desc, "not enough rights"),
			strings.Contains(desc, "forbidden"):
			kind = KindPermissionDenied
		}
	}

	return &Error{Kind: kind, Err: err}
}
