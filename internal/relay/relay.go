// Package relay defines the narrow contract the core holds against the
// messaging platform, together with a Telegram implementation. The dispenser
// and referral code only ever see this interface and the classified error
// kinds below; raw platform errors never escape the package.
package relay

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a delivery failure reported by the platform.
type ErrorKind int

const (
	// KindUnknown covers transient network failures and anything the
	// classifier does not recognize.
	KindUnknown ErrorKind = iota
	// KindPermanentlyInvalid means the vault locator no longer resolves to
	// a message; retrying can never succeed and the catalog entry should
	// be purged.
	KindPermanentlyInvalid
	// KindRateLimited means the platform asked us to back off.
	KindRateLimited
	// KindPermissionDenied means the recipient is unreachable (blocked the
	// bot, deactivated, chat missing, or missing rights).
	KindPermissionDenied
)

// String returns a short label for the kind, used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindPermanentlyInvalid:
		return "permanently_invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error wraps a platform error with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("relay: %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying platform error.
func (e *Error) Unwrap() error { return e.Err }

// IsPermanentlyInvalid reports whether err is a classified relay error whose
// kind marks the vault locator as permanently broken.
func IsPermanentlyInvalid(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindPermanentlyInvalid
}

// KindOf returns the classification of err, or KindUnknown when err is not
// a relay error.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// Relay is the delivery mechanism used to copy vault media to a user and to
// clean up the delivered copies afterwards. Implementations must be safe for
// concurrent use.
type Relay interface {
	// CopyFromVault re-delivers the vault message to the chat and returns
	// the message ID of the delivered copy. Failures are returned as
	// classified *Error values.
	CopyFromVault(ctx context.Context, toChatID int64, vaultMessageID int64) (int, error)

	// DeleteMessage removes a previously delivered copy. Best effort: the
	// deferred-expiry task ignores the returned error.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// SendText delivers a plain notification, used for referral credits
	// and broadcasts.
	SendText(ctx context.Context, chatID int64, text string) error
}

// MembershipOracle answers whether a user currently belongs to a channel.
// Status strings follow the platform vocabulary ("member", "left", ...).
type MembershipOracle interface {
	MemberStatus(ctx context.Context, chatID int64, chatUsername string, userID int64) (string, error)
}
