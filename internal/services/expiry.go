// Package services – ExpiryScheduler
//
// Delivered copies auto-destruct after a retention window. The scheduler is
// a detached fire-and-forget timer with no tie to the originating request's
// lifetime: it holds no locks, survives the request, and swallows delete
// failures by contract (the canonical viewed-set record is unaffected).
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// MessageDeleter is the slice of the relay the scheduler needs.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// ExpiryScheduler deletes delivered copies after a fixed retention window.
type ExpiryScheduler struct {
	// Relay performs the best-effort delete.
	Relay MessageDeleter
	// Timeout bounds each delete call.
	Timeout time.Duration

	log zerolog.Logger
}

// NewExpiryScheduler constructs a scheduler writing through the given relay.
func NewExpiryScheduler(r MessageDeleter, log zerolog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{Relay: r, Timeout: 10 * time.Second, log: log}
}

// Schedule arranges for the delivered copy to be removed after the retention
// window. The delayed task runs on its own timer goroutine; failures are
// logged at debug level and otherwise ignored.
func (s *ExpiryScheduler) Schedule(chatID int64, messageID int, after time.Duration) {
	time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		if err := s.Relay.DeleteMessage(ctx, chatID, messageID); err != nil {
			s.log.Debug().
				Int64("chat_id", chatID).
				Int("message_id", messageID).
				Err(err).
				Msg("expired copy delete failed")
		}
	})
}
