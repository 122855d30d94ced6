// Package services – DispenserService
//
// This file implements the coin-gated random-media dispenser, the core of
// the bot. A request walks Authorized → Sampling → Delivering → Settled;
// a permanently invalid vault locator discovered mid-batch triggers the
// self-heal path (purge the catalog entry everywhere, restart from
// Sampling), while any other relay failure aborts the request with the
// items delivered so far left committed.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkarpov/go-vault-bot/internal/domain"
	"github.com/dkarpov/go-vault-bot/internal/metrics"
	"github.com/dkarpov/go-vault-bot/internal/relay"
)

// ExhaustPolicy selects what happens when a user has seen the whole catalog.
type ExhaustPolicy int

const (
	// ExhaustStop reports ErrExhausted and leaves the viewed-set intact.
	ExhaustStop ExhaustPolicy = iota
	// ExhaustResetAndRetry clears the viewed-set once and samples again,
	// letting the user cycle through the catalog from scratch.
	ExhaustResetAndRetry
)

// ParseExhaustPolicy maps a config string onto a policy; unknown values
// fall back to ExhaustStop.
func ParseExhaustPolicy(s string) ExhaustPolicy {
	if s == "reset" {
		return ExhaustResetAndRetry
	}
	return ExhaustStop
}

// DispenserBalance is the balance-store contract required by the dispenser.
type DispenserBalance interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
	IsPrivileged(ctx context.Context, userID int64) (bool, error)
	GetOrCreate(ctx context.Context, userID int64) (*domain.Account, error)
	Adjust(ctx context.Context, userID, delta int64) (int64, error)
}

// DispenserCatalog is the catalog contract required by the dispenser.
type DispenserCatalog interface {
	SampleUnseen(ctx context.Context, excluded []int64, batchSize int) ([]int64, error)
	Invalidate(ctx context.Context, messageID int64) error
	Count(ctx context.Context) (int64, error)
}

// DispenserSeen is the viewed-set contract required by the dispenser.
type DispenserSeen interface {
	GetSeen(ctx context.Context, userID int64) ([]int64, error)
	MarkSeen(ctx context.Context, userID, messageID int64) error
	Reset(ctx context.Context, userID int64) error
}

// Expiry schedules the deferred deletion of a delivered copy.
type Expiry interface {
	Schedule(chatID int64, messageID int, after time.Duration)
}

// DispenserService grants metered, deduplicated access to vault media.
type DispenserService struct {
	Balance DispenserBalance
	Catalog DispenserCatalog
	Seen    DispenserSeen
	Relay   relay.Relay
	Expiry  Expiry

	// CostPerItem is deducted per item actually delivered, never for
	// failed items. Privileged users bypass cost entirely.
	CostPerItem int64
	// BatchSize is the default number of items per request.
	BatchSize int
	// Retention is how long a delivered copy stays visible.
	Retention time.Duration
	// OnExhausted selects the wraparound-vs-stop policy.
	OnExhausted ExhaustPolicy

	// Audit mirrors self-heal purges into the audit channel when both
	// fields are set. Best effort.
	Audit       Notifier
	AuditChatID int64

	Log zerolog.Logger
}

// NewDispenserService constructs a dispenser with the given collaborators.
func NewDispenserService(b DispenserBalance, c DispenserCatalog, seen DispenserSeen, r relay.Relay, e Expiry, log zerolog.Logger) *DispenserService {
	return &DispenserService{
		Balance:     b,
		Catalog:     c,
		Seen:        seen,
		Relay:       r,
		Expiry:      e,
		CostPerItem: 1,
		BatchSize:   4,
		Retention:   time.Hour,
		OnExhausted: ExhaustStop,
		Log:         log,
	}
}

// RequestMedia authorizes the user, samples unseen media, delivers each item
// through the relay, and settles the cost per delivered item. It returns the
// vault identifiers actually delivered; a shorter-than-requested result with
// a nil error means the catalog ran out mid-batch, which is success.
//
// Error variants: ErrBanned, ErrInsufficientBalance, ErrExhausted,
// ErrDeliveryFailed. Permanently invalid locators are absorbed by the
// self-heal path and never surface.
func (s *DispenserService) RequestMedia(ctx context.Context, userID int64, batchSize int) ([]int64, error) {
	tracer := otel.Tracer("dispenser")
	ctx, span := tracer.Start(ctx, "RequestMedia", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("batch.size", batchSize),
	))
	defer span.End()

	if batchSize <= 0 {
		batchSize = s.BatchSize
	}

	// Authorization.
	banned, err := s.Balance.IsBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		metrics.CountDispense("banned")
		return nil, ErrBanned
	}
	privileged, err := s.Balance.IsPrivileged(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !privileged {
		acc, err := s.Balance.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if acc.Balance < s.CostPerItem {
			metrics.CountDispense("insufficient_balance")
			return nil, ErrInsufficientBalance
		}
	}

	// The restart cap bounds the self-heal loop: each restart removes one
	// catalog entry, so the catalog size at entry is the worst case where
	// every remaining item turns out to be broken.
	restartCap, err := s.Catalog.Count(ctx)
	if err != nil {
		return nil, err
	}

	delivered := make([]int64, 0, batchSize)
	restarts := int64(0)
	resetUsed := false

sampling:
	for {
		need := batchSize - len(delivered)
		if need <= 0 {
			break
		}

		// Sampling: exclusion is re-read fresh on every pass so restarts
		// after an invalidation never observe a stale identifier.
		seen, err := s.Seen.GetSeen(ctx, userID)
		if err != nil {
			return delivered, err
		}
		batch, err := s.Catalog.SampleUnseen(ctx, seen, need)
		if err != nil {
			return delivered, err
		}
		if len(batch) == 0 {
			if len(delivered) > 0 {
				break
			}
			if s.OnExhausted == ExhaustResetAndRetry && !resetUsed {
				resetUsed = true
				if err := s.Seen.Reset(ctx, userID); err != nil {
					return nil, err
				}
				continue
			}
			metrics.CountDispense("exhausted")
			return nil, ErrExhausted
		}

		for _, id := range batch {
			copyID, err := s.Relay.CopyFromVault(ctx, userID, id)
			if err != nil {
				if relay.IsPermanentlyInvalid(err) {
					// Self-heal: purge the broken entry everywhere and
					// restart selection against the updated catalog.
					if ierr := s.Catalog.Invalidate(ctx, id); ierr != nil {
						return delivered, ierr
					}
					metrics.CountSelfHeal()
					s.Log.Warn().
						Int64("media_id", id).
						Msg("purged broken vault entry")
					s.auditNotice(ctx, fmt.Sprintf("🧹 Purged broken vault entry %d", id))
					restarts++
					if restarts > restartCap {
						if len(delivered) > 0 {
							break sampling
						}
						metrics.CountDispense("exhausted")
						return nil, ErrExhausted
					}
					continue sampling
				}
				metrics.CountDispense("delivery_failed")
				s.Log.Error().
					Int64("user_id", userID).
					Int64("media_id", id).
					Err(err).
					Msg("relay delivery failed")
				return delivered, ErrDeliveryFailed
			}

			if err := s.Seen.MarkSeen(ctx, userID, id); err != nil {
				return delivered, err
			}
			delivered = append(delivered, id)
			s.Expiry.Schedule(userID, copyID, s.Retention)
			if !privileged {
				// Settlement per delivered item; the repo clamps at zero
				// so concurrent duplicate requests cannot drive the
				// balance negative.
				remaining, err := s.Balance.Adjust(ctx, userID, -s.CostPerItem)
				if err != nil {
					return delivered, err
				}
				// The next item needs a coin of its own. Stopping here
				// keeps a short batch, which is still a success.
				if remaining < s.CostPerItem {
					break sampling
				}
			}
		}
		// A short sample finishes on the next pass: re-sampling returns
		// empty and the request completes as a success.
	}

	metrics.CountDispense("delivered")
	metrics.CountDelivered(len(delivered))
	span.SetAttributes(attribute.Int("delivered.count", len(delivered)))
	return delivered, nil
}

// auditNotice mirrors an operational event into the audit channel, when one
// is configured. Failures are logged and dropped.
func (s *DispenserService) auditNotice(ctx context.Context, text string) {
	if s.Audit == nil || s.AuditChatID == 0 {
		return
	}
	if err := s.Audit.SendText(ctx, s.AuditChatID, text); err != nil {
		s.Log.Debug().Err(err).Msg("audit notice not delivered")
	}
}
