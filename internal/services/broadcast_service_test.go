package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dkarpov/go-vault-bot/internal/domain"
	"github.com/dkarpov/go-vault-bot/internal/repo"
)

// flakyNotifier fails for the chat IDs listed in failFor.
type flakyNotifier struct {
	failFor map[int64]bool
	sent    []int64
}

func (f *flakyNotifier) SendText(_ context.Context, chatID int64, _ string) error {
	if f.failFor[chatID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func TestBroadcastText_SkipsFailedRecipients(t *testing.T) {
	db := newSvcDB(t, &domain.Account{})
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		if _, err := repo.GetOrCreateAccount(ctx, db, id, 0); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	n := &flakyNotifier{failFor: map[int64]bool{2: true}}
	s := NewBroadcastService(db, svcAccountRepo{}, n, 1000, 10, zerolog.Nop())

	sent, err := s.BroadcastText(ctx, "hello")
	if err != nil {
		t.Fatalf("BroadcastText: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	for _, id := range n.sent {
		if id == 2 {
			t.Fatalf("blocked user received the broadcast")
		}
	}
}

func TestBroadcastText_CanceledContextStops(t *testing.T) {
	db := newSvcDB(t, &domain.Account{})
	ctx := context.Background()
	for id := int64(1); id <= 5; id++ {
		if _, err := repo.GetOrCreateAccount(ctx, db, id, 0); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	n := &flakyNotifier{}
	s := NewBroadcastService(db, svcAccountRepo{}, n, 1000, 10, zerolog.Nop())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := s.BroadcastText(canceled, "hello")
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestGiftAll_CreditsEveryAccount(t *testing.T) {
	db := newSvcDB(t, &domain.Account{})
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		if _, err := repo.GetOrCreateAccount(ctx, db, id, 10); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	s := NewBroadcastService(db, svcAccountRepo{}, &flakyNotifier{}, 1000, 10, zerolog.Nop())
	count, err := s.GiftAll(ctx, 5)
	if err != nil {
		t.Fatalf("GiftAll: %v", err)
	}
	if count != 3 {
		t.Fatalf("credited %d accounts, want 3", count)
	}
	acc, _ := repo.GetAccount(ctx, db, 1)
	if acc.Balance != 15 {
		t.Fatalf("balance = %d, want 15", acc.Balance)
	}
}
