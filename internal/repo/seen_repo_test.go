package repo

import (
	"context"
	"testing"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

func TestMarkSeen_Idempotent(t *testing.T) {
	db := newRepoDB(t, &domain.SeenMedia{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := MarkSeen(ctx, db, 1, 100); err != nil {
			t.Fatalf("MarkSeen attempt %d: %v", i, err)
		}
	}
	n, err := CountSeen(ctx, db, 1)
	if err != nil {
		t.Fatalf("CountSeen: %v", err)
	}
	if n != 1 {
		t.Fatalf("repeat marks inserted %d rows, want 1", n)
	}
}

func TestListSeen_PerUserIsolation(t *testing.T) {
	db := newRepoDB(t, &domain.SeenMedia{})
	ctx := context.Background()

	for _, id := range []int64{100, 200} {
		if err := MarkSeen(ctx, db, 1, id); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if err := MarkSeen(ctx, db, 2, 300); err != nil {
		t.Fatalf("mark: %v", err)
	}

	seen, err := ListSeen(ctx, db, 1)
	if err != nil {
		t.Fatalf("ListSeen: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("user 1 seen = %v, want two ids", seen)
	}
	for _, id := range seen {
		if id != 100 && id != 200 {
			t.Fatalf("foreign id %d in user 1's set", id)
		}
	}
}

func TestListSeen_EmptyForNewUser(t *testing.T) {
	db := newRepoDB(t, &domain.SeenMedia{})

	seen, err := ListSeen(context.Background(), db, 42)
	if err != nil {
		t.Fatalf("ListSeen: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("fresh user has seen = %v", seen)
	}
}

func TestResetSeen_ClearsOnlyThatUser(t *testing.T) {
	db := newRepoDB(t, &domain.SeenMedia{})
	ctx := context.Background()

	if err := MarkSeen(ctx, db, 1, 100); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := MarkSeen(ctx, db, 2, 100); err != nil {
		t.Fatalf("mark: %v", err)
	}

	if err := ResetSeen(ctx, db, 1); err != nil {
		t.Fatalf("ResetSeen: %v", err)
	}
	if n, _ := CountSeen(ctx, db, 1); n != 0 {
		t.Fatalf("user 1 still has %d seen rows", n)
	}
	if n, _ := CountSeen(ctx, db, 2); n != 1 {
		t.Fatalf("reset leaked into user 2: %d rows", n)
	}
}
