package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/domain"
)

func seedCatalog(t *testing.T, db *gorm.DB, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		if err := RegisterMedia(ctx, db, id, fmt.Sprintf("uniq-%d", id)); err != nil {
			t.Fatalf("seed media %d: %v", id, err)
		}
	}
}

func TestRegisterMedia_DuplicateFingerprint(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	ctx := context.Background()

	if err := RegisterMedia(ctx, db, 1, "abc"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := RegisterMedia(ctx, db, 2, "abc")
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey, got %v", err)
	}
}

func TestSampleUnseenMedia_EmptyExclusionReturnsAll(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	seedCatalog(t, db, 1, 2, 3)

	ids, err := SampleUnseenMedia(context.Background(), db, nil, 10)
	if err != nil {
		t.Fatalf("SampleUnseenMedia: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3: %v", len(ids), ids)
	}
}

func TestSampleUnseenMedia_ExcludesSeen(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	seedCatalog(t, db, 1, 2, 3, 4)

	ids, err := SampleUnseenMedia(context.Background(), db, []int64{1, 3}, 10)
	if err != nil {
		t.Fatalf("SampleUnseenMedia: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %v, want exactly ids 2 and 4", ids)
	}
	for _, id := range ids {
		if id == 1 || id == 3 {
			t.Fatalf("excluded id %d came back", id)
		}
	}
}

func TestSampleUnseenMedia_HonorsLimit(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	seedCatalog(t, db, 1, 2, 3, 4, 5)

	ids, err := SampleUnseenMedia(context.Background(), db, nil, 2)
	if err != nil {
		t.Fatalf("SampleUnseenMedia: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
}

func TestSampleUnseenMedia_ExhaustedIsEmptyNotError(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	seedCatalog(t, db, 1, 2)

	ids, err := SampleUnseenMedia(context.Background(), db, []int64{1, 2}, 4)
	if err != nil {
		t.Fatalf("SampleUnseenMedia: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("got %v, want empty", ids)
	}
}

func TestInvalidateMedia_PurgesCatalogAndSeenRows(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{}, &domain.SeenMedia{})
	ctx := context.Background()
	seedCatalog(t, db, 1, 2)

	// Two users have the doomed item in their viewed sets.
	for _, uid := range []int64{10, 20} {
		if err := MarkSeen(ctx, db, uid, 1); err != nil {
			t.Fatalf("mark seen: %v", err)
		}
	}
	if err := MarkSeen(ctx, db, 10, 2); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	if err := InvalidateMedia(ctx, db, 1); err != nil {
		t.Fatalf("InvalidateMedia: %v", err)
	}

	if n, _ := CountMedia(ctx, db); n != 1 {
		t.Fatalf("catalog count = %d, want 1", n)
	}
	// Every reference to item 1 is gone; item 2's row survives.
	seen10, _ := ListSeen(ctx, db, 10)
	if len(seen10) != 1 || seen10[0] != 2 {
		t.Fatalf("user 10 seen = %v, want [2]", seen10)
	}
	seen20, _ := ListSeen(ctx, db, 20)
	if len(seen20) != 0 {
		t.Fatalf("user 20 seen = %v, want empty", seen20)
	}
}

func TestInvalidateMedia_Idempotent(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{}, &domain.SeenMedia{})
	ctx := context.Background()

	if err := InvalidateMedia(ctx, db, 999); err != nil {
		t.Fatalf("invalidating absent item errored: %v", err)
	}
	if err := InvalidateMedia(ctx, db, 999); err != nil {
		t.Fatalf("second invalidation errored: %v", err)
	}
}

func TestMediaExists(t *testing.T) {
	db := newRepoDB(t, &domain.MediaItem{})
	ctx := context.Background()

	ok, err := MediaExists(ctx, db, "abc")
	if err != nil || ok {
		t.Fatalf("absent fingerprint reported existing: ok=%v err=%v", ok, err)
	}
	if err := RegisterMedia(ctx, db, 1, "abc"); err != nil {
		t.Fatalf("register: %v", err)
	}
	ok, err = MediaExists(ctx, db, "abc")
	if err != nil || !ok {
		t.Fatalf("existing fingerprint not found: ok=%v err=%v", ok, err)
	}
}
