package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/dkarpov/go-vault-bot/internal/domain"
	"github.com/dkarpov/go-vault-bot/internal/repo"
)

// svcMediaRepo proxies the media repository free functions for tests.
type svcMediaRepo struct{}

func (svcMediaRepo) RegisterMedia(ctx context.Context, db *gorm.DB, messageID int64, dedupKey string) error {
	return repo.RegisterMedia(ctx, db, messageID, dedupKey)
}

func (svcMediaRepo) SampleUnseenMedia(ctx context.Context, db *gorm.DB, excluded []int64, limit int) ([]int64, error) {
	return repo.SampleUnseenMedia(ctx, db, excluded, limit)
}

func (svcMediaRepo) InvalidateMedia(ctx context.Context, db *gorm.DB, messageID int64) error {
	return repo.InvalidateMedia(ctx, db, messageID)
}

func (svcMediaRepo) MediaExists(ctx context.Context, db *gorm.DB, dedupKey string) (bool, error) {
	return repo.MediaExists(ctx, db, dedupKey)
}

func (svcMediaRepo) CountMedia(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMedia(ctx, db)
}

// svcSeenRepo proxies the viewed-set repository free functions for tests.
type svcSeenRepo struct{}

func (svcSeenRepo) ListSeen(ctx context.Context, db *gorm.DB, userID int64) ([]int64, error) {
	return repo.ListSeen(ctx, db, userID)
}

func (svcSeenRepo) MarkSeen(ctx context.Context, db *gorm.DB, userID, messageID int64) error {
	return repo.MarkSeen(ctx, db, userID, messageID)
}

func (svcSeenRepo) ResetSeen(ctx context.Context, db *gorm.DB, userID int64) error {
	return repo.ResetSeen(ctx, db, userID)
}

func TestCatalogService_Register_DuplicateBecomesErrAlreadyExists(t *testing.T) {
	db := newSvcDB(t, &domain.MediaItem{})
	s := NewCatalogService(db, svcMediaRepo{})
	ctx := context.Background()

	if err := s.Register(ctx, 1, "fp"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := s.Register(ctx, 2, "fp")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCatalogService_SampleAndCount(t *testing.T) {
	db := newSvcDB(t, &domain.MediaItem{})
	s := NewCatalogService(db, svcMediaRepo{})
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := s.Register(ctx, i, fmt.Sprintf("fp-%d", i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}
	ids, err := s.SampleUnseen(ctx, []int64{2}, 10)
	if err != nil {
		t.Fatalf("SampleUnseen: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("sampled %v, want 2 items", ids)
	}
}

func TestCatalogService_Invalidate_RemovesEverywhere(t *testing.T) {
	db := newSvcDB(t, &domain.MediaItem{}, &domain.SeenMedia{})
	cat := NewCatalogService(db, svcMediaRepo{})
	seen := NewSeenService(db, svcSeenRepo{})
	ctx := context.Background()

	if err := cat.Register(ctx, 1, "fp"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := seen.MarkSeen(ctx, 10, 1); err != nil {
		t.Fatalf("mark: %v", err)
	}

	if err := cat.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n, _ := cat.Count(ctx); n != 0 {
		t.Fatalf("catalog count = %d after invalidate", n)
	}
	if got, _ := seen.GetSeen(ctx, 10); len(got) != 0 {
		t.Fatalf("viewed-set still references purged item: %v", got)
	}
}

func TestSeenService_MarkAndReset(t *testing.T) {
	db := newSvcDB(t, &domain.SeenMedia{})
	s := NewSeenService(db, svcSeenRepo{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.MarkSeen(ctx, 1, 100); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}
	}
	got, err := s.GetSeen(ctx, 1)
	if err != nil {
		t.Fatalf("GetSeen: %v", err)
	}
	if len(got) != 1 || got[0] != 100 {
		t.Fatalf("seen = %v, want [100]", got)
	}

	if err := s.Reset(ctx, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := s.GetSeen(ctx, 1); len(got) != 0 {
		t.Fatalf("seen after reset = %v", got)
	}
}
