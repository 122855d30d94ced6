// Package services – CatalogService and SeenService
//
// CatalogService owns the vault media catalog: registering uploads with a
// content-fingerprint dedup key, randomly sampling unseen items for the
// dispenser, and the cross-cutting invalidate operation that purges a broken
// locator from the catalog and every viewed-set atomically.
//
// SeenService owns the per-user viewed-set with membership-only semantics:
// idempotent marking, full reads for exclusion, and a reset used by the
// optional wraparound policy when a user has exhausted the catalog.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// MediaRepo defines the repository contract required by CatalogService.
type MediaRepo interface {
	RegisterMedia(ctx context.Context, db *gorm.DB, messageID int64, dedupKey string) error
	SampleUnseenMedia(ctx context.Context, db *gorm.DB, excluded []int64, limit int) ([]int64, error)
	InvalidateMedia(ctx context.Context, db *gorm.DB, messageID int64) error
	MediaExists(ctx context.Context, db *gorm.DB, dedupKey string) (bool, error)
	CountMedia(ctx context.Context, db *gorm.DB) (int64, error)
}

// CatalogService provides operations over the vault media catalog.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the media repository used by this service.
	Repo MediaRepo
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB, r MediaRepo) *CatalogService {
	return &CatalogService{DB: db, Repo: r}
}

// Register catalogs a vault message under its content fingerprint. A dedup
// collision is reported as ErrAlreadyExists, not a fault.
func (s *CatalogService) Register(ctx context.Context, messageID int64, dedupKey string) error {
	err := s.Repo.RegisterMedia(ctx, s.DB, messageID, dedupKey)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	return err
}

// SampleUnseen returns up to batchSize random catalog identifiers outside
// the excluded set. A short or empty result means the catalog is exhausted
// for this caller and is not an error.
func (s *CatalogService) SampleUnseen(ctx context.Context, excluded []int64, batchSize int) ([]int64, error) {
	return s.Repo.SampleUnseenMedia(ctx, s.DB, excluded, batchSize)
}

// Invalidate removes the item from the catalog and from every viewed-set in
// one transaction. Calling it again for the same identifier is a no-op.
func (s *CatalogService) Invalidate(ctx context.Context, messageID int64) error {
	return s.Repo.InvalidateMedia(ctx, s.DB, messageID)
}

// Exists reports whether the content fingerprint is already cataloged.
func (s *CatalogService) Exists(ctx context.Context, dedupKey string) (bool, error) {
	return s.Repo.MediaExists(ctx, s.DB, dedupKey)
}

// Count returns the number of cataloged items.
func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	return s.Repo.CountMedia(ctx, s.DB)
}

// SeenRepo defines the repository contract required by SeenService.
type SeenRepo interface {
	ListSeen(ctx context.Context, db *gorm.DB, userID int64) ([]int64, error)
	MarkSeen(ctx context.Context, db *gorm.DB, userID, messageID int64) error
	ResetSeen(ctx context.Context, db *gorm.DB, userID int64) error
}

// SeenService tracks which media each user has already received.
type SeenService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the viewed-set repository used by this service.
	Repo SeenRepo
}

// NewSeenService constructs a SeenService.
func NewSeenService(db *gorm.DB, r SeenRepo) *SeenService {
	return &SeenService{DB: db, Repo: r}
}

// GetSeen returns the viewed-set for userID; empty when none recorded.
func (s *SeenService) GetSeen(ctx context.Context, userID int64) ([]int64, error) {
	return s.Repo.ListSeen(ctx, s.DB, userID)
}

// MarkSeen adds an identifier to the viewed-set. Idempotent.
func (s *SeenService) MarkSeen(ctx context.Context, userID, messageID int64) error {
	return s.Repo.MarkSeen(ctx, s.DB, userID, messageID)
}

// Reset clears the viewed-set for userID.
func (s *SeenService) Reset(ctx context.Context, userID int64) error {
	return s.Repo.ResetSeen(ctx, s.DB, userID)
}
