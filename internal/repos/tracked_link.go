package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type TrackedLinkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, link *types.TrackedLink) (*types.TrackedLink, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackedLink, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.TrackedLink, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrackedLink, error)
}

type trackedLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackedLinkRepo(db *gorm.DB, baseLog *logger.Logger) TrackedLinkRepo {
	return &trackedLinkRepo{db: db, log: baseLog.With("repo", "TrackedLinkRepo")}
}

func (r *trackedLinkRepo) Create(ctx context.Context, tx *gorm.DB, link *types.TrackedLink) (*types.TrackedLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (r *trackedLinkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackedLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.TrackedLink
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *trackedLinkRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.TrackedLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.TrackedLink
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *trackedLinkRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.TrackedLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrackedLink
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
