package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type ContentPostRepo interface {
	Create(ctx context.Context, tx *gorm.DB, post *types.ContentPost) (*types.ContentPost, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentPost, error)
	GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*types.ContentPost, error)
}

type contentPostRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentPostRepo(db *gorm.DB, baseLog *logger.Logger) ContentPostRepo {
	return &contentPostRepo{db: db, log: baseLog.With("repo", "ContentPostRepo")}
}

func (r *contentPostRepo) Create(ctx context.Context, tx *gorm.DB, post *types.ContentPost) (*types.ContentPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (r *contentPostRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ContentPost
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *contentPostRepo) GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*types.ContentPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentPost
	if userID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND posted_at >= ?", userID, since).
		Order("posted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
