package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type ClickEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, click *types.ClickEvent) (*types.ClickEvent, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ClickEvent, error)
	GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*types.ClickEvent, error)
	MarkAttributed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type clickEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClickEventRepo(db *gorm.DB, baseLog *logger.Logger) ClickEventRepo {
	return &clickEventRepo{db: db, log: baseLog.With("repo", "ClickEventRepo")}
}

// Create is idempotent on the click id: re-ingesting an already stored
// click is a no-op on the durable row.
func (r *clickEventRepo) Create(ctx context.Context, tx *gorm.DB, click *types.ClickEvent) (*types.ClickEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(click).Error; err != nil {
		return nil, err
	}
	return click, nil
}

func (r *clickEventRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ClickEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ClickEvent
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *clickEventRepo) GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*types.ClickEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ClickEvent
	if userID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND clicked_at >= ?", userID, since).
		Order("clicked_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *clickEventRepo) MarkAttributed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ClickEvent{}).
		Where("id = ?", id).
		Update("attributed", true).Error
}
