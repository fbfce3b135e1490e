package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type AttributionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attr *types.Attribution) (*types.Attribution, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Attribution, error)
	GetBySaleID(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*types.Attribution, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attribution, error)
	Update(ctx context.Context, tx *gorm.DB, attr *types.Attribution) error
	Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.AttributionStatus, confidence float64) error
}

type attributionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttributionRepo(db *gorm.DB, baseLog *logger.Logger) AttributionRepo {
	return &attributionRepo{db: db, log: baseLog.With("repo", "AttributionRepo")}
}

func (r *attributionRepo) Create(ctx context.Context, tx *gorm.DB, attr *types.Attribution) (*types.Attribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(attr).Error; err != nil {
		return nil, err
	}
	return attr, nil
}

func (r *attributionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Attribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Attribution
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *attributionRepo) GetBySaleID(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*types.Attribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Attribution
	if err := transaction.WithContext(ctx).
		Where("sale_id = ?", saleID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *attributionRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Attribution
	if userID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attributionRepo) Update(ctx context.Context, tx *gorm.DB, attr *types.Attribution) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Save(attr).Error
}

// Finalize applies a feedback verdict in one update: the terminal
// status together with the confidence the verdict pins.
func (r *attributionRepo) Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.AttributionStatus, confidence float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Attribution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"confidence": confidence,
		}).Error
}
