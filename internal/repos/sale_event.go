package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type SaleEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sale *types.SaleEvent) (*types.SaleEvent, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SaleEvent, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SaleEvent, error)
}

type saleEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSaleEventRepo(db *gorm.DB, baseLog *logger.Logger) SaleEventRepo {
	return &saleEventRepo{db: db, log: baseLog.With("repo", "SaleEventRepo")}
}

func (r *saleEventRepo) Create(ctx context.Context, tx *gorm.DB, sale *types.SaleEvent) (*types.SaleEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *saleEventRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SaleEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SaleEvent
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *saleEventRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SaleEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SaleEvent
	if userID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
