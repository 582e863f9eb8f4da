package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
)

// Repository exposes the stock-level persistence helpers. Every mutation is a
// single conditional UPDATE checked through RowsAffected so concurrent
// requests can never drive stock negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, quantity int) (int64, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) SetStock(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", quantity)
	return result.RowsAffected, result.Error
}

// AdjustStock applies a relative stock change. Negative deltas carry a
// stock >= ? guard so the row is only touched when enough units remain.
func (r *repositoryImpl) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	result := query.Update("stock", gorm.Expr("stock + ?", delta))
	return result.RowsAffected, result.Error
}
