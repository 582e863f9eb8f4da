package alerts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
)

// Repository exposes persistence helpers for stock alerts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	Attend(ctx context.Context, id uuid.UUID) (AttendResult, error)
}

// ListAlertsParams configures alert listing.
type ListAlertsParams struct {
	Limit          int
	Offset         int
	OnlyUnattended bool
}

// AttendResult reports whether the alert exists and whether this call was the
// one that flipped it.
type AttendResult struct {
	Updated bool
	Found   bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an alert repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListAlertsParams) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{})
	if params.OnlyUnattended {
		query = query.Where("attended = ?", false)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var alerts []models.Alert
	if err := query.Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// Attend flips the attended flag. A second call on the same alert reports
// Found without Updated so the service can treat it as a no-op.
func (r *repositoryImpl) Attend(ctx context.Context, id uuid.UUID) (AttendResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND attended = ?", id, false).
		Update("attended", true)
	if result.Error != nil {
		return AttendResult{}, result.Error
	}

	attend := AttendResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		attend.Found = true
		return attend, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return AttendResult{}, err
	}
	attend.Found = count > 0
	return attend, nil
}
