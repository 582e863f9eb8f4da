package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
	"github.com/osanhueza/minimarket-backend/pkg/metrics"
	"github.com/osanhueza/minimarket-backend/pkg/realtime"
)

// Service persists low-stock alerts and exposes the attend workflow.
type Service interface {
	OnStockChange(ctx context.Context, product *models.Product) error
	Attend(ctx context.Context, alertID uuid.UUID) error
	List(ctx context.Context, params ListParams) ([]models.Alert, error)
	Get(ctx context.Context, alertID uuid.UUID) (*models.Alert, error)
}

// ListParams configures alert listing.
type ListParams struct {
	Limit          int
	Offset         int
	OnlyUnattended bool
}

type service struct {
	repo      Repository
	publisher realtime.Publisher
	logg      *logger.Logger
	metrics   *metrics.StoreMetrics
}

// NewService wires the alert dependencies.
func NewService(repo Repository, publisher realtime.Publisher, logg *logger.Logger, m *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alert repository required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{repo: repo, publisher: publisher, logg: logg, metrics: m}, nil
}

// OnStockChange records a fresh alert whenever stock sits at or below the
// minimum. Each breach is its own row; attending one alert does not suppress
// the next.
func (s *service) OnStockChange(ctx context.Context, product *models.Product) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product required")
	}
	if product.Stock > product.MinStock {
		return nil
	}

	alert := &models.Alert{
		ProductID:         product.ID,
		Type:              enums.AlertTypeLowStock,
		Message:           fmt.Sprintf("Low stock for %s: %d left (minimum %d)", product.Name, product.Stock, product.MinStock),
		StockAtTrigger:    product.Stock,
		MinStockAtTrigger: product.MinStock,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert alert")
	}

	s.metrics.IncAlertRaised()

	payload := realtime.StockAlert{
		ProductID: product.ID.String(),
		Stock:     product.Stock,
		MinStock:  product.MinStock,
	}
	if err := s.publisher.PublishStockAlert(ctx, payload); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithProductID(ctx, product.ID.String()), "stock alert publish failed: "+err.Error())
	}

	return nil
}

// Attend marks the alert as handled. Attending an already handled alert is a
// no-op success.
func (s *service) Attend(ctx context.Context, alertID uuid.UUID) error {
	if alertID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}

	result, err := s.repo.Attend(ctx, alertID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: attend alert")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	if !result.Updated && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "alert_id", alertID.String()), "alert.attend.noop")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Alert, error) {
	rows, err := s.repo.List(ctx, ListAlertsParams{
		Limit:          params.Limit,
		Offset:         params.Offset,
		OnlyUnattended: params.OnlyUnattended,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list alerts")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, alertID uuid.UUID) (*models.Alert, error) {
	if alertID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}
	alert, err := s.repo.FindByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load alert")
	}
	return alert, nil
}
