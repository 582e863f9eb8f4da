package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
	"github.com/osanhueza/minimarket-backend/pkg/metrics"
	"github.com/osanhueza/minimarket-backend/pkg/realtime"
)

// Service exposes the stock operations. Mutations report the resulting level
// through the injected alert notifier and the realtime channel; both are
// best-effort and never fail the mutation itself.
type Service interface {
	GetStock(ctx context.Context, productID uuid.UUID) (int, error)
	SetStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	TransferStock(ctx context.Context, fromID, toID uuid.UUID, quantity int) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type alertNotifier interface {
	OnStockChange(ctx context.Context, product *models.Product) error
}

type service struct {
	tx        txRunner
	repo      Repository
	alerts    alertNotifier
	publisher realtime.Publisher
	logg      *logger.Logger
	metrics   *metrics.StoreMetrics
}

// NewService wires the inventory dependencies.
func NewService(tx txRunner, repo Repository, alerts alertNotifier, publisher realtime.Publisher, logg *logger.Logger, m *metrics.StoreMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert notifier required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{
		tx:        tx,
		repo:      repo,
		alerts:    alerts,
		publisher: publisher,
		logg:      logg,
		metrics:   m,
	}, nil
}

func (s *service) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product.Stock, nil
}

func (s *service) SetStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	rows, err := s.repo.SetStock(ctx, productID, quantity)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set stock")
	}
	if rows == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	s.metrics.IncStockMutation("set")
	return s.reportChange(ctx, productID)
}

func (s *service) IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be positive")
	}

	rows, err := s.repo.AdjustStock(ctx, productID, quantity)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment stock")
	}
	if rows == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	s.metrics.IncStockMutation("increment")
	return s.reportChange(ctx, productID)
}

func (s *service) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be positive")
	}

	rows, err := s.repo.AdjustStock(ctx, productID, -quantity)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
	}
	if rows == 0 {
		return 0, s.explainFailedDecrement(ctx, productID, quantity)
	}

	s.metrics.IncStockMutation("decrement")
	return s.reportChange(ctx, productID)
}

func (s *service) TransferStock(ctx context.Context, fromID, toID uuid.UUID, quantity int) error {
	if fromID == uuid.Nil || toID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination product ids required")
	}
	if fromID == toID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer stock to the same product")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.AdjustStock(ctx, fromID, -quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transfer decrement")
		}
		if rows == 0 {
			return s.explainFailedDecrementTx(ctx, repo, fromID, quantity)
		}

		rows, err = repo.AdjustStock(ctx, toID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transfer increment")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "destination product not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncStockMutation("transfer")
	// the transfer committed; reporting failures must not surface as errors
	for _, productID := range []uuid.UUID{fromID, toID} {
		if _, err := s.reportChange(ctx, productID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithProductID(ctx, productID.String()), "post-transfer stock report failed", err)
		}
	}
	return nil
}

// reportChange reloads the product, emits the realtime update and routes the
// new level through the alert notifier. Publish failures are logged only.
func (s *service) reportChange(ctx context.Context, productID uuid.UUID) (int, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload product")
	}

	update := realtime.StockUpdate{ProductID: product.ID.String(), Stock: product.Stock}
	if err := s.publisher.PublishStockUpdate(ctx, update); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithProductID(ctx, product.ID.String()), "stock update publish failed: "+err.Error())
	}

	if err := s.alerts.OnStockChange(ctx, product); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithProductID(ctx, product.ID.String()), "stock alert notification failed", err)
	}

	return product.Stock, nil
}

func (s *service) explainFailedDecrement(ctx context.Context, productID uuid.UUID, requested int) error {
	return s.explainFailedDecrementTx(ctx, s.repo, productID, requested)
}

// explainFailedDecrementTx decides whether a zero-row decrement means the
// product is missing or its stock is short, and names the shortfall.
func (s *service) explainFailedDecrementTx(ctx context.Context, repo Repository, productID uuid.UUID, requested int) error {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"requested":  requested,
			"available":  product.Stock,
		})
}
