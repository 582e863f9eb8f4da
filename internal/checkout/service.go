package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/internal/cart"
	"github.com/osanhueza/minimarket-backend/internal/inventory"
	"github.com/osanhueza/minimarket-backend/internal/sales"
	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
	"github.com/osanhueza/minimarket-backend/pkg/metrics"
	"github.com/osanhueza/minimarket-backend/pkg/realtime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type alertNotifier interface {
	OnStockChange(ctx context.Context, product *models.Product) error
}

// Service converts an active cart into an immutable sale record.
type Service interface {
	Execute(ctx context.Context, customerID, cartID uuid.UUID, input CheckoutInput) (*models.Sale, error)
}

// CheckoutInput captures the checkout parameters beyond the cart itself.
type CheckoutInput struct {
	EmployeeID    *uuid.UUID
	PaymentMethod enums.PaymentMethod
}

type service struct {
	tx       txRunner
	cartRepo cart.Repository
	invRepo  inventory.Repository
	saleRepo sales.Repository
	alerts   alertNotifier
	pub      realtime.Publisher
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	invRepo inventory.Repository,
	saleRepo sales.Repository,
	alerts alertNotifier,
	pub realtime.Publisher,
	logg *logger.Logger,
	m *metrics.StoreMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if saleRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alert notifier required")
	}
	if pub == nil {
		pub = realtime.NoopPublisher{}
	}
	return &service{
		tx:       tx,
		cartRepo: cartRepo,
		invRepo:  invRepo,
		saleRepo: saleRepo,
		alerts:   alerts,
		pub:      pub,
		logg:     logg,
		metrics:  m,
	}, nil
}

// Execute runs the whole conversion in one transaction: ownership and status
// guards, per-line conditional stock decrements, the price snapshot into sale
// lines, and closing the cart. Either everything commits or nothing does.
// Realtime and alert notifications go out after the commit and never fail the
// sale.
func (s *service) Execute(ctx context.Context, customerID, cartID uuid.UUID, input CheckoutInput) (*models.Sale, error) {
	if customerID == uuid.Nil {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeValidation, "customer id required"))
	}
	if cartID == uuid.Nil {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeValidation, "cart id required"))
	}
	if !input.PaymentMethod.IsValid() {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod)))
	}

	var (
		sale     *models.Sale
		affected []models.Product
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		invRepo := s.invRepo.WithTx(tx)
		saleRepo := s.saleRepo.WithTx(tx)

		record, err := cartRepo.FindByID(ctx, cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if record.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another customer")
		}
		if record.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cart already processed")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart contains no items")
		}

		total := decimal.Zero
		lines := make([]models.SaleLine, 0, len(record.Items))
		affected = affected[:0]

		for _, item := range record.Items {
			rows, err := invRepo.AdjustStock(ctx, item.ProductID, -item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if rows == 0 {
				return s.explainFailedDecrement(ctx, invRepo, item.ProductID, item.Quantity)
			}

			product, err := invRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload product")
			}

			subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			lines = append(lines, models.SaleLine{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   product.UnitPrice,
				Subtotal:    subtotal,
			})
			total = total.Add(subtotal)
			affected = append(affected, *product)
		}

		sale = &models.Sale{
			CustomerID:    customerID,
			EmployeeID:    input.EmployeeID,
			CartID:        &record.ID,
			PaymentMethod: input.PaymentMethod,
			Status:        enums.SaleStatusActive,
			Total:         total,
			Lines:         lines,
		}
		if err := saleRepo.Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}

		if _, err := cartRepo.UpdateStatus(ctx, record.ID, enums.CartStatusCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete cart")
		}
		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart items")
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.metrics.IncCheckoutSuccess()
	s.notify(ctx, affected)

	return sale, nil
}

// notify fans the post-commit events out. Failures are logged and swallowed;
// the sale is already durable.
func (s *service) notify(ctx context.Context, affected []models.Product) {
	updates := make([]realtime.StockUpdate, 0, len(affected))
	for _, product := range affected {
		updates = append(updates, realtime.StockUpdate{
			ProductID: product.ID.String(),
			Stock:     product.Stock,
		})
	}
	if err := realtime.PublishUpdates(ctx, s.pub, updates); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "stock update publish failed: "+err.Error())
	}

	for i := range affected {
		if err := s.alerts.OnStockChange(ctx, &affected[i]); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithProductID(ctx, affected[i].ID.String()), "stock alert notification failed", err)
		}
	}
}

func (s *service) explainFailedDecrement(ctx context.Context, repo inventory.Repository, productID uuid.UUID, requested int) error {
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

func (s *service) fail(err error) error {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncCheckoutFailure(code)
	return err
}
