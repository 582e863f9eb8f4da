package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db"
	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

// Service exposes the customer cart operations. Stock checks on the way in are
// advisory; the checkout transaction is the only authoritative gate.
type Service interface {
	GetOrCreateActiveCart(ctx context.Context, customerID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*CartView, error)
}

// CartView is the cart as returned to clients: live names and prices joined
// from the catalog, with a decimal total.
type CartView struct {
	CartID     uuid.UUID        `json:"cart_id"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Status     enums.CartStatus `json:"status"`
	Items      []ItemView       `json:"items"`
	Total      decimal.Decimal  `json:"total"`
}

// ItemView is one cart line with its computed subtotal.
type ItemView struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Stock     int             `json:"stock"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     Repository
	products productLoader
}

// NewService wires the cart dependencies.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

// GetOrCreateActiveCart returns the customer's open cart, creating one when
// none exists. The partial unique index arbitrates concurrent creates: the
// loser re-fetches the winner's row.
func (s *service) GetOrCreateActiveCart(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	cart, err := s.findOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) findOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	existing, err := s.repo.FindActiveByCustomer(ctx, customerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load active cart")
	}

	fresh := &models.Cart{CustomerID: customerID, Status: enums.CartStatusActive}
	if err := s.repo.Create(ctx, fresh); err != nil {
		if db.IsUniqueViolation(err, "idx_carts_customer_active") {
			winner, ferr := s.repo.FindActiveByCustomer(ctx, customerID)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "db: reload active cart")
			}
			return winner, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	return fresh, nil
}

func (s *service) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*CartView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be positive")
	}

	cart, err := s.findOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	existingQty := 0
	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		existingQty = item.Quantity
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}

	if existingQty+quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s", product.Name)).
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  existingQty + quantity,
				"available":  product.Stock,
			})
	}

	if item != nil {
		if _, err := s.repo.IncrementItemQuantity(ctx, item.ID, quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment cart item")
		}
	} else {
		fresh := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := s.repo.CreateItem(ctx, fresh); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart item")
		}
	}

	return s.buildView(ctx, cart)
}

func (s *service) UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be positive")
	}

	cart, item, err := s.loadOwnedItem(ctx, customerID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s", product.Name)).
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  quantity,
				"available":  product.Stock,
			})
	}

	if _, err := s.repo.SetItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
	}

	return s.buildView(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*CartView, error) {
	cart, item, err := s.loadOwnedItem(ctx, customerID, itemID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.DeleteItem(ctx, cart.ID, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	return s.buildView(ctx, cart)
}

// loadOwnedItem resolves an item to its cart and enforces ownership and the
// active-status guard shared by every item mutation.
func (s *service) loadOwnedItem(ctx context.Context, customerID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	if customerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if itemID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	cart, err := s.repo.FindByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart for item")
	}
	if cart.CustomerID != customerID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another customer")
	}
	if cart.Status != enums.CartStatusActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidState, "cart is no longer active")
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (s *service) buildView(ctx context.Context, cart *models.Cart) (*CartView, error) {
	rows, err := s.repo.ListItemRows(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart items")
	}

	view := &CartView{
		CartID:     cart.ID,
		CustomerID: cart.CustomerID,
		Status:     cart.Status,
		Items:      make([]ItemView, 0, len(rows)),
		Total:      decimal.Zero,
	}
	for _, row := range rows {
		subtotal := row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))
		view.Items = append(view.Items, ItemView{
			ItemID:    row.ItemID,
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Quantity:  row.Quantity,
			Subtotal:  subtotal,
			Stock:     row.Stock,
		})
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}
