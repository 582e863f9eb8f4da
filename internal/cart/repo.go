package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
)

// Repository exposes persistence helpers for carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.Cart) error
	FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*models.Cart, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) (int64, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	IncrementItemQuantity(ctx context.Context, itemID uuid.UUID, delta int) (int64, error)
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (int64, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	ListItemRows(ctx context.Context, cartID uuid.UUID) ([]ItemRow, error)
}

// ItemRow joins a cart item against the live catalog: current name, price and
// stock rather than any snapshot.
type ItemRow struct {
	ItemID    uuid.UUID       `gorm:"column:item_id" json:"item_id"`
	ProductID uuid.UUID       `gorm:"column:product_id" json:"product_id"`
	Name      string          `gorm:"column:name" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price" json:"unit_price"`
	Quantity  int             `gorm:"column:quantity" json:"quantity"`
	Stock     int             `gorm:"column:stock" json:"stock"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *repositoryImpl) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByItemID resolves the cart owning the given item.
func (r *repositoryImpl) FindByItemID(ctx context.Context, itemID uuid.UUID) (*models.Cart, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, item.CartID)
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) IncrementItemQuantity(ctx context.Context, itemID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}, "id = ?", itemID)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repositoryImpl) ListItemRows(ctx context.Context, cartID uuid.UUID) ([]ItemRow, error) {
	var rows []ItemRow
	err := r.db.WithContext(ctx).
		Table("cart_items ci").
		Select("ci.id AS item_id, ci.product_id, p.name, p.unit_price, ci.quantity, p.stock").
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
