package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

// Service exposes catalog management operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	Update(ctx context.Context, productID uuid.UUID, patch ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, productID uuid.UUID) error
	ListCritical(ctx context.Context) ([]models.Product, error)
	Stats(ctx context.Context) (*CatalogStats, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Category    *string
	UnitPrice   decimal.Decimal
	Stock       int
	MinStock    int
	ImageURL    *string
}

// ProductPatch enumerates the fields a catalog update may change. Nil fields
// are left untouched; Stock goes through the inventory service so threshold
// alerting cannot be bypassed.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	UnitPrice   *decimal.Decimal
	Stock       *int
	MinStock    *int
	ImageURL    *string
}

type stockSetter interface {
	SetStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
}

type service struct {
	repo      Repository
	inventory stockSetter
}

// NewService constructs a catalog service instance.
func NewService(repo Repository, inventory stockSetter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{repo: repo, inventory: inventory}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if input.MinStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
	}

	product := &models.Product{
		Name:        name,
		Description: input.Description,
		Category:    input.Category,
		UnitPrice:   input.UnitPrice,
		Stock:       input.Stock,
		MinStock:    input.MinStock,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return products, nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, patch ProductPatch) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		fields["name"] = name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.UnitPrice != nil {
		if patch.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		fields["unit_price"] = *patch.UnitPrice
	}
	if patch.MinStock != nil {
		if *patch.MinStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock cannot be negative")
		}
		fields["min_stock"] = *patch.MinStock
	}
	if patch.ImageURL != nil {
		fields["image_url"] = *patch.ImageURL
	}

	if len(fields) > 0 {
		rows, err := s.repo.UpdateFields(ctx, productID, fields)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		if rows == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}

	if patch.Stock != nil {
		if _, err := s.inventory.SetStock(ctx, productID, *patch.Stock); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, productID)
}

func (s *service) Delete(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rows, err := s.repo.Delete(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) ListCritical(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListCritical(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list critical products")
	}
	return products, nil
}

func (s *service) Stats(ctx context.Context) (*CatalogStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: catalog stats")
	}
	return stats, nil
}
