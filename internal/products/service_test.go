package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

// fakeStockSetter records SetStock calls and applies them directly.
type fakeStockSetter struct {
	db    *gorm.DB
	calls int
}

func (f *fakeStockSetter) SetStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	f.calls++
	result := f.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", quantity)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return quantity, nil
}

func newProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  min_stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newProductService(t *testing.T, db *gorm.DB) (Service, *fakeStockSetter) {
	t.Helper()

	setter := &fakeStockSetter{db: db}
	svc, err := NewService(NewRepository(db), setter)
	if err != nil {
		t.Fatalf("product service: %v", err)
	}
	return svc, setter
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:      "  Leche Entera 1L  ",
		UnitPrice: decimal.NewFromInt(10),
		Stock:     5,
		MinStock:  2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if product.Name != "Leche Entera 1L" {
		t.Fatalf("expected trimmed name, got %q", product.Name)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	cases := []CreateProductInput{
		{Name: "   ", UnitPrice: decimal.NewFromInt(1)},
		{Name: "Pan", UnitPrice: decimal.NewFromInt(-1)},
		{Name: "Pan", UnitPrice: decimal.NewFromInt(1), Stock: -1},
		{Name: "Pan", UnitPrice: decimal.NewFromInt(1), MinStock: -1},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("input %+v: unexpected error %v", input, err)
		}
	}
}

func TestUpdateProductPatch(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:      "Cafe",
		UnitPrice: decimal.NewFromInt(10),
		Stock:     5,
		MinStock:  1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Cafe Molido"
	price := decimal.NewFromInt(12)
	minStock := 3
	updated, err := svc.Update(context.Background(), product.ID, ProductPatch{
		Name:      &name,
		UnitPrice: &price,
		MinStock:  &minStock,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Cafe Molido" {
		t.Fatalf("unexpected name: %s", updated.Name)
	}
	if !updated.UnitPrice.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected price: %s", updated.UnitPrice)
	}
	if updated.MinStock != 3 {
		t.Fatalf("unexpected min stock: %d", updated.MinStock)
	}
	if updated.Stock != 5 {
		t.Fatalf("stock must be untouched, got %d", updated.Stock)
	}
}

func TestUpdateProductStockGoesThroughInventory(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, setter := newProductService(t, db)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:      "Pan",
		UnitPrice: decimal.NewFromInt(1),
		Stock:     5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stock := 9
	updated, err := svc.Update(context.Background(), product.ID, ProductPatch{Stock: &stock})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if setter.calls != 1 {
		t.Fatalf("stock patch must route through inventory, calls=%d", setter.calls)
	}
	if updated.Stock != 9 {
		t.Fatalf("unexpected stock: %d", updated.Stock)
	}
}

func TestUpdateUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	name := "Ghost"
	_, err := svc.Update(context.Background(), uuid.New(), ProductPatch{Name: &name})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:      "Te",
		UnitPrice: decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.Get(context.Background(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), product.ID); err == nil {
		t.Fatal("double delete must fail")
	}
}

func TestListCriticalAndStats(t *testing.T) {
	t.Parallel()

	db := newProductsTestDB(t)
	svc, _ := newProductService(t, db)

	seed := []struct {
		name     string
		stock    int
		minStock int
	}{
		{"Leche", 1, 3},
		{"Pan", 3, 3},
		{"Cafe", 10, 2},
	}
	for _, s := range seed {
		if _, err := svc.Create(context.Background(), CreateProductInput{
			Name:      s.name,
			UnitPrice: decimal.NewFromInt(1),
			Stock:     s.stock,
			MinStock:  s.minStock,
		}); err != nil {
			t.Fatalf("create %s: %v", s.name, err)
		}
	}

	critical, err := svc.ListCritical(context.Background())
	if err != nil {
		t.Fatalf("list critical: %v", err)
	}
	if len(critical) != 2 {
		t.Fatalf("expected 2 critical products, got %d", len(critical))
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalProducts != 3 {
		t.Fatalf("unexpected product count: %d", stats.TotalProducts)
	}
	if stats.TotalStock != 14 {
		t.Fatalf("unexpected total stock: %d", stats.TotalStock)
	}
	if stats.LowStockCount != 2 {
		t.Fatalf("unexpected low stock count: %d", stats.LowStockCount)
	}
}
