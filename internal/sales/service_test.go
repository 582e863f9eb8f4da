package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

func newSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE sales (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  employee_id TEXT,
  cart_id TEXT,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE sale_lines (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newSaleService(t *testing.T, db *gorm.DB) (Service, Repository) {
	t.Helper()

	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func seedSale(t *testing.T, repo Repository) *models.Sale {
	t.Helper()

	sale := &models.Sale{
		CustomerID:    uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Status:        enums.SaleStatusActive,
		Total:         decimal.NewFromInt(40),
		Lines: []models.SaleLine{
			{ProductID: uuid.New(), ProductName: "Leche", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)},
			{ProductID: uuid.New(), ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(20), Subtotal: decimal.NewFromInt(20)},
		},
	}
	require.NoError(t, repo.Create(context.Background(), sale))
	return sale
}

func TestCreateBackfillsLineIDs(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	_, repo := newSaleService(t, db)
	sale := seedSale(t, repo)

	require.NotEqual(t, uuid.Nil, sale.ID)
	for _, line := range sale.Lines {
		assert.NotEqual(t, uuid.Nil, line.ID)
		assert.Equal(t, sale.ID, line.SaleID)
	}
}

func TestGetLoadsLines(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	svc, repo := newSaleService(t, db)
	sale := seedSale(t, repo)

	loaded, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	assert.True(t, loaded.Total.Equal(decimal.NewFromInt(40)), "total %s", loaded.Total)
}

func TestGetUnknownSale(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	svc, _ := newSaleService(t, db)

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListRecentHonorsLimit(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	svc, repo := newSaleService(t, db)
	for i := 0; i < 5; i++ {
		seedSale(t, repo)
	}

	rows, err := svc.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	svc, repo := newSaleService(t, db)
	sale := seedSale(t, repo)

	require.NoError(t, svc.UpdateStatus(context.Background(), sale.ID, enums.SaleStatusCancelled))

	loaded, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCancelled, loaded.Status)
	assert.True(t, loaded.Total.Equal(decimal.NewFromInt(40)), "total must stay frozen, got %s", loaded.Total)
}

func TestUpdateStatusValidation(t *testing.T) {
	t.Parallel()

	db := newSalesTestDB(t)
	svc, _ := newSaleService(t, db)

	err := svc.UpdateStatus(context.Background(), uuid.New(), enums.SaleStatus("refunded"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	err = svc.UpdateStatus(context.Background(), uuid.New(), enums.SaleStatusProcessed)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
