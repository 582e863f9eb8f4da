package alerts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

func newAlertsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:alerts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE alerts (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  type TEXT NOT NULL,
  message TEXT NOT NULL,
  stock_at_trigger INTEGER NOT NULL,
  min_stock_at_trigger INTEGER NOT NULL,
  attended INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newAlertService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), nil, nil, nil)
	if err != nil {
		t.Fatalf("alert service: %v", err)
	}
	return svc
}

func testProduct(stock, minStock int) *models.Product {
	return &models.Product{
		ID:        uuid.New(),
		Name:      "Leche",
		UnitPrice: decimal.NewFromInt(10),
		Stock:     stock,
		MinStock:  minStock,
	}
}

func TestOnStockChangeBelowThreshold(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(2, 3)

	if err := svc.OnStockChange(context.Background(), product); err != nil {
		t.Fatalf("on stock change: %v", err)
	}

	var alert models.Alert
	if err := db.First(&alert, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if alert.Type != enums.AlertTypeLowStock {
		t.Fatalf("unexpected type: %s", alert.Type)
	}
	if alert.StockAtTrigger != 2 || alert.MinStockAtTrigger != 3 {
		t.Fatalf("unexpected trigger snapshot: %+v", alert)
	}
	if alert.Attended {
		t.Fatal("fresh alert must be unattended")
	}
}

func TestOnStockChangeAtThreshold(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(3, 3)

	if err := svc.OnStockChange(context.Background(), product); err != nil {
		t.Fatalf("on stock change: %v", err)
	}

	var count int64
	if err := db.Model(&models.Alert{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("stock == min_stock must alert, got %d rows", count)
	}
}

func TestOnStockChangeAboveThresholdIsNoop(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(4, 3)

	if err := svc.OnStockChange(context.Background(), product); err != nil {
		t.Fatalf("on stock change: %v", err)
	}

	var count int64
	if err := db.Model(&models.Alert{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no alerts, got %d", count)
	}
}

func TestRepeatedBreachesAccumulate(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(2, 3)

	for i := 0; i < 3; i++ {
		if err := svc.OnStockChange(context.Background(), product); err != nil {
			t.Fatalf("on stock change: %v", err)
		}
	}

	var count int64
	if err := db.Model(&models.Alert{}).Where("product_id = ?", product.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("each breach is its own alert, got %d", count)
	}
}

func TestAttendIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(1, 3)

	if err := svc.OnStockChange(context.Background(), product); err != nil {
		t.Fatalf("on stock change: %v", err)
	}

	var alert models.Alert
	if err := db.First(&alert, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load alert: %v", err)
	}

	if err := svc.Attend(context.Background(), alert.ID); err != nil {
		t.Fatalf("first attend: %v", err)
	}
	if err := svc.Attend(context.Background(), alert.ID); err != nil {
		t.Fatalf("second attend must be a no-op success: %v", err)
	}

	if err := db.First(&alert, "id = ?", alert.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !alert.Attended {
		t.Fatal("alert must be attended")
	}
}

func TestAttendResultFlags(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	repo := NewRepository(db)
	alert := &models.Alert{
		ProductID:         uuid.New(),
		Type:              enums.AlertTypeLowStock,
		Message:           "Low stock for Leche: 1 left (minimum 3)",
		StockAtTrigger:    1,
		MinStockAtTrigger: 3,
	}
	if err := repo.Create(context.Background(), alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := repo.Attend(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("first attend: %v", err)
	}
	if !first.Found || !first.Updated {
		t.Fatalf("first attend must flip the flag: %+v", first)
	}

	second, err := repo.Attend(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("second attend: %v", err)
	}
	if !second.Found || second.Updated {
		t.Fatalf("repeat attend must report found without update: %+v", second)
	}

	missing, err := repo.Attend(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("missing attend: %v", err)
	}
	if missing.Found || missing.Updated {
		t.Fatalf("unknown alert must report neither flag: %+v", missing)
	}
}

func TestAttendUnknownAlert(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)

	err := svc.Attend(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListFiltersUnattended(t *testing.T) {
	t.Parallel()

	db := newAlertsTestDB(t)
	svc := newAlertService(t, db)
	product := testProduct(1, 3)

	for i := 0; i < 2; i++ {
		if err := svc.OnStockChange(context.Background(), product); err != nil {
			t.Fatalf("on stock change: %v", err)
		}
	}

	all, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(all))
	}

	if err := svc.Attend(context.Background(), all[0].ID); err != nil {
		t.Fatalf("attend: %v", err)
	}

	unattended, err := svc.List(context.Background(), ListParams{OnlyUnattended: true})
	if err != nil {
		t.Fatalf("list unattended: %v", err)
	}
	if len(unattended) != 1 {
		t.Fatalf("expected 1 unattended alert, got %d", len(unattended))
	}
}
