package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osanhueza/minimarket-backend/pkg/enums"
)

// Sale is the immutable record produced by checkout. Prices and totals are
// snapshots; later catalog changes never touch these rows.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	EmployeeID    *uuid.UUID          `gorm:"column:employee_id;type:uuid" json:"employee_id,omitempty"`
	CartID        *uuid.UUID          `gorm:"column:cart_id;type:uuid" json:"cart_id,omitempty"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null" json:"payment_method"`
	Status        enums.SaleStatus    `gorm:"column:status;not null;default:active" json:"status"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Lines         []SaleLine          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
