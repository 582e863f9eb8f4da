package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osanhueza/minimarket-backend/pkg/enums"
)

// Alert records a low-stock breach. Every breach creates a fresh row, so the
// same product can accumulate multiple attendable alerts.
type Alert struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Type              enums.AlertType `gorm:"column:type;not null" json:"type"`
	Message           string          `gorm:"column:message;not null" json:"message"`
	StockAtTrigger    int             `gorm:"column:stock_at_trigger;not null" json:"stock_at_trigger"`
	MinStockAtTrigger int             `gorm:"column:min_stock_at_trigger;not null" json:"min_stock_at_trigger"`
	Attended          bool            `gorm:"column:attended;not null;default:false" json:"attended"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
