package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the canonical catalog row. Stock mutations always go through
// conditional UPDATEs, never read-modify-write.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description *string         `gorm:"column:description" json:"description,omitempty"`
	Category    *string         `gorm:"column:category" json:"category,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	MinStock    int             `gorm:"column:min_stock;not null;default:0" json:"min_stock"`
	ImageURL    *string         `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
