package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osanhueza/minimarket-backend/pkg/enums"
)

// Cart holds the open basket for a customer. The partial unique index keeps at
// most one active cart per customer; completed carts accumulate over time.
type Cart struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index:idx_carts_customer_active,unique,where:status = 'active'" json:"customer_id"`
	Status     enums.CartStatus `gorm:"column:status;not null;default:active" json:"status"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
