package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osanhueza/minimarket-backend/pkg/enums"
)

// User is an account that can authenticate. Role is the single source of truth
// for authorization and is resolved into the JWT at login.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         enums.UserRole `gorm:"column:role;not null;default:client" json:"role"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
