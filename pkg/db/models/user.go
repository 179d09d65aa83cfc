package models

import (
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents a marketplace principal and their private profile.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null"`
	DisplayName  string     `gorm:"column:display_name;not null"`
	Phone        *string    `gorm:"column:phone"`
	Address      *string    `gorm:"column:address"`
	ShopName     *string    `gorm:"column:shop_name"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// ShopDisplayName returns the shop name, falling back to the owner's name.
func (u User) ShopDisplayName() string {
	if u.ShopName != nil && *u.ShopName != "" {
		return *u.ShopName
	}
	return u.DisplayName
}
