package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Role        enums.Role `json:"role"`
	DisplayName string     `json:"display_name"`
	Phone       *string    `json:"phone,omitempty"`
	Address     *string    `json:"address,omitempty"`
	ShopName    *string    `json:"shop_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Role         enums.Role
	DisplayName  string
	Phone        *string
	Address      *string
	ShopName     *string
	IsActive     *bool
}

// ProfileChanges lists the self-editable profile fields; nil means unchanged.
type ProfileChanges struct {
	DisplayName *string
	Phone       *string
	Address     *string
	ShopName    *string
}

// Empty reports whether no field is being changed.
func (p ProfileChanges) Empty() bool {
	return p.DisplayName == nil && p.Phone == nil && p.Address == nil && p.ShopName == nil
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		Address:     u.Address,
		ShopName:    u.ShopName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		DisplayName:  strings.TrimSpace(c.DisplayName),
		Phone:        c.Phone,
		Address:      c.Address,
		ShopName:     c.ShopName,
		IsActive:     isActive,
	}
}
