package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

// Notification stores in-app notifications addressed to a single user.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	Link          *string                `gorm:"type:text"`
	RequirementID *uuid.UUID             `gorm:"column:requirement_id;type:uuid"`
	EventID       *uuid.UUID             `gorm:"column:event_id;type:uuid;uniqueIndex"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at"`
}
