package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

// NotificationDTO is the API shape of a notification.
type NotificationDTO struct {
	ID            uuid.UUID              `json:"id"`
	Type          enums.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Link          *string                `json:"link,omitempty"`
	RequirementID *uuid.UUID             `json:"requirement_id,omitempty"`
	Read          bool                   `json:"read"`
	ReadAt        *time.Time             `json:"read_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func toDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		Link:          n.Link,
		RequirementID: n.RequirementID,
		Read:          n.ReadAt != nil,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}
