package updates

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

// Actor identifies the caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CreateInput is the body of a new feed post.
type CreateInput struct {
	Body      string   `json:"body" validate:"required,max=2000"`
	PhotoURLs []string `json:"photo_urls" validate:"omitempty,max=6,dive,url"`
}

// UpdateDTO is the API representation of a feed post.
type UpdateDTO struct {
	ID         uuid.UUID  `json:"id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	AuthorRole enums.Role `json:"author_role"`
	Body       string     `json:"body"`
	PhotoURLs  []string   `json:"photo_urls"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListResult is one page of the feed, newest first.
type ListResult struct {
	Items  []UpdateDTO `json:"items"`
	Cursor string      `json:"cursor"`
}

func toDTO(item Item) UpdateDTO {
	photos := item.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	return UpdateDTO{
		ID:         item.ID,
		AuthorID:   item.AuthorID,
		AuthorRole: item.AuthorRole,
		Body:       item.Body,
		PhotoURLs:  photos,
		CreatedAt:  item.CreatedAt,
	}
}
