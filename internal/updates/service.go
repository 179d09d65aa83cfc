package updates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/pagination"
)

const (
	maxBodyLength = 2000
	maxPhotos     = 6
)

// Service exposes the social updates feed.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*UpdateDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the feed service.
func NewService(repo Repository, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("updates repository required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, now: clock}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*UpdateDTO, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.Validation("body", "must not be empty")
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, pkgerrors.Validation("body", fmt.Sprintf("must be at most %d characters", maxBodyLength))
	}
	photos, err := normalizePhotoURLs(input.PhotoURLs)
	if err != nil {
		return nil, err
	}

	item := Item{
		ID:         uuid.New(),
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		Body:       body,
		PhotoURLs:  photos,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Put(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store update")
	}
	dto := toDTO(item)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "is invalid")
	}
	items, err := s.repo.ListNewest(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list updates")
	}

	items, next := pagination.Trim(items, params.Limit, func(item Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	result := &ListResult{Items: make([]UpdateDTO, 0, len(items)), Cursor: pagination.EncodeCursor(next)}
	for _, item := range items {
		result.Items = append(result.Items, toDTO(item))
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id, actor.UserID, actor.Role == enums.RoleAdmin)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "update not found")
	case errors.Is(err, ErrNotAuthor):
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin can delete this update")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete update")
	}
}

func requireIdentity(actor Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func normalizePhotoURLs(raw []string) ([]string, error) {
	if len(raw) > maxPhotos {
		return nil, pkgerrors.Validation("photo_urls", fmt.Sprintf("at most %d photos allowed", maxPhotos))
	}
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		parsed, err := url.Parse(value)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
			return nil, pkgerrors.Validation("photo_urls", fmt.Sprintf("invalid url %q", value))
		}
		out = append(out, value)
	}
	return out, nil
}
