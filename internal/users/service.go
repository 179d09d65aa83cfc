package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxProfileFieldLength = 200

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges, at time.Time) error
}

// ProfileService reads and edits the caller's own profile.
type ProfileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, changes ProfileChanges) (*UserDTO, error)
}

type profileService struct {
	repo profileRepository
}

// NewProfileService builds a profile service backed by the provided repository.
func NewProfileService(repo profileRepository) (ProfileService, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &profileService{repo: repo}, nil
}

func (s *profileService) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *profileService) UpdateMe(ctx context.Context, userID uuid.UUID, changes ProfileChanges) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeProfile(user.Role, changes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, userID, normalized, time.Now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Me(ctx, userID)
}

func (s *profileService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func normalizeProfile(role enums.Role, changes ProfileChanges) (ProfileChanges, error) {
	if changes.Empty() {
		return ProfileChanges{}, pkgerrors.Validation("body", "must change at least one field")
	}
	out := ProfileChanges{}
	if changes.DisplayName != nil {
		name := strings.TrimSpace(*changes.DisplayName)
		if name == "" {
			return ProfileChanges{}, pkgerrors.Validation("display_name", "must not be empty")
		}
		if utf8.RuneCountInString(name) > maxProfileFieldLength {
			return ProfileChanges{}, pkgerrors.Validation("display_name", "is too long")
		}
		out.DisplayName = &name
	}
	if changes.ShopName != nil && role != enums.RoleShopOwner {
		return ProfileChanges{}, pkgerrors.Validation("shop_name", "is only available to shop owners")
	}
	var err error
	if out.Phone, err = trimOptional("phone", changes.Phone); err != nil {
		return ProfileChanges{}, err
	}
	if out.Address, err = trimOptional("address", changes.Address); err != nil {
		return ProfileChanges{}, err
	}
	if out.ShopName, err = trimOptional("shop_name", changes.ShopName); err != nil {
		return ProfileChanges{}, err
	}
	return out, nil
}

func trimOptional(field string, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if utf8.RuneCountInString(trimmed) > maxProfileFieldLength {
		return nil, pkgerrors.Validation(field, "is too long")
	}
	return &trimmed, nil
}
