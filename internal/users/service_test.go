package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubProfileRepo struct {
	user    *models.User
	changes ProfileChanges
}

func (s *stubProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.user
	return &clone, nil
}

func (s *stubProfileRepo) UpdateProfile(_ context.Context, _ uuid.UUID, changes ProfileChanges, _ time.Time) error {
	s.changes = changes
	if changes.DisplayName != nil {
		s.user.DisplayName = *changes.DisplayName
	}
	if changes.ShopName != nil {
		s.user.ShopName = changes.ShopName
	}
	return nil
}

func ptr(v string) *string { return &v }

func TestProfileServiceUpdateMe(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "s@example.com", Role: enums.RoleShopOwner, DisplayName: "Sam", IsActive: true}
	repo := &stubProfileRepo{user: user}
	svc, err := NewProfileService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	updated, err := svc.UpdateMe(context.Background(), user.ID, ProfileChanges{DisplayName: ptr("  Samuel "), ShopName: ptr("Fixit Co")})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if updated.DisplayName != "Samuel" {
		t.Fatalf("expected trimmed display name, got %q", updated.DisplayName)
	}
	if updated.ShopName == nil || *updated.ShopName != "Fixit Co" {
		t.Fatalf("expected shop name to be set, got %v", updated.ShopName)
	}
}

func TestProfileServiceValidation(t *testing.T) {
	homeowner := &models.User{ID: uuid.New(), Role: enums.RoleHomeowner, DisplayName: "Hana", IsActive: true}
	svc, err := NewProfileService(&stubProfileRepo{user: homeowner})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		name    string
		changes ProfileChanges
	}{
		{"empty body", ProfileChanges{}},
		{"blank name", ProfileChanges{DisplayName: ptr("   ")}},
		{"shop name on homeowner", ProfileChanges{ShopName: ptr("Nope")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateMe(ctx, homeowner.ID, tc.changes)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := svc.Me(ctx, uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for missing identity, got %v", err)
	}
	if _, err := svc.Me(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
