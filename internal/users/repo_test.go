package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  display_name TEXT NOT NULL,
  phone TEXT,
  address TEXT,
  shop_name TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Hana@Example.com ",
		PasswordHash: "hash",
		Role:         enums.RoleHomeowner,
		DisplayName:  "Hana",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "hana@example.com", created.Email)
	assert.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "HANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleHomeowner, byID.Role)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateProfileAndLogin(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()
	phone := "+1-555-0199"
	created, err := repo.Create(ctx, CreateUserDTO{
		Email: "shop@example.com", PasswordHash: "hash", Role: enums.RoleShopOwner, DisplayName: "Sam", Phone: &phone,
	})
	require.NoError(t, err)

	shop := "Fixit Co"
	cleared := ""
	require.NoError(t, repo.UpdateProfile(ctx, created.ID, ProfileChanges{ShopName: &shop, Phone: &cleared}, time.Now().UTC()))

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShopName)
	assert.Equal(t, "Fixit Co", *stored.ShopName)
	assert.Nil(t, stored.Phone)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(at))

	err = repo.UpdateProfile(ctx, uuid.New(), ProfileChanges{ShopName: &shop}, time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
