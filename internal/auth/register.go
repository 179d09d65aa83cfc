package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/homequote-backend/internal/users"
	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/db"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterRequest contains the payload required to open a homeowner or shop owner account.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required"`
	DisplayName string  `json:"display_name" validate:"required"`
	Role        string  `json:"role" validate:"required"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	ShopName    *string `json:"shop_name,omitempty"`
}

// RegisterService handles self-service account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type registerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	UserRepo       registerRepository
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	users       registerRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &registerService{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.Validation("role", "must be homeowner or shop_owner")
	}
	if !role.SelfRegistrable() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot be self-registered")
	}
	return createAccount(ctx, s.users, s.passwordCfg, role, accountInput{
		email:       req.Email,
		password:    req.Password,
		displayName: req.DisplayName,
		phone:       req.Phone,
		address:     req.Address,
		shopName:    req.ShopName,
	})
}

type accountInput struct {
	email       string
	password    string
	displayName string
	phone       *string
	address     *string
	shopName    *string
}

func createAccount(ctx context.Context, repo registerRepository, passwordCfg config.PasswordConfig, role enums.Role, input accountInput) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.email))
	if email == "" {
		return nil, pkgerrors.Validation("email", "is required")
	}
	displayName := strings.TrimSpace(input.displayName)
	if displayName == "" {
		return nil, pkgerrors.Validation("display_name", "is required")
	}
	if input.shopName != nil && role != enums.RoleShopOwner {
		return nil, pkgerrors.Validation("shop_name", "is only available to shop owners")
	}
	if role == enums.RoleShopOwner && trimmedOrNil(input.shopName) == nil {
		return nil, pkgerrors.Validation("shop_name", "is required for shop owners")
	}
	if err := security.CheckPolicy(input.password, passwordCfg); err != nil {
		return nil, pkgerrors.Validation("password", strings.TrimPrefix(err.Error(), security.ErrWeakPassword.Error()+": "))
	}

	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(input.password, passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		DisplayName:  displayName,
		Phone:        trimmedOrNil(input.phone),
		Address:      trimmedOrNil(input.address),
		ShopName:     trimmedOrNil(input.shopName),
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
