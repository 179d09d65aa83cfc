package controllers

import (
	"net/http"

	"github.com/angelmondragon/homequote-backend/api/middleware"
	"github.com/angelmondragon/homequote-backend/api/responses"
	"github.com/angelmondragon/homequote-backend/api/validators"
	"github.com/angelmondragon/homequote-backend/internal/users"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type updateMeRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	ShopName    *string `json:"shop_name" validate:"omitempty,max=120"`
}

// GetMe returns the caller's profile.
func GetMe(svc users.ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		userID, _, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UpdateMe edits the caller's self-editable profile fields.
func UpdateMe(svc users.ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		userID, _, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateMeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateMe(r.Context(), userID, users.ProfileChanges{
			DisplayName: body.DisplayName,
			Phone:       body.Phone,
			Address:     body.Address,
			ShopName:    body.ShopName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
