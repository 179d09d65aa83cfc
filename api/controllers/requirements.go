package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/homequote-backend/api/middleware"
	"github.com/angelmondragon/homequote-backend/api/responses"
	"github.com/angelmondragon/homequote-backend/api/validators"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type createRequirementRequest struct {
	Title       string   `json:"title" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Description string   `json:"description" validate:"required"`
	PhotoURLs   []string `json:"photo_urls" validate:"omitempty,dive,url"`
}

type submitQuotationRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Terms        string          `json:"terms" validate:"required"`
	DeliveryDate string          `json:"delivery_date" validate:"required,datetime=2006-01-02"`
}

type acceptQuotationRequest struct {
	QuotationID string `json:"quotation_id" validate:"required,uuid"`
}

type contactResponse struct {
	CanView bool                     `json:"can_view"`
	Contact *requirements.ContactDTO `json:"contact,omitempty"`
}

func requirementActor(r *http.Request) (requirements.Actor, error) {
	userID, role, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		return requirements.Actor{}, err
	}
	return requirements.Actor{UserID: userID, Role: role}, nil
}

// CreateRequirement posts a new open requirement for the calling homeowner.
func CreateRequirement(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequirementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requirement, err := svc.CreateRequirement(r.Context(), actor, requirements.CreateRequirementInput{
			Title:       body.Title,
			Category:    body.Category,
			Location:    body.Location,
			Description: body.Description,
			PhotoURLs:   body.PhotoURLs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, requirement)
	}
}

// ListOpenRequirements returns open requirements filtered by category and location.
func ListOpenRequirements(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		items, err := svc.ListOpenRequirements(r.Context(), actor, requirements.ListFilters{
			Category: validators.SanitizeString(query.Get("category"), 120),
			Location: validators.SanitizeString(query.Get("location"), 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListMyRequirements returns every requirement the calling homeowner posted.
func ListMyRequirements(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListMyRequirements(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// GetRequirement returns a single requirement.
func GetRequirement(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requirementID, err := validators.ParseUUIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requirement, err := svc.GetRequirement(r.Context(), actor, requirementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requirement)
	}
}

// ListRequirementQuotations returns the quotations submitted against a requirement.
func ListRequirementQuotations(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requirementID, err := validators.ParseUUIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListQuotationsForRequirement(r.Context(), actor, requirementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// SubmitQuotation places the calling shop owner's bid on an open requirement.
func SubmitQuotation(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requirementID, err := validators.ParseUUIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitQuotationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryDate, err := requirements.ParseDeliveryDate(body.DeliveryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotation, err := svc.SubmitQuotation(r.Context(), actor, requirementID, requirements.SubmitQuotationInput{
			Amount:       body.Amount,
			Terms:        body.Terms,
			DeliveryDate: deliveryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quotation)
	}
}

// AcceptQuotation purchases a requirement by accepting one of its quotations.
func AcceptQuotation(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requirementID, err := validators.ParseUUIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body acceptQuotationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := validators.ParseUUID("quotation_id", body.QuotationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithResource(r.Context(), "requirement", requirementID.String())
		ctx = logg.WithResource(ctx, "quotation", quotationID.String())
		requirement, err := svc.AcceptQuotation(ctx, actor, requirementID, quotationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, requirement)
	}
}

// RequirementContact reports whether the caller may see the homeowner's
// contact details and includes them when allowed.
func RequirementContact(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requirementID, err := validators.ParseUUIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		canView, err := svc.CanViewHomeownerContact(r.Context(), actor, requirementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.HomeownerContact(r.Context(), actor, requirementID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
				responses.WriteSuccess(w, contactResponse{CanView: canView})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contactResponse{CanView: canView, Contact: contact})
	}
}
