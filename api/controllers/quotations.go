package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/homequote-backend/api/middleware"
	"github.com/angelmondragon/homequote-backend/api/responses"
	"github.com/angelmondragon/homequote-backend/api/validators"
	"github.com/angelmondragon/homequote-backend/internal/categorize"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type editQuotationRequest struct {
	Amount       *decimal.Decimal `json:"amount"`
	Terms        *string          `json:"terms"`
	DeliveryDate *string          `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
}

type categorizeRequest struct {
	Terms string `json:"terms" validate:"required"`
}

// EditQuotation applies a partial update to the caller's quotation.
func EditQuotation(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := validators.ParseUUIDParam(r, "quotationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body editQuotationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requirements.EditQuotationInput{
			Amount: body.Amount,
			Terms:  body.Terms,
		}
		if body.DeliveryDate != nil {
			deliveryDate, err := requirements.ParseDeliveryDate(*body.DeliveryDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.DeliveryDate = &deliveryDate
		}

		quotation, err := svc.EditQuotation(r.Context(), actor, quotationID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotation)
	}
}

// ListMyQuotations returns every quotation the calling shop owner submitted.
func ListMyQuotations(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListMyQuotations(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// CategorizeTerms suggests a label for free-form quotation terms. Nothing is persisted.
func CategorizeTerms(svc categorize.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "categorize service unavailable"))
			return
		}
		if _, _, err := middleware.IdentityFromContext(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body categorizeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Categorize(r.Context(), body.Terms)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
