package requirements

import (
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated principal invoking an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CreateRequirementInput carries the homeowner supplied requirement fields.
type CreateRequirementInput struct {
	Title       string
	Category    string
	Location    string
	Description string
	PhotoURLs   []string
}

// SubmitQuotationInput carries a shop owner's bid.
type SubmitQuotationInput struct {
	Amount       decimal.Decimal
	Terms        string
	DeliveryDate time.Time
}

// EditQuotationInput carries a partial quotation update.
type EditQuotationInput struct {
	Amount       *decimal.Decimal
	Terms        *string
	DeliveryDate *time.Time
}

// ListFilters narrows open requirements by case-insensitive substring.
type ListFilters struct {
	Category string
	Location string
}

// PurchasedQuoteDTO is the accepted quotation snapshot kept on the requirement.
type PurchasedQuoteDTO struct {
	QuotationID   uuid.UUID       `json:"quotation_id"`
	ShopOwnerID   uuid.UUID       `json:"shop_owner_id"`
	ShopOwnerName string          `json:"shop_owner_name"`
	ShopName      string          `json:"shop_name"`
	Amount        decimal.Decimal `json:"amount"`
	PurchasedAt   time.Time       `json:"purchased_at"`
}

// RequirementDTO is the API representation of a requirement.
type RequirementDTO struct {
	ID             uuid.UUID               `json:"id"`
	HomeownerID    uuid.UUID               `json:"homeowner_id"`
	HomeownerName  string                  `json:"homeowner_name"`
	Title          string                  `json:"title"`
	Category       string                  `json:"category"`
	Location       string                  `json:"location"`
	Description    string                  `json:"description"`
	PhotoURLs      []string                `json:"photo_urls"`
	Status         enums.RequirementStatus `json:"status"`
	PurchasedQuote *PurchasedQuoteDTO      `json:"purchased_quote,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// QuotationDTO is the API representation of a quotation. Shop contact fields
// are omitted for viewers other than the requirement owner, the author and admins.
type QuotationDTO struct {
	ID            uuid.UUID       `json:"id"`
	RequirementID uuid.UUID       `json:"requirement_id"`
	ShopOwnerID   uuid.UUID       `json:"shop_owner_id"`
	ShopOwnerName string          `json:"shop_owner_name"`
	ShopName      string          `json:"shop_name"`
	ShopPhone     *string         `json:"shop_phone,omitempty"`
	ShopEmail     string          `json:"shop_email,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Terms         string          `json:"terms"`
	DeliveryDate  string          `json:"delivery_date"`
	Accepted      bool            `json:"accepted"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ContactDTO exposes a homeowner's private contact details.
type ContactDTO struct {
	RequirementID uuid.UUID `json:"requirement_id"`
	HomeownerID   uuid.UUID `json:"homeowner_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
}

// OpenRequirementSummary pairs an open requirement with its quotation count.
type OpenRequirementSummary struct {
	RequirementID  uuid.UUID `json:"requirement_id"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	Location       string    `json:"location"`
	HomeownerName  string    `json:"homeowner_name"`
	QuotationCount int64     `json:"quotation_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// OverviewDTO is the admin dashboard aggregation.
type OverviewDTO struct {
	OpenRequirements      int64                    `json:"open_requirements"`
	PurchasedRequirements int64                    `json:"purchased_requirements"`
	TotalQuotations       int64                    `json:"total_quotations"`
	UnquotedRequirements  int64                    `json:"unquoted_requirements"`
	Open                  []OpenRequirementSummary `json:"open"`
}

const deliveryDateLayout = "2006-01-02"

func toRequirementDTO(req models.Requirement) RequirementDTO {
	photos := []string(req.PhotoURLs.Clone())
	dto := RequirementDTO{
		ID:            req.ID,
		HomeownerID:   req.HomeownerID,
		HomeownerName: req.HomeownerName,
		Title:         req.Title,
		Category:      req.Category,
		Location:      req.Location,
		Description:   req.Description,
		PhotoURLs:     photos,
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
	}
	if snapshot := req.Purchase(); snapshot != nil {
		dto.PurchasedQuote = &PurchasedQuoteDTO{
			QuotationID:   snapshot.QuotationID,
			ShopOwnerID:   snapshot.ShopOwnerID,
			ShopOwnerName: snapshot.ShopOwnerName,
			ShopName:      snapshot.ShopName,
			Amount:        snapshot.Amount,
			PurchasedAt:   snapshot.PurchasedAt,
		}
	}
	return dto
}

func toRequirementDTOs(rows []models.Requirement) []RequirementDTO {
	out := make([]RequirementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRequirementDTO(row))
	}
	return out
}

func toQuotationDTO(q models.Quotation, showContact bool, accepted bool) QuotationDTO {
	dto := QuotationDTO{
		ID:            q.ID,
		RequirementID: q.RequirementID,
		ShopOwnerID:   q.ShopOwnerID,
		ShopOwnerName: q.ShopOwnerName,
		ShopName:      q.ShopName,
		Amount:        q.Amount,
		Terms:         q.Terms,
		DeliveryDate:  q.DeliveryDate.UTC().Format(deliveryDateLayout),
		Accepted:      accepted,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
	if showContact {
		dto.ShopPhone = q.ShopPhone
		dto.ShopEmail = q.ShopEmail
	}
	return dto
}
