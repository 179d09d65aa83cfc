package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequirementCreatedEvent announces a newly posted requirement.
type RequirementCreatedEvent struct {
	RequirementID uuid.UUID `json:"requirement_id"`
	HomeownerID   uuid.UUID `json:"homeowner_id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuotationSubmittedEvent tells the homeowner a new quotation arrived.
type QuotationSubmittedEvent struct {
	QuotationID      uuid.UUID       `json:"quotation_id"`
	RequirementID    uuid.UUID       `json:"requirement_id"`
	RequirementTitle string          `json:"requirement_title"`
	Category         string          `json:"category"`
	HomeownerID      uuid.UUID       `json:"homeowner_id"`
	ShopOwnerID      uuid.UUID       `json:"shop_owner_id"`
	ShopName         string          `json:"shop_name"`
	Amount           decimal.Decimal `json:"amount"`
}

// QuotationUpdatedEvent tells the homeowner a quotation changed.
type QuotationUpdatedEvent struct {
	QuotationID      uuid.UUID       `json:"quotation_id"`
	RequirementID    uuid.UUID       `json:"requirement_id"`
	RequirementTitle string          `json:"requirement_title"`
	Category         string          `json:"category"`
	HomeownerID      uuid.UUID       `json:"homeowner_id"`
	ShopOwnerID      uuid.UUID       `json:"shop_owner_id"`
	ShopName         string          `json:"shop_name"`
	Amount           decimal.Decimal `json:"amount"`
}

// QuotationAcceptedEvent tells the winning shop owner their quotation was purchased.
type QuotationAcceptedEvent struct {
	QuotationID      uuid.UUID       `json:"quotation_id"`
	RequirementID    uuid.UUID       `json:"requirement_id"`
	RequirementTitle string          `json:"requirement_title"`
	Category         string          `json:"category"`
	HomeownerID      uuid.UUID       `json:"homeowner_id"`
	HomeownerName    string          `json:"homeowner_name"`
	ShopOwnerID      uuid.UUID       `json:"shop_owner_id"`
	Amount           decimal.Decimal `json:"amount"`
	PurchasedAt      time.Time       `json:"purchased_at"`
}
