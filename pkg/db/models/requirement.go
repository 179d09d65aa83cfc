package models

import (
	"time"

	dbtypes "github.com/angelmondragon/homequote-backend/pkg/db/types"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Requirement is a homeowner's posted need. HomeownerName is copied at
// creation and does not follow later profile renames.
type Requirement struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	HomeownerID   uuid.UUID               `gorm:"column:homeowner_id;type:uuid;not null;index"`
	HomeownerName string                  `gorm:"column:homeowner_name;not null"`
	Title         string                  `gorm:"column:title;not null"`
	Category      string                  `gorm:"column:category;not null"`
	Location      string                  `gorm:"column:location;not null"`
	Description   string                  `gorm:"column:description;not null"`
	PhotoURLs     dbtypes.StringList      `gorm:"column:photo_urls;not null"`
	Status        enums.RequirementStatus `gorm:"column:status;type:text;not null;index"`

	PurchasedQuotationID   *uuid.UUID       `gorm:"column:purchased_quotation_id;type:uuid"`
	PurchasedShopOwnerID   *uuid.UUID       `gorm:"column:purchased_shop_owner_id;type:uuid"`
	PurchasedShopOwnerName *string          `gorm:"column:purchased_shop_owner_name"`
	PurchasedShopName      *string          `gorm:"column:purchased_shop_name"`
	PurchasedAmount        *decimal.Decimal `gorm:"column:purchased_amount;type:numeric(12,2)"`
	PurchasedAt            *time.Time       `gorm:"column:purchased_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// PurchasedQuote is the snapshot of the accepted quotation stored on the
// requirement at acceptance time.
type PurchasedQuote struct {
	QuotationID   uuid.UUID
	ShopOwnerID   uuid.UUID
	ShopOwnerName string
	ShopName      string
	Amount        decimal.Decimal
	PurchasedAt   time.Time
}

// Purchase returns the snapshot, or nil while the requirement is open.
func (r Requirement) Purchase() *PurchasedQuote {
	if r.PurchasedQuotationID == nil || r.PurchasedShopOwnerID == nil {
		return nil
	}
	snapshot := &PurchasedQuote{
		QuotationID: *r.PurchasedQuotationID,
		ShopOwnerID: *r.PurchasedShopOwnerID,
	}
	if r.PurchasedShopOwnerName != nil {
		snapshot.ShopOwnerName = *r.PurchasedShopOwnerName
	}
	if r.PurchasedShopName != nil {
		snapshot.ShopName = *r.PurchasedShopName
	}
	if r.PurchasedAmount != nil {
		snapshot.Amount = *r.PurchasedAmount
	}
	if r.PurchasedAt != nil {
		snapshot.PurchasedAt = *r.PurchasedAt
	}
	return snapshot
}
