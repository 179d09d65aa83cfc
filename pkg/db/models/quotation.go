package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quotation is a shop owner's bid against a requirement. Shop fields are
// copied from the author's profile at submission.
type Quotation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RequirementID uuid.UUID       `gorm:"column:requirement_id;type:uuid;not null;uniqueIndex:ux_quotations_requirement_shop_owner"`
	ShopOwnerID   uuid.UUID       `gorm:"column:shop_owner_id;type:uuid;not null;uniqueIndex:ux_quotations_requirement_shop_owner"`
	ShopOwnerName string          `gorm:"column:shop_owner_name;not null"`
	ShopName      string          `gorm:"column:shop_name;not null"`
	ShopPhone     *string         `gorm:"column:shop_phone"`
	ShopEmail     string          `gorm:"column:shop_email;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Terms         string          `gorm:"column:terms;not null"`
	DeliveryDate  time.Time       `gorm:"column:delivery_date;type:date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}
