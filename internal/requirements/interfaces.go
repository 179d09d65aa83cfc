package requirements

import (
	"context"
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for requirements and quotations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequirement(ctx context.Context, req *models.Requirement) error
	FindRequirement(ctx context.Context, id uuid.UUID) (*models.Requirement, error)
	FindRequirementForUpdate(ctx context.Context, id uuid.UUID) (*models.Requirement, error)
	ListRequirementsByStatus(ctx context.Context, status enums.RequirementStatus) ([]models.Requirement, error)
	ListRequirementsByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Requirement, error)
	MarkPurchased(ctx context.Context, requirementID uuid.UUID, snapshot models.PurchasedQuote) (bool, error)

	CreateQuotation(ctx context.Context, quote *models.Quotation) error
	FindQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	FindQuotationByShopOwner(ctx context.Context, requirementID, shopOwnerID uuid.UUID) (*models.Quotation, error)
	ListQuotationsByRequirement(ctx context.Context, requirementID uuid.UUID) ([]models.Quotation, error)
	ListQuotationsByShopOwner(ctx context.Context, shopOwnerID uuid.UUID) ([]models.Quotation, error)
	UpdateQuotation(ctx context.Context, quotationID uuid.UUID, changes QuotationChanges, updatedAt time.Time) (bool, error)

	CountRequirementsByStatus(ctx context.Context) (map[enums.RequirementStatus]int64, error)
	CountQuotations(ctx context.Context) (int64, error)
	CountQuotationsByRequirement(ctx context.Context, requirementIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// QuotationChanges carries the editable quotation fields; nil means unchanged.
type QuotationChanges struct {
	Amount       *decimal.Decimal
	Terms        *string
	DeliveryDate *time.Time
}

// Empty reports whether no field is being changed.
func (c QuotationChanges) Empty() bool {
	return c.Amount == nil && c.Terms == nil && c.DeliveryDate == nil
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lifecycleRecorder interface {
	Observe(operation, outcome string)
}
