package requirements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/homequote-backend/internal/repo"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

type repository struct {
	repo.Base
}

// NewRepository builds a requirements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) CreateRequirement(ctx context.Context, req *models.Requirement) error {
	return r.DB(ctx).Create(req).Error
}

func (r *repository) FindRequirement(ctx context.Context, id uuid.UUID) (*models.Requirement, error) {
	var req models.Requirement
	if err := r.DB(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindRequirementForUpdate row-locks the requirement for the rest of the transaction.
func (r *repository) FindRequirementForUpdate(ctx context.Context, id uuid.UUID) (*models.Requirement, error) {
	var req models.Requirement
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListRequirementsByStatus(ctx context.Context, status enums.RequirementStatus) ([]models.Requirement, error) {
	var rows []models.Requirement
	err := r.DB(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListRequirementsByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Requirement, error) {
	var rows []models.Requirement
	err := r.DB(ctx).
		Where("homeowner_id = ?", homeownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPurchased flips an open requirement to purchased and stores the snapshot.
// It reports false when the requirement was no longer open.
func (r *repository) MarkPurchased(ctx context.Context, requirementID uuid.UUID, snapshot models.PurchasedQuote) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Requirement{}).
		Where("id = ? AND status = ?", requirementID, enums.RequirementStatusOpen).
		Updates(map[string]any{
			"status":                    enums.RequirementStatusPurchased,
			"purchased_quotation_id":    snapshot.QuotationID,
			"purchased_shop_owner_id":   snapshot.ShopOwnerID,
			"purchased_shop_owner_name": snapshot.ShopOwnerName,
			"purchased_shop_name":       snapshot.ShopName,
			"purchased_amount":          snapshot.Amount,
			"purchased_at":              snapshot.PurchasedAt,
			"updated_at":                snapshot.PurchasedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateQuotation(ctx context.Context, quote *models.Quotation) error {
	return r.DB(ctx).Create(quote).Error
}

func (r *repository) FindQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	var quote models.Quotation
	if err := r.DB(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindQuotationByShopOwner(ctx context.Context, requirementID, shopOwnerID uuid.UUID) (*models.Quotation, error) {
	var quote models.Quotation
	err := r.DB(ctx).
		Where("requirement_id = ? AND shop_owner_id = ?", requirementID, shopOwnerID).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) ListQuotationsByRequirement(ctx context.Context, requirementID uuid.UUID) ([]models.Quotation, error) {
	var rows []models.Quotation
	err := r.DB(ctx).
		Where("requirement_id = ?", requirementID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListQuotationsByShopOwner(ctx context.Context, shopOwnerID uuid.UUID) ([]models.Quotation, error) {
	var rows []models.Quotation
	err := r.DB(ctx).
		Where("shop_owner_id = ?", shopOwnerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateQuotation writes changes only while the parent requirement is still
// open, so an edit racing an accept cannot alter a purchased quotation.
func (r *repository) UpdateQuotation(ctx context.Context, quotationID uuid.UUID, changes QuotationChanges, updatedAt time.Time) (bool, error) {
	updates := map[string]any{"updated_at": updatedAt}
	if changes.Amount != nil {
		updates["amount"] = *changes.Amount
	}
	if changes.Terms != nil {
		updates["terms"] = *changes.Terms
	}
	if changes.DeliveryDate != nil {
		updates["delivery_date"] = *changes.DeliveryDate
	}
	res := r.DB(ctx).
		Model(&models.Quotation{}).
		Where("id = ?", quotationID).
		Where("EXISTS (SELECT 1 FROM requirements WHERE requirements.id = quotations.requirement_id AND requirements.status = ?)", enums.RequirementStatusOpen).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CountRequirementsByStatus(ctx context.Context) (map[enums.RequirementStatus]int64, error) {
	var rows []struct {
		Status enums.RequirementStatus
		Total  int64
	}
	err := r.DB(ctx).
		Model(&models.Requirement{}).
		Select("status, count(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.RequirementStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *repository) CountQuotations(ctx context.Context) (int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.Quotation{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) CountQuotationsByRequirement(ctx context.Context, requirementIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(requirementIDs))
	if len(requirementIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		RequirementID uuid.UUID
		Total         int64
	}
	err := r.DB(ctx).
		Model(&models.Quotation{}).
		Select("requirement_id, count(*) AS total").
		Where("requirement_id IN ?", requirementIDs).
		Group("requirement_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RequirementID] = row.Total
	}
	return out, nil
}
