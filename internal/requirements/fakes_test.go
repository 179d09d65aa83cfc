package requirements

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type memoryRepo struct {
	mu           sync.Mutex
	requirements map[uuid.UUID]models.Requirement
	quotations   map[uuid.UUID]models.Quotation
	markFn       func(id uuid.UUID) (bool, error)
	beforeUpdate func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requirements: map[uuid.UUID]models.Requirement{},
		quotations:   map[uuid.UUID]models.Quotation{},
	}
}

func (m *memoryRepo) WithTx(*gorm.DB) Repository { return m }

func (m *memoryRepo) CreateRequirement(_ context.Context, req *models.Requirement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requirements[req.ID] = *req
	return nil
}

func (m *memoryRepo) FindRequirement(_ context.Context, id uuid.UUID) (*models.Requirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requirements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (m *memoryRepo) FindRequirementForUpdate(ctx context.Context, id uuid.UUID) (*models.Requirement, error) {
	return m.FindRequirement(ctx, id)
}

func (m *memoryRepo) ListRequirementsByStatus(_ context.Context, status enums.RequirementStatus) ([]models.Requirement, error) {
	return m.filterRequirements(func(r models.Requirement) bool { return r.Status == status }), nil
}

func (m *memoryRepo) ListRequirementsByHomeowner(_ context.Context, homeownerID uuid.UUID) ([]models.Requirement, error) {
	return m.filterRequirements(func(r models.Requirement) bool { return r.HomeownerID == homeownerID }), nil
}

func (m *memoryRepo) filterRequirements(keep func(models.Requirement) bool) []models.Requirement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Requirement{}
	for _, req := range m.requirements {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) MarkPurchased(_ context.Context, requirementID uuid.UUID, snapshot models.PurchasedQuote) (bool, error) {
	if m.markFn != nil {
		return m.markFn(requirementID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requirements[requirementID]
	if !ok || req.Status != enums.RequirementStatusOpen {
		return false, nil
	}
	applyPurchase(&req, snapshot)
	m.requirements[requirementID] = req
	return true, nil
}

func (m *memoryRepo) CreateQuotation(_ context.Context, quote *models.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotations[quote.ID] = *quote
	return nil
}

func (m *memoryRepo) FindQuotation(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quote, ok := m.quotations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &quote, nil
}

func (m *memoryRepo) FindQuotationByShopOwner(_ context.Context, requirementID, shopOwnerID uuid.UUID) (*models.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, quote := range m.quotations {
		if quote.RequirementID == requirementID && quote.ShopOwnerID == shopOwnerID {
			q := quote
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) ListQuotationsByRequirement(_ context.Context, requirementID uuid.UUID) ([]models.Quotation, error) {
	return m.filterQuotations(func(q models.Quotation) bool { return q.RequirementID == requirementID }), nil
}

func (m *memoryRepo) ListQuotationsByShopOwner(_ context.Context, shopOwnerID uuid.UUID) ([]models.Quotation, error) {
	return m.filterQuotations(func(q models.Quotation) bool { return q.ShopOwnerID == shopOwnerID }), nil
}

func (m *memoryRepo) filterQuotations(keep func(models.Quotation) bool) []models.Quotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Quotation{}
	for _, q := range m.quotations {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopName < out[j].ShopName })
	return out
}

func (m *memoryRepo) UpdateQuotation(_ context.Context, quotationID uuid.UUID, changes QuotationChanges, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	quote, ok := m.quotations[quotationID]
	if !ok {
		return false, nil
	}
	if parent, ok := m.requirements[quote.RequirementID]; !ok || parent.Status != enums.RequirementStatusOpen {
		return false, nil
	}
	applyChanges(&quote, changes, updatedAt)
	m.quotations[quotationID] = quote
	return true, nil
}

func (m *memoryRepo) CountRequirementsByStatus(context.Context) (map[enums.RequirementStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[enums.RequirementStatus]int64{}
	for _, req := range m.requirements {
		out[req.Status]++
	}
	return out, nil
}

func (m *memoryRepo) CountQuotations(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.quotations)), nil
}

func (m *memoryRepo) CountQuotationsByRequirement(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	out := map[uuid.UUID]int64{}
	for _, q := range m.quotations {
		if wanted[q.RequirementID] {
			out[q.RequirementID]++
		}
	}
	return out, nil
}

type stubUsers struct {
	users map[uuid.UUID]models.User
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) types() []enums.OutboxEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.EventType)
	}
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (r *recordingMetrics) Observe(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string][]string{}
	}
	r.outcomes[operation] = append(r.outcomes[operation], outcome)
}
