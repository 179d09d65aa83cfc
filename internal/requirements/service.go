package requirements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/homequote-backend/pkg/db/types"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const quotationUniqueConstraint = "ux_quotations_requirement_shop_owner"

// Service defines the requirement and quotation lifecycle.
type Service interface {
	CreateRequirement(ctx context.Context, actor Actor, input CreateRequirementInput) (*RequirementDTO, error)
	GetRequirement(ctx context.Context, actor Actor, requirementID uuid.UUID) (*RequirementDTO, error)
	ListOpenRequirements(ctx context.Context, actor Actor, filters ListFilters) ([]RequirementDTO, error)
	ListMyRequirements(ctx context.Context, actor Actor) ([]RequirementDTO, error)

	SubmitQuotation(ctx context.Context, actor Actor, requirementID uuid.UUID, input SubmitQuotationInput) (*QuotationDTO, error)
	EditQuotation(ctx context.Context, actor Actor, quotationID uuid.UUID, input EditQuotationInput) (*QuotationDTO, error)
	AcceptQuotation(ctx context.Context, actor Actor, requirementID, quotationID uuid.UUID) (*RequirementDTO, error)
	ListQuotationsForRequirement(ctx context.Context, actor Actor, requirementID uuid.UUID) ([]QuotationDTO, error)
	ListMyQuotations(ctx context.Context, actor Actor) ([]QuotationDTO, error)

	CanViewHomeownerContact(ctx context.Context, actor Actor, requirementID uuid.UUID) (bool, error)
	HomeownerContact(ctx context.Context, actor Actor, requirementID uuid.UUID) (*ContactDTO, error)
	AdminOverview(ctx context.Context, actor Actor) (*OverviewDTO, error)
}

// ServiceParams bundles the dependencies required to build the lifecycle service.
type ServiceParams struct {
	Repo           Repository
	Users          userDirectory
	Tx             txRunner
	Outbox         outboxPublisher
	Metrics        lifecycleRecorder
	Limits         Limits
	AdminCanAccept bool
	Clock          func() time.Time
}

type service struct {
	repo           Repository
	users          userDirectory
	tx             txRunner
	outbox         outboxPublisher
	metrics        lifecycleRecorder
	limits         Limits
	adminCanAccept bool
	now            func() time.Time
}

// NewService constructs the lifecycle service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requirements repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	limits := params.Limits
	if limits.MaxPhotos == 0 && limits.MaxTitleLength == 0 {
		limits = DefaultLimits()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:           params.Repo,
		users:          params.Users,
		tx:             params.Tx,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		limits:         limits,
		adminCanAccept: params.AdminCanAccept,
		now:            func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) CreateRequirement(ctx context.Context, actor Actor, input CreateRequirementInput) (result *RequirementDTO, err error) {
	defer s.observe("create_requirement", &err)

	if err := requireRole(actor, enums.RoleHomeowner); err != nil {
		return nil, err
	}
	fields, err := s.limits.validateRequirement(input)
	if err != nil {
		return nil, err
	}
	homeowner, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	requirement := models.Requirement{
		ID:            uuid.New(),
		HomeownerID:   homeowner.ID,
		HomeownerName: homeowner.DisplayName,
		Title:         fields.title,
		Category:      fields.category,
		Location:      fields.location,
		Description:   fields.description,
		PhotoURLs:     dbtypes.StringList(fields.photos),
		Status:        enums.RequirementStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRequirement(ctx, &requirement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create requirement")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequirementCreated,
			AggregateType: enums.AggregateRequirement,
			AggregateID:   requirement.ID,
			Version:       1,
			Actor:         buildActor(actor),
			OccurredAt:    now,
			Data: payloads.RequirementCreatedEvent{
				RequirementID: requirement.ID,
				HomeownerID:   requirement.HomeownerID,
				Title:         requirement.Title,
				Category:      requirement.Category,
				Location:      requirement.Location,
				CreatedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toRequirementDTO(requirement)
	return &dto, nil
}

func (s *service) GetRequirement(ctx context.Context, actor Actor, requirementID uuid.UUID) (*RequirementDTO, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	requirement, err := s.findRequirement(ctx, s.repo, requirementID)
	if err != nil {
		return nil, err
	}
	dto := toRequirementDTO(*requirement)
	return &dto, nil
}

func (s *service) ListOpenRequirements(ctx context.Context, actor Actor, filters ListFilters) (result []RequirementDTO, err error) {
	defer s.observe("list_open_requirements", &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRequirementsByStatus(ctx, enums.RequirementStatusOpen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open requirements")
	}
	filtered := make([]models.Requirement, 0, len(rows))
	for _, row := range rows {
		if containsFold(row.Category, filters.Category) && containsFold(row.Location, filters.Location) {
			filtered = append(filtered, row)
		}
	}
	return toRequirementDTOs(filtered), nil
}

func (s *service) ListMyRequirements(ctx context.Context, actor Actor) ([]RequirementDTO, error) {
	if err := requireRole(actor, enums.RoleHomeowner); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRequirementsByHomeowner(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list homeowner requirements")
	}
	return toRequirementDTOs(rows), nil
}

func (s *service) SubmitQuotation(ctx context.Context, actor Actor, requirementID uuid.UUID, input SubmitQuotationInput) (result *QuotationDTO, err error) {
	defer s.observe("submit_quotation", &err)

	if err := requireRole(actor, enums.RoleShopOwner); err != nil {
		return nil, err
	}
	if err := s.limits.validateAmount(input.Amount); err != nil {
		return nil, err
	}
	terms, err := s.limits.validateTerms(input.Terms)
	if err != nil {
		return nil, err
	}
	now := s.now()
	deliveryDate, err := validateDeliveryDate(input.DeliveryDate, now)
	if err != nil {
		return nil, err
	}
	shopOwner, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	quote := models.Quotation{
		ID:            uuid.New(),
		RequirementID: requirementID,
		ShopOwnerID:   shopOwner.ID,
		ShopOwnerName: shopOwner.DisplayName,
		ShopName:      shopOwner.ShopDisplayName(),
		ShopPhone:     shopOwner.Phone,
		ShopEmail:     shopOwner.Email,
		Amount:        input.Amount.Round(2),
		Terms:         terms,
		DeliveryDate:  deliveryDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		requirement, err := s.lockRequirement(ctx, repo, requirementID)
		if err != nil {
			return err
		}
		if !requirement.Status.AcceptsQuotations() {
			return pkgerrors.InvalidState("requirement is no longer accepting quotations", requirement.Status)
		}
		existing, err := repo.FindQuotationByShopOwner(ctx, requirementID, shopOwner.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing quotation")
		}
		if existing != nil {
			return duplicateQuotation(existing.ID)
		}
		if err := repo.CreateQuotation(ctx, &quote); err != nil {
			if isDuplicateQuotation(err) {
				return duplicateQuotation(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quotation")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuotationSubmitted,
			AggregateType: enums.AggregateQuotation,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         buildActor(actor),
			OccurredAt:    now,
			Data: payloads.QuotationSubmittedEvent{
				QuotationID:      quote.ID,
				RequirementID:    requirement.ID,
				RequirementTitle: requirement.Title,
				Category:         requirement.Category,
				HomeownerID:      requirement.HomeownerID,
				ShopOwnerID:      quote.ShopOwnerID,
				ShopName:         quote.ShopName,
				Amount:           quote.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toQuotationDTO(quote, true, false)
	return &dto, nil
}

func (s *service) EditQuotation(ctx context.Context, actor Actor, quotationID uuid.UUID, input EditQuotationInput) (result *QuotationDTO, err error) {
	defer s.observe("edit_quotation", &err)

	if err := requireRole(actor, enums.RoleShopOwner); err != nil {
		return nil, err
	}
	now := s.now()
	changes, err := s.normalizeChanges(input, now)
	if err != nil {
		return nil, err
	}

	var updated models.Quotation
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quote, err := repo.FindQuotation(ctx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quotation")
		}
		if quote.ShopOwnerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quotation belongs to another shop owner")
		}
		requirement, err := s.lockRequirement(ctx, repo, quote.RequirementID)
		if err != nil {
			return err
		}
		if !requirement.Status.AcceptsQuotations() {
			return pkgerrors.InvalidState("quotations can only be edited while the requirement is open", requirement.Status)
		}
		ok, err := repo.UpdateQuotation(ctx, quote.ID, changes, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quotation")
		}
		if !ok {
			return pkgerrors.InvalidState("quotations can only be edited while the requirement is open", enums.RequirementStatusPurchased)
		}

		applyChanges(quote, changes, now)
		updated = *quote
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuotationUpdated,
			AggregateType: enums.AggregateQuotation,
			AggregateID:   quote.ID,
			Version:       1,
			Actor:         buildActor(actor),
			OccurredAt:    now,
			Data: payloads.QuotationUpdatedEvent{
				QuotationID:      quote.ID,
				RequirementID:    requirement.ID,
				RequirementTitle: requirement.Title,
				Category:         requirement.Category,
				HomeownerID:      requirement.HomeownerID,
				ShopOwnerID:      quote.ShopOwnerID,
				ShopName:         quote.ShopName,
				Amount:           quote.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toQuotationDTO(updated, true, false)
	return &dto, nil
}

func (s *service) AcceptQuotation(ctx context.Context, actor Actor, requirementID, quotationID uuid.UUID) (result *RequirementDTO, err error) {
	defer s.observe("accept_quotation", &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	isAdmin := actor.Role == enums.RoleAdmin && s.adminCanAccept
	if actor.Role != enums.RoleHomeowner && !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requirement owner can accept a quotation")
	}

	var purchased models.Requirement
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		requirement, err := s.lockRequirement(ctx, repo, requirementID)
		if err != nil {
			return err
		}
		if requirement.HomeownerID != actor.UserID && !isAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requirement owner can accept a quotation")
		}
		if !requirement.Status.CanTransitionTo(enums.RequirementStatusPurchased) {
			return pkgerrors.InvalidState("requirement has already been purchased", requirement.Status)
		}
		quote, err := repo.FindQuotation(ctx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.InvalidState("quotation does not belong to this requirement", requirement.Status)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quotation")
		}
		if quote.RequirementID != requirement.ID {
			return pkgerrors.InvalidState("quotation does not belong to this requirement", requirement.Status)
		}

		now := s.now()
		snapshot := models.PurchasedQuote{
			QuotationID:   quote.ID,
			ShopOwnerID:   quote.ShopOwnerID,
			ShopOwnerName: quote.ShopOwnerName,
			ShopName:      quote.ShopName,
			Amount:        quote.Amount,
			PurchasedAt:   now,
		}
		// Conditional on status still being open; a concurrent accept loses here.
		ok, err := repo.MarkPurchased(ctx, requirement.ID, snapshot)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark requirement purchased")
		}
		if !ok {
			return pkgerrors.InvalidState("requirement has already been purchased", enums.RequirementStatusPurchased)
		}

		applyPurchase(requirement, snapshot)
		purchased = *requirement
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuotationAccepted,
			AggregateType: enums.AggregateRequirement,
			AggregateID:   requirement.ID,
			Version:       1,
			Actor:         buildActor(actor),
			OccurredAt:    now,
			Data: payloads.QuotationAcceptedEvent{
				QuotationID:      quote.ID,
				RequirementID:    requirement.ID,
				RequirementTitle: requirement.Title,
				Category:         requirement.Category,
				HomeownerID:      requirement.HomeownerID,
				HomeownerName:    requirement.HomeownerName,
				ShopOwnerID:      quote.ShopOwnerID,
				Amount:           quote.Amount,
				PurchasedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toRequirementDTO(purchased)
	return &dto, nil
}

func (s *service) ListQuotationsForRequirement(ctx context.Context, actor Actor, requirementID uuid.UUID) (result []QuotationDTO, err error) {
	defer s.observe("list_quotations", &err)

	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	requirement, err := s.findRequirement(ctx, s.repo, requirementID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListQuotationsByRequirement(ctx, requirementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotations")
	}
	viewerOwnsRequirement := requirement.HomeownerID == actor.UserID || actor.Role == enums.RoleAdmin
	acceptedID := requirement.PurchasedQuotationID
	out := make([]QuotationDTO, 0, len(rows))
	for _, row := range rows {
		showContact := viewerOwnsRequirement || row.ShopOwnerID == actor.UserID
		accepted := acceptedID != nil && *acceptedID == row.ID
		out = append(out, toQuotationDTO(row, showContact, accepted))
	}
	return out, nil
}

func (s *service) ListMyQuotations(ctx context.Context, actor Actor) ([]QuotationDTO, error) {
	if err := requireRole(actor, enums.RoleShopOwner); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListQuotationsByShopOwner(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop owner quotations")
	}
	out := make([]QuotationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toQuotationDTO(row, true, false))
	}
	return out, nil
}

func (s *service) CanViewHomeownerContact(ctx context.Context, actor Actor, requirementID uuid.UUID) (bool, error) {
	requirement, err := s.findRequirement(ctx, s.repo, requirementID)
	if err != nil {
		return false, err
	}
	return canViewContact(requirement, actor.UserID), nil
}

func (s *service) HomeownerContact(ctx context.Context, actor Actor, requirementID uuid.UUID) (*ContactDTO, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	requirement, err := s.findRequirement(ctx, s.repo, requirementID)
	if err != nil {
		return nil, err
	}
	allowed := requirement.HomeownerID == actor.UserID ||
		actor.Role == enums.RoleAdmin ||
		(actor.Role == enums.RoleShopOwner && canViewContact(requirement, actor.UserID))
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "contact details are only shared with the accepted shop owner")
	}
	homeowner, err := s.loadUser(ctx, requirement.HomeownerID)
	if err != nil {
		return nil, err
	}
	return &ContactDTO{
		RequirementID: requirement.ID,
		HomeownerID:   homeowner.ID,
		Name:          homeowner.DisplayName,
		Email:         homeowner.Email,
		Phone:         homeowner.Phone,
		Address:       homeowner.Address,
	}, nil
}

func (s *service) AdminOverview(ctx context.Context, actor Actor) (*OverviewDTO, error) {
	if err := requireRole(actor, enums.RoleAdmin); err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountRequirementsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requirements")
	}
	totalQuotes, err := s.repo.CountQuotations(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count quotations")
	}
	open, err := s.repo.ListRequirementsByStatus(ctx, enums.RequirementStatusOpen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open requirements")
	}
	ids := make([]uuid.UUID, 0, len(open))
	for _, row := range open {
		ids = append(ids, row.ID)
	}
	counts, err := s.repo.CountQuotationsByRequirement(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count quotations per requirement")
	}

	overview := &OverviewDTO{
		OpenRequirements:      byStatus[enums.RequirementStatusOpen],
		PurchasedRequirements: byStatus[enums.RequirementStatusPurchased],
		TotalQuotations:       totalQuotes,
		Open:                  make([]OpenRequirementSummary, 0, len(open)),
	}
	for _, row := range open {
		count := counts[row.ID]
		if count == 0 {
			overview.UnquotedRequirements++
		}
		overview.Open = append(overview.Open, OpenRequirementSummary{
			RequirementID:  row.ID,
			Title:          row.Title,
			Category:       row.Category,
			Location:       row.Location,
			HomeownerName:  row.HomeownerName,
			QuotationCount: count,
			CreatedAt:      row.CreatedAt,
		})
	}
	return overview, nil
}

func (s *service) normalizeChanges(input EditQuotationInput, now time.Time) (QuotationChanges, error) {
	var changes QuotationChanges
	if input.Amount != nil {
		if err := s.limits.validateAmount(*input.Amount); err != nil {
			return QuotationChanges{}, err
		}
		amount := input.Amount.Round(2)
		changes.Amount = &amount
	}
	if input.Terms != nil {
		terms, err := s.limits.validateTerms(*input.Terms)
		if err != nil {
			return QuotationChanges{}, err
		}
		changes.Terms = &terms
	}
	if input.DeliveryDate != nil {
		date, err := validateDeliveryDate(*input.DeliveryDate, now)
		if err != nil {
			return QuotationChanges{}, err
		}
		changes.DeliveryDate = &date
	}
	if changes.Empty() {
		return QuotationChanges{}, pkgerrors.Validation("body", "must change at least one of amount, terms or delivery_date")
	}
	return changes, nil
}

func (s *service) findRequirement(ctx context.Context, repo Repository, id uuid.UUID) (*models.Requirement, error) {
	requirement, err := repo.FindRequirement(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requirement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requirement")
	}
	return requirement, nil
}

func (s *service) lockRequirement(ctx context.Context, repo Repository, id uuid.UUID) (*models.Requirement, error) {
	requirement, err := repo.FindRequirementForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requirement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock requirement")
	}
	return requirement, nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is inactive")
	}
	return user, nil
}

// runTx keeps typed errors from fn and maps anything else, such as a failed
// commit, to a dependency error.
func (s *service) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.tx.WithTx(ctx, fn)
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist lifecycle change")
}

func (s *service) observe(operation string, errp *error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(*errp); typed != nil {
			outcome = string(typed.Code())
		}
	}
	s.metrics.Observe(operation, outcome)
}

// canViewContact is true only for the shop owner whose quotation was accepted.
func canViewContact(requirement *models.Requirement, userID uuid.UUID) bool {
	if requirement == nil || userID == uuid.Nil {
		return false
	}
	if requirement.Status != enums.RequirementStatusPurchased || requirement.PurchasedShopOwnerID == nil {
		return false
	}
	return *requirement.PurchasedShopOwnerID == userID
}

func requireAuthenticated(actor Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func requireRole(actor Actor, role enums.Role) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	if actor.Role != role {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s role required", role))
	}
	return nil
}

// SQLite reports the violated columns rather than the index name.
func isDuplicateQuotation(err error) bool {
	return db.IsUniqueViolation(err, quotationUniqueConstraint) ||
		db.IsUniqueViolation(err, "quotations.shop_owner_id")
}

func duplicateQuotation(existingID uuid.UUID) error {
	err := pkgerrors.New(pkgerrors.CodeDuplicate, "shop owner already quoted this requirement")
	if existingID != uuid.Nil {
		err = err.WithDetails(map[string]any{"quotation_id": existingID})
	}
	return err
}

func applyChanges(quote *models.Quotation, changes QuotationChanges, at time.Time) {
	if changes.Amount != nil {
		quote.Amount = *changes.Amount
	}
	if changes.Terms != nil {
		quote.Terms = *changes.Terms
	}
	if changes.DeliveryDate != nil {
		quote.DeliveryDate = *changes.DeliveryDate
	}
	quote.UpdatedAt = at
}

func applyPurchase(requirement *models.Requirement, snapshot models.PurchasedQuote) {
	quotationID := snapshot.QuotationID
	shopOwnerID := snapshot.ShopOwnerID
	shopOwnerName := snapshot.ShopOwnerName
	shopName := snapshot.ShopName
	amount := snapshot.Amount
	purchasedAt := snapshot.PurchasedAt

	requirement.Status = enums.RequirementStatusPurchased
	requirement.PurchasedQuotationID = &quotationID
	requirement.PurchasedShopOwnerID = &shopOwnerID
	requirement.PurchasedShopOwnerName = &shopOwnerName
	requirement.PurchasedShopName = &shopName
	requirement.PurchasedAmount = &amount
	requirement.PurchasedAt = &purchasedAt
	requirement.UpdatedAt = purchasedAt
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	}
}
