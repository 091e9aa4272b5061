package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	assemblydomain "github.com/craftbom/quotora/internal/assembly/domain"
	"github.com/craftbom/quotora/internal/clock"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/craftbom/quotora/internal/quotation/domain"
	"github.com/craftbom/quotora/internal/quotation/engine"
	"github.com/craftbom/quotora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	ComponentRepo componentdomain.Repository
	AssemblyRepo  assemblydomain.Repository
	Defaults      *config.QuotationDefaultsHolder
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	componentRepo componentdomain.Repository
	assemblyRepo  assemblydomain.Repository
	defaults      *config.QuotationDefaultsHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("quotation.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		componentRepo: p.ComponentRepo,
		assemblyRepo:  p.AssemblyRepo,
		defaults:      p.Defaults,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	project := domain.QuotationProject{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		Name:              name,
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerContact:   strings.TrimSpace(req.CustomerContact),
		ProjectRef:        strings.TrimSpace(req.ProjectRef),
		Status:            domain.StatusDraft,
		CalculationsStale: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	defaults := s.defaults.Get()
	params := domain.QuotationParameters{
		ID:             s.genID.Generate(),
		QuotationID:    project.ID,
		BaseCurrency:   defaults.BaseCurrency,
		UsdToBase:      defaults.UsdToBase,
		EurToBase:      defaults.EurToBase,
		DefaultMarkup:  defaults.DefaultMarkup,
		DayLaborCost:   defaults.DayLaborCost,
		RiskPercent:    defaults.RiskPercent,
		IncludeVAT:     defaults.IncludeVAT,
		VATRatePercent: defaults.VATRatePercent,
		UpdatedAt:      now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &project); err != nil {
			return err
		}
		return s.repo.UpsertParameters(ctx, tx, &params)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation created",
		zap.String("quotation_id", project.ID.String()),
		zap.String("name", project.Name),
	)
	return s.toResponse(ctx, &project)
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		project.Name = name
	}
	if req.CustomerName != nil {
		project.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerContact != nil {
		project.CustomerContact = strings.TrimSpace(*req.CustomerContact)
	}
	if req.ProjectRef != nil {
		project.ProjectRef = strings.TrimSpace(*req.ProjectRef)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		project.Status = *req.Status
	}
	project.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, project); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, project)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, project)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) (*domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	size := filter.Page.PageSize
	if size <= 0 {
		size = 10
	}

	projects, err := s.repo.List(ctx, s.db.Where("org_id = ?", orgID), filter)
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.QuotationProject, 0, len(projects))
	for i := range projects {
		rows = append(rows, &projects[i])
	}
	pageInfo := pagination.BuildCursorPageInfo(rows, size, func(p *domain.QuotationProject) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        p.ID.String(),
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(projects) > size {
		projects = projects[:size]
	}

	responses := make([]domain.ProjectResponse, 0, len(projects))
	for i := range projects {
		resp, err := s.toResponse(ctx, &projects[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return &domain.ListResponse{Data: responses, PageInfo: pageInfo}, nil
}

func (s *Service) AddSystem(ctx context.Context, id string, req domain.SystemRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidSystem
	}

	now := s.clock.Now()
	system := domain.QuotationSystem{
		ID:           s.genID.Generate(),
		QuotationID:  project.ID,
		Name:         name,
		DisplayOrder: len(project.Systems) + 1,
		Multiplier:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.DisplayOrder != nil {
		if *req.DisplayOrder <= 0 {
			return nil, domain.ErrInvalidSystem
		}
		system.DisplayOrder = *req.DisplayOrder
	}
	if req.Multiplier != nil {
		if *req.Multiplier <= 0 {
			return nil, domain.ErrInvalidSystem
		}
		system.Multiplier = *req.Multiplier
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertSystem(ctx, tx, &system); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) UpdateSystem(ctx context.Context, id, systemID string, req domain.SystemRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	system, err := s.findSystem(project, systemID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		system.Name = name
	}
	if req.DisplayOrder != nil {
		if *req.DisplayOrder <= 0 {
			return nil, domain.ErrInvalidSystem
		}
		system.DisplayOrder = *req.DisplayOrder
	}
	if req.Multiplier != nil {
		if *req.Multiplier <= 0 {
			return nil, domain.ErrInvalidSystem
		}
		system.Multiplier = *req.Multiplier
	}
	system.UpdatedAt = s.clock.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateSystem(ctx, tx, system); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) DeleteSystem(ctx context.Context, id, systemID string) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	system, err := s.findSystem(project, systemID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountSystemItems(ctx, s.db, system.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrSystemNotEmpty
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteSystem(ctx, tx, system.ID); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) AddItem(ctx context.Context, id string, req domain.ItemRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	system, err := s.findSystem(project, req.SystemID)
	if err != nil {
		return nil, err
	}

	item := domain.QuotationItem{
		ID:          s.genID.Generate(),
		QuotationID: project.ID,
		SystemID:    system.ID,
		ItemOrder:   s.nextItemOrder(project, system.ID),
		CreatedAt:   s.clock.Now(),
	}
	if req.ItemOrder != nil {
		item.ItemOrder = *req.ItemOrder
	}
	if err := s.applyItemRequest(ctx, orgID, &item, req); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) UpdateItem(ctx context.Context, id, itemID string, req domain.ItemRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	item, err := s.findItem(project, itemID)
	if err != nil {
		return nil, err
	}
	if req.SystemID != "" {
		system, err := s.findSystem(project, req.SystemID)
		if err != nil {
			return nil, err
		}
		item.SystemID = system.ID
	}
	if req.ItemOrder != nil {
		item.ItemOrder = *req.ItemOrder
	}
	if err := s.applyItemRequest(ctx, orgID, item, req); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) DeleteItem(ctx context.Context, id, itemID string) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	item, err := s.findItem(project, itemID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteItem(ctx, tx, item.ID); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

func (s *Service) UpdateParameters(ctx context.Context, id string, req domain.ParametersRequest) (*domain.ProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	params, err := s.loadParameters(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	if req.BaseCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.BaseCurrency))
		if len(currency) != 3 {
			return nil, domain.ErrInvalidRate
		}
		params.BaseCurrency = currency
	}
	if req.UsdToBase != nil {
		if *req.UsdToBase <= 0 {
			return nil, domain.ErrInvalidRate
		}
		params.UsdToBase = *req.UsdToBase
	}
	if req.EurToBase != nil {
		if *req.EurToBase <= 0 {
			return nil, domain.ErrInvalidRate
		}
		params.EurToBase = *req.EurToBase
	}
	if req.DefaultMarkup != nil {
		params.DefaultMarkup = *req.DefaultMarkup
	}
	if req.DayLaborCost != nil {
		if *req.DayLaborCost < 0 {
			return nil, domain.ErrInvalidRate
		}
		params.DayLaborCost = *req.DayLaborCost
	}
	if req.RiskPercent != nil {
		if *req.RiskPercent < 0 {
			return nil, domain.ErrInvalidRate
		}
		params.RiskPercent = *req.RiskPercent
	}
	if req.IncludeVAT != nil {
		params.IncludeVAT = *req.IncludeVAT
	}
	if req.VATRatePercent != nil {
		if *req.VATRatePercent < 0 || *req.VATRatePercent > 100 {
			return nil, domain.ErrInvalidRate
		}
		params.VATRatePercent = *req.VATRatePercent
	}
	params.UpdatedAt = s.clock.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertParameters(ctx, tx, params); err != nil {
			return err
		}
		return s.markStale(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, orgID, project.ID)
}

// Recalculate loads an immutable snapshot of everything the quotation
// references, runs the pricing engine, and replaces the stored calculations
// and item results in one transaction.
func (s *Service) Recalculate(ctx context.Context, id string) (*domain.CalculationsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	params, err := s.loadParameters(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, orgID, project)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result, err := engine.Compute(*snap, engine.Params{
		BaseCurrency:   params.BaseCurrency,
		Rates:          map[string]float64{"USD": params.UsdToBase, "EUR": params.EurToBase},
		DefaultMarkup:  params.DefaultMarkup,
		RiskPercent:    params.RiskPercent,
		IncludeVAT:     params.IncludeVAT,
		VATRatePercent: params.VATRatePercent,
		AsOf:           now,
	})
	if err != nil {
		return nil, err
	}

	calc, err := s.toCalculationsModel(project.ID, result, now)
	if err != nil {
		return nil, err
	}
	itemResults := s.toItemResults(project.ID, result, now)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ReplaceCalculations(ctx, tx, calc, itemResults); err != nil {
			return err
		}
		project.CalculationsStale = false
		project.UpdatedAt = now
		return s.repo.Update(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation recalculated",
		zap.String("quotation_id", project.ID.String()),
		zap.Int("items", len(itemResults)),
		zap.Float64("final_total", calc.FinalTotal),
		zap.Int("warnings", len(result.Warnings)),
	)
	return &domain.CalculationsResponse{
		QuotationID:  project.ID,
		Calculations: *calc,
		Items:        itemResults,
		Warnings:     result.Warnings,
		Stale:        false,
	}, nil
}

func (s *Service) Calculations(ctx context.Context, id string) (*domain.CalculationsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	project, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	calc, err := s.repo.FindCalculations(ctx, s.db, project.ID)
	if err != nil {
		return nil, err
	}
	if project.CalculationsStale || calc == nil {
		return s.Recalculate(ctx, id)
	}

	items, err := s.repo.ListItemResults(ctx, s.db, project.ID)
	if err != nil {
		return nil, err
	}

	var warnings []engine.Warning
	if len(calc.Warnings) > 0 {
		if err := json.Unmarshal(calc.Warnings, &warnings); err != nil {
			return nil, err
		}
	}

	return &domain.CalculationsResponse{
		QuotationID:  project.ID,
		Calculations: *calc,
		Items:        items,
		Warnings:     warnings,
		Stale:        false,
	}, nil
}

// loadSnapshot gathers everything one compute pass reads: systems, items,
// referenced components with full price histories, and the org's assembly
// graph.
func (s *Service) loadSnapshot(ctx context.Context, orgID snowflake.ID, project *domain.QuotationProject) (*engine.Snapshot, error) {
	assemblies, err := s.assemblyRepo.ListAllForOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	graph := make(map[snowflake.ID]engine.AssemblySnapshot, len(assemblies))
	componentIDs := make([]snowflake.ID, 0)
	seen := make(map[snowflake.ID]struct{})
	collect := func(id snowflake.ID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			componentIDs = append(componentIDs, id)
		}
	}
	for _, assembly := range assemblies {
		refs := make([]engine.MemberRef, 0, len(assembly.Members))
		for _, member := range assembly.Members {
			refs = append(refs, engine.MemberRef{
				ComponentID: member.ComponentID,
				AssemblyID:  member.ChildAssemblyID,
				Quantity:    member.Quantity,
			})
			if member.ComponentID != nil {
				collect(*member.ComponentID)
			}
		}
		graph[assembly.ID] = engine.AssemblySnapshot{
			ID:      assembly.ID,
			Name:    assembly.Name,
			Members: refs,
		}
	}

	systems := make([]engine.SystemSnapshot, 0, len(project.Systems))
	for _, system := range project.Systems {
		systems = append(systems, engine.SystemSnapshot{
			ID:           system.ID,
			Name:         system.Name,
			DisplayOrder: system.DisplayOrder,
			Multiplier:   system.Multiplier,
		})
	}

	items := make([]engine.ItemSnapshot, 0, len(project.Items))
	for _, item := range project.Items {
		snapshot := engine.ItemSnapshot{
			ID:            item.ID,
			SystemID:      item.SystemID,
			Type:          engine.ItemType(item.ItemType),
			LaborSubtype:  engine.LaborSubtype(item.LaborSubtype),
			Quantity:      item.Quantity,
			UnitCost:      item.UnitCost,
			Currency:      item.Currency,
			MarginPercent: item.MarginPercent,
			ItemOrder:     item.ItemOrder,
			Notes:         item.Notes,
		}
		switch engine.RefKind(item.RefKind) {
		case engine.RefComponent:
			if item.ComponentID == nil {
				return nil, domain.ErrInvalidItem
			}
			snapshot.Ref = engine.ComponentRef(*item.ComponentID)
			collect(*item.ComponentID)
		case engine.RefAssembly:
			if item.AssemblyID == nil {
				return nil, domain.ErrInvalidItem
			}
			snapshot.Ref = engine.AssemblyRef(*item.AssemblyID)
		case engine.RefCustom:
			snapshot.Ref = engine.CustomRef()
		default:
			return nil, domain.ErrInvalidItem
		}
		items = append(items, snapshot)
	}

	components := make(map[snowflake.ID]engine.ComponentSnapshot, len(componentIDs))
	records, err := s.componentRepo.ListPricesForComponents(ctx, s.db, componentIDs)
	if err != nil {
		return nil, err
	}
	histories := make(map[snowflake.ID][]engine.PriceRecord)
	for _, record := range records {
		histories[record.ComponentID] = append(histories[record.ComponentID], engine.PriceRecord{
			ID:          record.ID,
			ComponentID: record.ComponentID,
			Cost:        record.Cost,
			Currency:    record.Currency,
			ValidFrom:   record.ValidFrom,
			ValidTo:     record.ValidTo,
		})
	}
	for _, componentID := range componentIDs {
		component, err := s.componentRepo.FindByID(ctx, s.db, componentID)
		if err != nil {
			return nil, err
		}
		if component == nil || component.OrgID != orgID {
			return nil, domain.ErrInvalidItem
		}
		components[componentID] = engine.ComponentSnapshot{
			ID:      component.ID,
			Name:    component.Name,
			Active:  component.Active,
			History: histories[componentID],
		}
	}

	return &engine.Snapshot{
		Systems:    systems,
		Items:      items,
		Components: components,
		Assemblies: graph,
	}, nil
}

func (s *Service) applyItemRequest(ctx context.Context, orgID snowflake.ID, item *domain.QuotationItem, req domain.ItemRequest) error {
	itemType := engine.ItemType(strings.ToUpper(strings.TrimSpace(req.ItemType)))
	switch itemType {
	case engine.ItemTypeHardware, engine.ItemTypeSoftware:
		if req.LaborSubtype != "" {
			return domain.ErrInvalidItem
		}
	case engine.ItemTypeLabor:
		subtype := engine.LaborSubtype(strings.ToUpper(strings.TrimSpace(req.LaborSubtype)))
		switch subtype {
		case engine.LaborEngineering, engine.LaborCommissioning, engine.LaborInstallation:
		default:
			return domain.ErrInvalidItem
		}
		item.LaborSubtype = string(subtype)
	default:
		return domain.ErrInvalidItem
	}
	item.ItemType = string(itemType)

	if req.Quantity <= 0 {
		return domain.ErrInvalidItem
	}
	item.Quantity = req.Quantity
	item.MarginPercent = req.MarginPercent
	item.Notes = strings.TrimSpace(req.Notes)
	item.UpdatedAt = s.clock.Now()

	hasComponent := strings.TrimSpace(req.ComponentID) != ""
	hasAssembly := strings.TrimSpace(req.AssemblyID) != ""
	if hasComponent && hasAssembly {
		return domain.ErrInvalidItem
	}

	switch {
	case hasComponent:
		componentID, err := snowflake.ParseString(strings.TrimSpace(req.ComponentID))
		if err != nil {
			return domain.ErrInvalidItem
		}
		component, err := s.componentRepo.FindByID(ctx, s.db, componentID)
		if err != nil {
			return err
		}
		if component == nil || component.OrgID != orgID {
			return domain.ErrInvalidItem
		}
		item.RefKind = string(engine.RefComponent)
		item.ComponentID = &componentID
		item.AssemblyID = nil
		item.UnitCost = 0
		item.Currency = ""
	case hasAssembly:
		assemblyID, err := snowflake.ParseString(strings.TrimSpace(req.AssemblyID))
		if err != nil {
			return domain.ErrInvalidItem
		}
		assembly, err := s.assemblyRepo.FindByID(ctx, s.db, assemblyID)
		if err != nil {
			return err
		}
		if assembly == nil || assembly.OrgID != orgID {
			return domain.ErrInvalidItem
		}
		item.RefKind = string(engine.RefAssembly)
		item.AssemblyID = &assemblyID
		item.ComponentID = nil
		item.UnitCost = 0
		item.Currency = ""
	default:
		if req.UnitCost == nil || *req.UnitCost < 0 {
			return domain.ErrInvalidItem
		}
		item.RefKind = string(engine.RefCustom)
		item.ComponentID = nil
		item.AssemblyID = nil
		item.UnitCost = *req.UnitCost
		item.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	}
	return nil
}

func (s *Service) toCalculationsModel(quotationID snowflake.ID, result *engine.Result, now time.Time) (*domain.QuotationCalculations, error) {
	calc := result.Calculations

	categories := datatypes.JSONMap{}
	for key, totals := range map[string]engine.CategoryTotals{
		"hardware":            calc.Hardware,
		"software":            calc.Software,
		"labor":               calc.Labor,
		"labor_engineering":   calc.LaborEngineering,
		"labor_commissioning": calc.LaborCommissioning,
		"labor_installation":  calc.LaborInstallation,
	} {
		categories[key] = map[string]any{
			"items": totals.Items,
			"cost":  totals.Cost,
			"price": totals.Price,
		}
	}

	shares := datatypes.JSONMap{}
	for key, share := range calc.CategoryShares {
		shares[key] = share
	}

	var warnings datatypes.JSON
	if len(result.Warnings) > 0 {
		raw, err := json.Marshal(result.Warnings)
		if err != nil {
			return nil, fmt.Errorf("marshal warnings: %w", err)
		}
		warnings = raw
	}

	return &domain.QuotationCalculations{
		ID:                  s.genID.Generate(),
		QuotationID:         quotationID,
		TotalCost:           calc.TotalCost,
		Subtotal:            calc.Subtotal,
		RiskAddition:        calc.RiskAddition,
		VATAmount:           calc.VATAmount,
		FinalTotal:          calc.FinalTotal,
		ProfitMarginPercent: calc.ProfitMarginPercent,
		Categories:          categories,
		Shares:              shares,
		Warnings:            warnings,
		ComputedAt:          now,
	}, nil
}

func (s *Service) toItemResults(quotationID snowflake.ID, result *engine.Result, now time.Time) []domain.QuotationItemResult {
	results := make([]domain.QuotationItemResult, 0, len(result.Items))
	for seq, item := range result.Items {
		results = append(results, domain.QuotationItemResult{
			ID:            s.genID.Generate(),
			QuotationID:   quotationID,
			ItemID:        item.ItemID,
			SystemID:      item.SystemID,
			Seq:           seq,
			DisplayNumber: item.DisplayNumber,
			ItemType:      string(item.Type),
			LaborSubtype:  string(item.LaborSubtype),
			Custom:        item.Custom,
			Quantity:      item.Quantity,
			UnitCost:      item.UnitCost,
			TotalCost:     item.TotalCost,
			MarginPercent: item.MarginPercent,
			UnitPrice:     item.UnitPrice,
			TotalPrice:    item.TotalPrice,
			ComputedAt:    now,
		})
	}
	return results
}

func (s *Service) markStale(ctx context.Context, tx *gorm.DB, project *domain.QuotationProject) error {
	project.CalculationsStale = true
	project.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, tx, project)
}

func (s *Service) refresh(ctx context.Context, orgID, id snowflake.ID) (*domain.ProjectResponse, error) {
	project, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if project == nil || project.OrgID != orgID {
		return nil, domain.ErrNotFound
	}
	return s.toResponse(ctx, project)
}

func (s *Service) findOwned(ctx context.Context, orgID snowflake.ID, id string) (*domain.QuotationProject, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	project, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if project == nil || project.OrgID != orgID {
		return nil, domain.ErrNotFound
	}
	return project, nil
}

func (s *Service) findSystem(project *domain.QuotationProject, systemID string) (*domain.QuotationSystem, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(systemID))
	if err != nil {
		return nil, domain.ErrInvalidSystem
	}
	for i := range project.Systems {
		if project.Systems[i].ID == parsed {
			return &project.Systems[i], nil
		}
	}
	return nil, domain.ErrInvalidSystem
}

func (s *Service) findItem(project *domain.QuotationProject, itemID string) (*domain.QuotationItem, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(itemID))
	if err != nil {
		return nil, domain.ErrInvalidItem
	}
	for i := range project.Items {
		if project.Items[i].ID == parsed {
			return &project.Items[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Service) nextItemOrder(project *domain.QuotationProject, systemID snowflake.ID) int {
	max := 0
	for _, item := range project.Items {
		if item.SystemID == systemID && item.ItemOrder > max {
			max = item.ItemOrder
		}
	}
	return max + 1
}

func (s *Service) loadParameters(ctx context.Context, quotationID snowflake.ID) (*domain.QuotationParameters, error) {
	params, err := s.repo.FindParameters(ctx, s.db, quotationID)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, domain.ErrNotFound
	}
	return params, nil
}

func (s *Service) toResponse(ctx context.Context, project *domain.QuotationProject) (*domain.ProjectResponse, error) {
	params, err := s.loadParameters(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	systems := project.Systems
	if systems == nil {
		systems = []domain.QuotationSystem{}
	}
	items := project.Items
	if items == nil {
		items = []domain.QuotationItem{}
	}
	return &domain.ProjectResponse{
		ID:                project.ID,
		Name:              project.Name,
		CustomerName:      project.CustomerName,
		CustomerContact:   project.CustomerContact,
		ProjectRef:        project.ProjectRef,
		Status:            project.Status,
		CalculationsStale: project.CalculationsStale,
		Systems:           systems,
		Items:             items,
		Parameters:        *params,
		CreatedAt:         project.CreatedAt,
		UpdatedAt:         project.UpdatedAt,
	}, nil
}
