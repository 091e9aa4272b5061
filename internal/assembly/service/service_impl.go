package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/assembly/domain"
	"github.com/craftbom/quotora/internal/clock"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/craftbom/quotora/internal/quotation/engine"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	Defaults      *config.QuotationDefaultsHolder
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	componentRepo componentdomain.Repository
	defaults      *config.QuotationDefaultsHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("assembly.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		componentRepo: p.ComponentRepo,
		defaults:      p.Defaults,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	assembly := domain.Assembly{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	members, err := s.buildMembers(ctx, orgID, assembly.ID, req.Members)
	if err != nil {
		return nil, err
	}
	if err := s.validateAcyclic(ctx, orgID, assembly.ID, members); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &assembly); err != nil {
			return err
		}
		return s.repo.ReplaceMembers(ctx, tx, assembly.ID, members)
	})
	if err != nil {
		return nil, err
	}

	assembly.Members = members
	s.log.Info("assembly created",
		zap.String("assembly_id", assembly.ID.String()),
		zap.Int("members", len(members)),
	)
	return toResponse(&assembly), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	assembly, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		assembly.Name = name
	}
	if req.Description != nil {
		assembly.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		assembly.Active = *req.Active
	}
	assembly.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, assembly); err != nil {
		return nil, err
	}
	return toResponse(assembly), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	assembly, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(assembly), nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	assemblies, err := s.repo.List(ctx, s.db.Where("org_id = ?", orgID), filter)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.Response, 0, len(assemblies))
	for i := range assemblies {
		responses = append(responses, *toResponse(&assemblies[i]))
	}
	return responses, nil
}

func (s *Service) SetMembers(ctx context.Context, id string, members []domain.MemberRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	assembly, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.buildMembers(ctx, orgID, assembly.ID, members)
	if err != nil {
		return nil, err
	}
	if err := s.validateAcyclic(ctx, orgID, assembly.ID, rows); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ReplaceMembers(ctx, tx, assembly.ID, rows); err != nil {
			return err
		}
		assembly.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, assembly)
	})
	if err != nil {
		return nil, err
	}

	assembly.Members = rows
	return toResponse(assembly), nil
}

func (s *Service) Cost(ctx context.Context, id string, asOf time.Time) (*domain.CostResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	assembly, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	graph, err := s.loadGraph(ctx, orgID)
	if err != nil {
		return nil, err
	}

	componentIDs := make([]snowflake.ID, 0)
	seen := make(map[snowflake.ID]struct{})
	for _, snapshot := range graph {
		for _, member := range snapshot.Members {
			if member.ComponentID != nil {
				if _, ok := seen[*member.ComponentID]; !ok {
					seen[*member.ComponentID] = struct{}{}
					componentIDs = append(componentIDs, *member.ComponentID)
				}
			}
		}
	}

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

	defaults := s.defaults.Get()
	rates := engine.NewRateTable(defaults.BaseCurrency, defaults.Rates())

	cost, err := engine.RollupCost(assembly.ID, graph, func(componentID snowflake.ID) (float64, error) {
		resolved, err := engine.ResolveActivePrice(histories[componentID], asOf)
		if err != nil {
			return 0, fmt.Errorf("component %s: %w", componentID, err)
		}
		return rates.ToBase(resolved.Record.Cost, resolved.Record.Currency)
	})
	if err != nil {
		return nil, err
	}

	return &domain.CostResponse{
		AssemblyID: assembly.ID,
		UnitCost:   cost,
		Currency:   defaults.BaseCurrency,
		AsOf:       asOf,
	}, nil
}

// buildMembers validates and converts the request rows. Every referenced
// component or child assembly must exist inside the organization.
func (s *Service) buildMembers(ctx context.Context, orgID, assemblyID snowflake.ID, members []domain.MemberRequest) ([]domain.AssemblyMember, error) {
	now := s.clock.Now()
	rows := make([]domain.AssemblyMember, 0, len(members))
	for i, member := range members {
		if member.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		hasComponent := strings.TrimSpace(member.ComponentID) != ""
		hasChild := strings.TrimSpace(member.ChildAssemblyID) != ""
		if hasComponent == hasChild {
			return nil, domain.ErrInvalidMember
		}

		row := domain.AssemblyMember{
			ID:          s.genID.Generate(),
			AssemblyID:  assemblyID,
			Quantity:    member.Quantity,
			MemberOrder: i,
			CreatedAt:   now,
		}
		if hasComponent {
			componentID, err := snowflake.ParseString(strings.TrimSpace(member.ComponentID))
			if err != nil {
				return nil, domain.ErrInvalidMember
			}
			component, err := s.componentRepo.FindByID(ctx, s.db, componentID)
			if err != nil {
				return nil, err
			}
			if component == nil || component.OrgID != orgID {
				return nil, domain.ErrInvalidMember
			}
			row.ComponentID = &componentID
		} else {
			childID, err := snowflake.ParseString(strings.TrimSpace(member.ChildAssemblyID))
			if err != nil {
				return nil, domain.ErrInvalidMember
			}
			child, err := s.repo.FindByID(ctx, s.db, childID)
			if err != nil {
				return nil, err
			}
			if child == nil || child.OrgID != orgID {
				return nil, domain.ErrInvalidMember
			}
			row.ChildAssemblyID = &childID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// validateAcyclic rebuilds the org's assembly graph with the proposed member
// list swapped in and rejects the edit if any cycle becomes reachable.
func (s *Service) validateAcyclic(ctx context.Context, orgID, assemblyID snowflake.ID, members []domain.AssemblyMember) error {
	graph, err := s.loadGraph(ctx, orgID)
	if err != nil {
		return err
	}

	snapshot := graph[assemblyID]
	snapshot.ID = assemblyID
	snapshot.Members = toMemberRefs(members)
	graph[assemblyID] = snapshot

	if err := engine.CheckAcyclic(assemblyID, graph); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCircularAssembly, err)
	}
	return nil
}

func (s *Service) loadGraph(ctx context.Context, orgID snowflake.ID) (map[snowflake.ID]engine.AssemblySnapshot, error) {
	assemblies, err := s.repo.ListAllForOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	graph := make(map[snowflake.ID]engine.AssemblySnapshot, len(assemblies))
	for _, assembly := range assemblies {
		graph[assembly.ID] = engine.AssemblySnapshot{
			ID:      assembly.ID,
			Name:    assembly.Name,
			Members: toMemberRefs(assembly.Members),
		}
	}
	return graph, nil
}

func (s *Service) findOwned(ctx context.Context, orgID snowflake.ID, id string) (*domain.Assembly, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	assembly, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if assembly == nil || assembly.OrgID != orgID {
		return nil, domain.ErrNotFound
	}
	return assembly, nil
}

func toMemberRefs(members []domain.AssemblyMember) []engine.MemberRef {
	refs := make([]engine.MemberRef, 0, len(members))
	for _, member := range members {
		refs = append(refs, engine.MemberRef{
			ComponentID: member.ComponentID,
			AssemblyID:  member.ChildAssemblyID,
			Quantity:    member.Quantity,
		})
	}
	return refs
}

func toResponse(a *domain.Assembly) *domain.Response {
	members := make([]domain.MemberResponse, 0, len(a.Members))
	for _, member := range a.Members {
		members = append(members, domain.MemberResponse{
			ID:              member.ID,
			ComponentID:     member.ComponentID,
			ChildAssemblyID: member.ChildAssemblyID,
			Quantity:        member.Quantity,
			MemberOrder:     member.MemberOrder,
		})
	}
	return &domain.Response{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Active:      a.Active,
		Members:     members,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
