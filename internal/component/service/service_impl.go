package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/clock"
	"github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/craftbom/quotora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("component.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
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
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}
	if req.UnitCost < 0 {
		return nil, domain.ErrInvalidCost
	}

	now := s.clock.Now()
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	component := domain.Component{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		Manufacturer: strings.TrimSpace(req.Manufacturer),
		Category:     strings.TrimSpace(req.Category),
		Currency:     currency,
		UnitCost:     req.UnitCost,
		CachedCosts:  toJSONMap(req.CachedCosts),
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &component); err != nil {
			return err
		}
		record := domain.PriceHistoryRecord{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			ComponentID: component.ID,
			Cost:        req.UnitCost,
			Currency:    currency,
			ValidFrom:   now,
			CreatedAt:   now,
		}
		return s.repo.InsertPrice(ctx, tx, &record)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.log.Info("component created",
		zap.String("component_id", component.ID.String()),
		zap.String("name", component.Name),
	)
	return toResponse(&component), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	component, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		component.Name = name
	}
	if req.Manufacturer != nil {
		component.Manufacturer = strings.TrimSpace(*req.Manufacturer)
	}
	if req.Category != nil {
		component.Category = strings.TrimSpace(*req.Category)
	}
	if req.CachedCosts != nil {
		component.CachedCosts = toJSONMap(req.CachedCosts)
	}
	if req.Active != nil {
		component.Active = *req.Active
	}
	component.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, component); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}
	return toResponse(component), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	component, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(component), nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	components, err := s.repo.List(ctx, s.db.Where("org_id = ?", orgID), filter)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.Response, 0, len(components))
	for i := range components {
		responses = append(responses, *toResponse(&components[i]))
	}
	return responses, nil
}

// SetPrice closes the open price-history window at the effective instant and
// opens a new one. The component's UnitCost mirrors the open record.
func (s *Service) SetPrice(ctx context.Context, id string, req domain.SetPriceRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	component, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Cost < 0 {
		return nil, domain.ErrInvalidCost
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = component.Currency
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	effective := s.clock.Now()
	if req.EffectiveFrom != nil {
		effective = req.EffectiveFrom.UTC()
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		open, err := s.repo.OpenPrice(ctx, tx, component.ID)
		if err != nil {
			return err
		}
		if open != nil {
			closedAt := effective
			open.ValidTo = &closedAt
			if err := s.repo.ClosePrice(ctx, tx, open); err != nil {
				return err
			}
		}

		record := domain.PriceHistoryRecord{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			ComponentID: component.ID,
			Cost:        req.Cost,
			Currency:    currency,
			ValidFrom:   effective,
			CreatedAt:   s.clock.Now(),
		}
		if err := s.repo.InsertPrice(ctx, tx, &record); err != nil {
			return err
		}

		component.UnitCost = req.Cost
		component.Currency = currency
		component.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, component)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("component price updated",
		zap.String("component_id", component.ID.String()),
		zap.Float64("cost", req.Cost),
		zap.String("currency", currency),
	)
	return toResponse(component), nil
}

func (s *Service) PriceHistory(ctx context.Context, id string) ([]domain.PriceHistoryRecord, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	component, err := s.findOwned(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPrices(ctx, s.db, component.ID)
}

func (s *Service) findOwned(ctx context.Context, orgID snowflake.ID, id string) (*domain.Component, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	component, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if component == nil || component.OrgID != orgID {
		return nil, domain.ErrNotFound
	}
	return component, nil
}

func toJSONMap(costs map[string]float64) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for currency, cost := range costs {
		out[currency] = cost
	}
	return out
}

func toResponse(c *domain.Component) *domain.Response {
	cached := make(map[string]float64, len(c.CachedCosts))
	for currency, raw := range c.CachedCosts {
		if cost, ok := raw.(float64); ok {
			cached[currency] = cost
		}
	}
	return &domain.Response{
		ID:           c.ID,
		Name:         c.Name,
		Manufacturer: c.Manufacturer,
		Category:     c.Category,
		Currency:     c.Currency,
		UnitCost:     c.UnitCost,
		CachedCosts:  cached,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
