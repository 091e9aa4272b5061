package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	assemblydomain "github.com/craftbom/quotora/internal/assembly/domain"
	assemblyrepo "github.com/craftbom/quotora/internal/assembly/repository"
	assemblyservice "github.com/craftbom/quotora/internal/assembly/service"
	"github.com/craftbom/quotora/internal/clock"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	componentrepo "github.com/craftbom/quotora/internal/component/repository"
	componentservice "github.com/craftbom/quotora/internal/component/service"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/craftbom/quotora/internal/quotation/domain"
	quotationrepo "github.com/craftbom/quotora/internal/quotation/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	svc        domain.Service
	components componentdomain.Service
	assemblies assemblydomain.Service
	ctx        context.Context
	clock      *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&componentdomain.Component{},
		&componentdomain.PriceHistoryRecord{},
		&assemblydomain.Assembly{},
		&assemblydomain.AssemblyMember{},
		&domain.QuotationProject{},
		&domain.QuotationSystem{},
		&domain.QuotationItem{},
		&domain.QuotationParameters{},
		&domain.QuotationCalculations{},
		&domain.QuotationItemResult{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	holder := config.NewStaticQuotationDefaults(config.QuotationDefaults{
		BaseCurrency:   "ILS",
		DefaultMarkup:  25,
		RiskPercent:    0,
		VATRatePercent: 18,
		IncludeVAT:     true,
		DayLaborCost:   1200,
		UsdToBase:      3.7,
		EurToBase:      4.0,
	})

	componentRepo := componentrepo.Provide()
	assemblyRepo := assemblyrepo.Provide()

	components := componentservice.New(componentservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake, Repo: componentRepo,
	})
	assemblies := assemblyservice.New(assemblyservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
		Repo: assemblyRepo, ComponentRepo: componentRepo, Defaults: holder,
	})
	svc := New(Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
		Repo:          quotationrepo.Provide(),
		ComponentRepo: componentRepo,
		AssemblyRepo:  assemblyRepo,
		Defaults:      holder,
	})

	return &fixture{
		db:         db,
		svc:        svc,
		components: components,
		assemblies: assemblies,
		ctx:        orgcontext.WithOrgID(context.Background(), node.Generate()),
		clock:      fake,
	}
}

func (f *fixture) component(t *testing.T, name, currency string, cost float64) *componentdomain.Response {
	t.Helper()
	resp, err := f.components.Create(f.ctx, componentdomain.CreateRequest{
		Name:     name,
		Currency: currency,
		UnitCost: cost,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) projectWithSystem(t *testing.T) (*domain.ProjectResponse, domain.QuotationSystem) {
	t.Helper()
	project, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name:         "Plant upgrade",
		CustomerName: "Acme Water",
	})
	require.NoError(t, err)

	project, err = f.svc.AddSystem(f.ctx, project.ID.String(), domain.SystemRequest{Name: "Control room"})
	require.NoError(t, err)
	require.Len(t, project.Systems, 1)
	return project, project.Systems[0]
}

func TestQuotation_CreateSeedsParametersFromDefaults(t *testing.T) {
	f := newFixture(t)

	project, err := f.svc.Create(f.ctx, domain.CreateRequest{Name: "Plant upgrade"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, project.Status)
	assert.True(t, project.CalculationsStale)
	assert.Equal(t, "ILS", project.Parameters.BaseCurrency)
	assert.Equal(t, 25.0, project.Parameters.DefaultMarkup)
	assert.Equal(t, 18.0, project.Parameters.VATRatePercent)
	assert.Equal(t, 3.7, project.Parameters.UsdToBase)
}

func TestQuotation_RecalculateComponentItem(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", "USD", 100)
	project, system := f.projectWithSystem(t)

	quantity := 2
	project, err := f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: sensor.ID.String(),
		ItemType:    "hardware",
		Quantity:    quantity,
	})
	require.NoError(t, err)
	assert.True(t, project.CalculationsStale)

	calc, err := f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)
	require.Len(t, calc.Items, 1)

	// 100 USD * 3.7 = 370 ILS unit cost; default markup 25% -> 462.50.
	line := calc.Items[0]
	assert.Equal(t, "1.1", line.DisplayNumber)
	assert.InDelta(t, 370.0, line.UnitCost, 1e-9)
	assert.InDelta(t, 462.5, line.UnitPrice, 1e-9)
	assert.InDelta(t, 740.0, line.TotalCost, 1e-9)
	assert.InDelta(t, 925.0, line.TotalPrice, 1e-9)

	assert.InDelta(t, 925.0, calc.Calculations.Subtotal, 1e-9)
	assert.InDelta(t, 925.0*0.18, calc.Calculations.VATAmount, 1e-9)
	assert.InDelta(t, 925.0*1.18, calc.Calculations.FinalTotal, 1e-9)
	assert.False(t, calc.Stale)

	project, err = f.svc.Get(f.ctx, project.ID.String())
	require.NoError(t, err)
	assert.False(t, project.CalculationsStale)
}

func TestQuotation_RecalculateReplacesNotAppends(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", "USD", 100)
	project, system := f.projectWithSystem(t)

	_, err := f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: sensor.ID.String(),
		ItemType:    "hardware",
		Quantity:    1,
	})
	require.NoError(t, err)

	first, err := f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)
	second, err := f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)

	assert.Equal(t, first.Calculations.FinalTotal, second.Calculations.FinalTotal)

	var calcRows int64
	require.NoError(t, f.db.Model(&domain.QuotationCalculations{}).
		Where("quotation_id = ?", project.ID).Count(&calcRows).Error)
	assert.Equal(t, int64(1), calcRows)

	var resultRows int64
	require.NoError(t, f.db.Model(&domain.QuotationItemResult{}).
		Where("quotation_id = ?", project.ID).Count(&resultRows).Error)
	assert.Equal(t, int64(1), resultRows)
}

func TestQuotation_MutationsMarkCalculationsStale(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", "USD", 100)
	project, system := f.projectWithSystem(t)

	project, err := f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: sensor.ID.String(),
		ItemType:    "hardware",
		Quantity:    1,
	})
	require.NoError(t, err)

	_, err = f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)

	markup := 30.0
	project, err = f.svc.UpdateParameters(f.ctx, project.ID.String(), domain.ParametersRequest{
		DefaultMarkup: &markup,
	})
	require.NoError(t, err)
	assert.True(t, project.CalculationsStale)

	// Reading calculations recomputes with the new markup.
	calc, err := f.svc.Calculations(f.ctx, project.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 370.0*1.30, calc.Items[0].UnitPrice, 1e-9)

	project, err = f.svc.Get(f.ctx, project.ID.String())
	require.NoError(t, err)
	assert.False(t, project.CalculationsStale)
}

func TestQuotation_AssemblyAndLaborItems(t *testing.T) {
	f := newFixture(t)
	valve := f.component(t, "Valve-7", "USD", 50)

	assembly, err := f.assemblies.Create(f.ctx, assemblydomain.CreateRequest{
		Name: "Valve block",
		Members: []assemblydomain.MemberRequest{
			{ComponentID: valve.ID.String(), Quantity: 4},
		},
	})
	require.NoError(t, err)

	project, system := f.projectWithSystem(t)
	_, err = f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:   system.ID.String(),
		AssemblyID: assembly.ID.String(),
		ItemType:   "hardware",
		Quantity:   1,
	})
	require.NoError(t, err)

	dayRate := 1200.0
	_, err = f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:     system.ID.String(),
		ItemType:     "labor",
		LaborSubtype: "engineering",
		Quantity:     3,
		UnitCost:     &dayRate,
	})
	require.NoError(t, err)

	calc, err := f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)
	require.Len(t, calc.Items, 2)

	// Assembly: 4 * 50 USD * 3.7 = 740 ILS cost.
	assert.InDelta(t, 740.0, calc.Items[0].UnitCost, 1e-9)
	assert.False(t, calc.Items[0].Custom)

	// Custom labor line keeps its stored day rate and is flagged custom.
	assert.True(t, calc.Items[1].Custom)
	assert.InDelta(t, 1200.0, calc.Items[1].UnitCost, 1e-9)
	assert.Equal(t, "LABOR", calc.Items[1].ItemType)
	assert.Equal(t, "ENGINEERING", calc.Items[1].LaborSubtype)
	require.NotEmpty(t, calc.Warnings)

	// Labor partition carries exactly the labor line.
	require.Contains(t, calc.Calculations.Shares, "labor")

	// Warnings survive the persisted snapshot: the stored read (not stale,
	// no recompute) must return the same warnings.
	stored, err := f.svc.Calculations(f.ctx, project.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.Stale)
	require.NotEmpty(t, stored.Warnings)
	assert.Equal(t, calc.Warnings, stored.Warnings)
}

func TestQuotation_UnpricedComponentFailsRecalculate(t *testing.T) {
	f := newFixture(t)
	project, system := f.projectWithSystem(t)

	// A component whose only price window opens in the future.
	future := f.clock.Now().Add(48 * time.Hour)
	resp, err := f.components.Create(f.ctx, componentdomain.CreateRequest{
		Name:     "Sensor-100",
		Currency: "USD",
		UnitCost: 100,
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&componentdomain.PriceHistoryRecord{}).
		Where("component_id = ?", resp.ID).
		Update("valid_from", future).Error)

	_, err = f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: resp.ID.String(),
		ItemType:    "hardware",
		Quantity:    1,
	})
	require.NoError(t, err)

	_, err = f.svc.Recalculate(f.ctx, project.ID.String())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no_active_price")
}

func TestQuotation_SystemMultiplierScalesQuantities(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", "USD", 100)
	project, system := f.projectWithSystem(t)

	multiplier := 3
	_, err := f.svc.UpdateSystem(f.ctx, project.ID.String(), system.ID.String(), domain.SystemRequest{
		Multiplier: &multiplier,
	})
	require.NoError(t, err)

	_, err = f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: sensor.ID.String(),
		ItemType:    "hardware",
		Quantity:    2,
	})
	require.NoError(t, err)

	calc, err := f.svc.Recalculate(f.ctx, project.ID.String())
	require.NoError(t, err)
	require.Len(t, calc.Items, 1)
	assert.Equal(t, 6, calc.Items[0].Quantity)
}

func TestQuotation_DeleteSystemWithItemsRejected(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", "USD", 100)
	project, system := f.projectWithSystem(t)

	_, err := f.svc.AddItem(f.ctx, project.ID.String(), domain.ItemRequest{
		SystemID:    system.ID.String(),
		ComponentID: sensor.ID.String(),
		ItemType:    "hardware",
		Quantity:    1,
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteSystem(f.ctx, project.ID.String(), system.ID.String())
	assert.ErrorIs(t, err, domain.ErrSystemNotEmpty)
}
