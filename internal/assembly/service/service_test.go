package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/assembly/domain"
	assemblyrepo "github.com/craftbom/quotora/internal/assembly/repository"
	"github.com/craftbom/quotora/internal/clock"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	componentrepo "github.com/craftbom/quotora/internal/component/repository"
	componentservice "github.com/craftbom/quotora/internal/component/service"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc        domain.Service
	components componentdomain.Service
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
		&domain.Assembly{},
		&domain.AssemblyMember{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	holder := config.NewStaticQuotationDefaults(config.QuotationDefaults{
		BaseCurrency:   "ILS",
		DefaultMarkup:  25,
		VATRatePercent: 18,
		IncludeVAT:     true,
		DayLaborCost:   1200,
		UsdToBase:      4.0,
		EurToBase:      4.0,
	})

	componentRepo := componentrepo.Provide()
	components := componentservice.New(componentservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  componentRepo,
	})
	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         fake,
		Repo:          assemblyrepo.Provide(),
		ComponentRepo: componentRepo,
		Defaults:      holder,
	})

	return &fixture{
		svc:        svc,
		components: components,
		ctx:        orgContext(t, node),
		clock:      fake,
	}
}

func orgContext(t *testing.T, node *snowflake.Node) context.Context {
	t.Helper()
	return orgcontext.WithOrgID(context.Background(), node.Generate())
}

func (f *fixture) component(t *testing.T, name string, cost float64) *componentdomain.Response {
	t.Helper()
	resp, err := f.components.Create(f.ctx, componentdomain.CreateRequest{
		Name:     name,
		Currency: "USD",
		UnitCost: cost,
	})
	require.NoError(t, err)
	return resp
}

func TestAssembly_CreateWithMembers(t *testing.T) {
	f := newFixture(t)

	sensor := f.component(t, "Sensor-100", 100)
	valve := f.component(t, "Valve-7", 40)

	resp, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Panel-A",
		Members: []domain.MemberRequest{
			{ComponentID: sensor.ID.String(), Quantity: 2},
			{ComponentID: valve.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Members, 2)
	assert.Equal(t, 2.0, resp.Members[0].Quantity)
	assert.Equal(t, 0, resp.Members[0].MemberOrder)
	assert.Equal(t, 1, resp.Members[1].MemberOrder)
}

func TestAssembly_RejectsAmbiguousMember(t *testing.T) {
	f := newFixture(t)
	sensor := f.component(t, "Sensor-100", 100)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Panel-A",
		Members: []domain.MemberRequest{
			{ComponentID: sensor.ID.String(), ChildAssemblyID: sensor.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMember)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Panel-B",
		Members: []domain.MemberRequest{
			{ComponentID: sensor.ID.String(), Quantity: 0},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestAssembly_SetMembersRejectsCycle(t *testing.T) {
	f := newFixture(t)

	inner, err := f.svc.Create(f.ctx, domain.CreateRequest{Name: "Inner"})
	require.NoError(t, err)
	outer, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Outer",
		Members: []domain.MemberRequest{
			{ChildAssemblyID: inner.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	// Closing the loop Inner -> Outer must fail.
	_, err = f.svc.SetMembers(f.ctx, inner.ID.String(), []domain.MemberRequest{
		{ChildAssemblyID: outer.ID.String(), Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrCircularAssembly)

	// Self-reference is the degenerate cycle.
	_, err = f.svc.SetMembers(f.ctx, inner.ID.String(), []domain.MemberRequest{
		{ChildAssemblyID: inner.ID.String(), Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrCircularAssembly)
}

func TestAssembly_CostRollsUpNestedMembers(t *testing.T) {
	f := newFixture(t)

	sensor := f.component(t, "Sensor-100", 100) // USD, rate 4.0
	valve := f.component(t, "Valve-7", 50)

	inner, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Sub",
		Members: []domain.MemberRequest{
			{ComponentID: valve.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	outer, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Name: "Panel-A",
		Members: []domain.MemberRequest{
			{ComponentID: sensor.ID.String(), Quantity: 1},
			{ChildAssemblyID: inner.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	cost, err := f.svc.Cost(f.ctx, outer.ID.String(), f.clock.Now())
	require.NoError(t, err)

	// sensor 100 USD + 3 * (2 * 50 USD) = 400 USD = 1600 ILS at 4.0.
	assert.InDelta(t, 1600.0, cost.UnitCost, 1e-9)
	assert.Equal(t, "ILS", cost.Currency)
}
