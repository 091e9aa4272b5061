package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/clock"
	"github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/component/repository"
	"github.com/craftbom/quotora/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, fake *clock.FakeClock) (domain.Service, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&domain.Component{}, &domain.PriceHistoryRecord{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, node.Generate()
}

func TestComponent_CreateOpensPriceHistory(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Name:     "Sensor-100",
		Category: "sensors",
		Currency: "usd",
		UnitCost: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, 100.0, resp.UnitCost)
	assert.True(t, resp.Active)

	history, err := svc.PriceHistory(ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 100.0, history[0].Cost)
	assert.Nil(t, history[0].ValidTo)
	assert.Equal(t, fake.Now(), history[0].ValidFrom.UTC())
}

func TestComponent_SetPriceClosesOpenWindow(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Name:     "Sensor-100",
		Currency: "USD",
		UnitCost: 100,
	})
	require.NoError(t, err)

	fake.Advance(30 * 24 * time.Hour)
	updated, err := svc.SetPrice(ctx, resp.ID.String(), domain.SetPriceRequest{Cost: 120})
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.UnitCost)
	assert.Equal(t, "USD", updated.Currency)

	history, err := svc.PriceHistory(ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Closed window ends exactly where the new one begins.
	require.NotNil(t, history[0].ValidTo)
	assert.Equal(t, history[1].ValidFrom.UTC(), history[0].ValidTo.UTC())
	assert.Nil(t, history[1].ValidTo)
	assert.Equal(t, 120.0, history[1].Cost)
}

func TestComponent_SetPriceRejectsNegativeCost(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Name:     "Sensor-100",
		Currency: "USD",
		UnitCost: 100,
	})
	require.NoError(t, err)

	_, err = svc.SetPrice(ctx, resp.ID.String(), domain.SetPriceRequest{Cost: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidCost)
}

func TestComponent_ScopedToOrganization(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Name:     "Sensor-100",
		Currency: "USD",
		UnitCost: 100,
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherCtx := orgcontext.WithOrgID(context.Background(), node.Generate())

	_, err = svc.Get(otherCtx, resp.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), resp.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestComponent_ListFiltersByCategoryAndActive(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	inactive := false
	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Sensor-100", Category: "sensors", Currency: "USD", UnitCost: 100})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Valve-7", Category: "valves", Currency: "USD", UnitCost: 40})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Sensor-200", Category: "sensors", Currency: "USD", UnitCost: 180, Active: &inactive})
	require.NoError(t, err)

	sensors, err := svc.List(ctx, domain.ListFilter{Category: "sensors"})
	require.NoError(t, err)
	assert.Len(t, sensors, 2)

	active := true
	activeSensors, err := svc.List(ctx, domain.ListFilter{Category: "sensors", Active: &active})
	require.NoError(t, err)
	require.Len(t, activeSensors, 1)
	assert.Equal(t, "Sensor-100", activeSensors[0].Name)
}

func TestComponent_DuplicateNameRejected(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, orgID := newTestService(t, fake)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Sensor-100", Currency: "USD", UnitCost: 100})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Sensor-100", Currency: "USD", UnitCost: 120})
	assert.ErrorIs(t, err, domain.ErrNameTaken)
}
