package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

// Sensor-100 costs 100 USD, USD→ILS 3.7, quantity 2, margin 25%.
func TestCompute_SingleComponentScenario(t *testing.T) {
	node := testNode(t)
	sensorID := node.Generate()
	systemID := node.Generate()
	itemID := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, Name: "Main", DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID:            itemID,
			SystemID:      systemID,
			Ref:           ComponentRef(sensorID),
			Type:          ItemTypeHardware,
			Quantity:      2,
			MarginPercent: floatPtr(25),
			ItemOrder:     1,
		}},
		Components: map[snowflake.ID]ComponentSnapshot{
			sensorID: {ID: sensorID, Name: "Sensor-100", Active: true, History: []PriceRecord{{
				ComponentID: sensorID,
				Cost:        100,
				Currency:    "USD",
				ValidFrom:   day(2024, time.January, 1),
			}}},
		},
	}

	result, err := Compute(snap, Params{
		BaseCurrency:  "ILS",
		Rates:         map[string]float64{"USD": 3.7},
		DefaultMarkup: 10,
		AsOf:          day(2024, time.July, 1),
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.InDelta(t, 370, item.UnitCost, 1e-9)
	assert.InDelta(t, 740, item.TotalCost, 1e-9)
	assert.InDelta(t, 462.5, item.UnitPrice, 1e-9)
	assert.InDelta(t, 925, item.TotalPrice, 1e-9)
	assert.Equal(t, "1.1", item.DisplayNumber)
	assert.InDelta(t, 25, item.MarginPercent, 1e-9)
}

// Risk 10%, VAT 18%, subtotal 1000 → risk 100, VAT 198, final 1298.
func TestCompute_RiskAndVAT(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID:            node.Generate(),
			SystemID:      systemID,
			Ref:           CustomRef(),
			Type:          ItemTypeSoftware,
			Quantity:      1,
			UnitCost:      800,
			MarginPercent: floatPtr(25), // price 1000
			ItemOrder:     1,
		}},
	}

	result, err := Compute(snap, Params{
		BaseCurrency:   "ILS",
		RiskPercent:    10,
		IncludeVAT:     true,
		VATRatePercent: 18,
		AsOf:           day(2024, time.July, 1),
	})
	require.NoError(t, err)

	calc := result.Calculations
	assert.InDelta(t, 1000, calc.Subtotal, 1e-9)
	assert.InDelta(t, 100, calc.RiskAddition, 1e-9)
	assert.InDelta(t, 198, calc.VATAmount, 1e-9)
	assert.InDelta(t, 1298, calc.FinalTotal, 1e-9)
}

func TestCompute_AssemblyRollupScenario(t *testing.T) {
	node := testNode(t)
	sensor := node.Generate()
	controller := node.Generate()
	panel := node.Generate()
	systemID := node.Generate()

	history := func(id snowflake.ID, cost float64) ComponentSnapshot {
		return ComponentSnapshot{ID: id, Active: true, History: []PriceRecord{{
			ComponentID: id, Cost: cost, Currency: "USD", ValidFrom: day(2024, time.January, 1),
		}}}
	}

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID:        node.Generate(),
			SystemID:  systemID,
			Ref:       AssemblyRef(panel),
			Type:      ItemTypeHardware,
			Quantity:  1,
			ItemOrder: 1,
		}},
		Components: map[snowflake.ID]ComponentSnapshot{
			sensor:     history(sensor, 100),
			controller: history(controller, 300),
		},
		Assemblies: map[snowflake.ID]AssemblySnapshot{
			panel: {ID: panel, Name: "Panel-A", Members: []MemberRef{
				{ComponentID: idPtr(sensor), Quantity: 2},
				{ComponentID: idPtr(controller), Quantity: 1},
			}},
		},
	}

	result, err := Compute(snap, Params{
		BaseCurrency: "USD",
		AsOf:         day(2024, time.July, 1),
	})
	require.NoError(t, err)
	assert.InDelta(t, 500, result.Items[0].UnitCost, 1e-9)
}

func TestCompute_SubtotalMatchesItemSum(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()

	items := []ItemSnapshot{
		{ID: node.Generate(), SystemID: systemID, Ref: CustomRef(), Type: ItemTypeHardware, Quantity: 3, UnitCost: 17.25, ItemOrder: 1},
		{ID: node.Generate(), SystemID: systemID, Ref: CustomRef(), Type: ItemTypeSoftware, Quantity: 1, UnitCost: 999.99, ItemOrder: 2},
		{ID: node.Generate(), SystemID: systemID, Ref: CustomRef(), Type: ItemTypeLabor, LaborSubtype: LaborEngineering, Quantity: 8, UnitCost: 120, ItemOrder: 3},
		{ID: node.Generate(), SystemID: systemID, Ref: CustomRef(), Type: ItemTypeLabor, LaborSubtype: LaborCommissioning, Quantity: 4, UnitCost: 95, ItemOrder: 4},
		{ID: node.Generate(), SystemID: systemID, Ref: CustomRef(), Type: ItemTypeLabor, LaborSubtype: LaborInstallation, Quantity: 2, UnitCost: 80, ItemOrder: 5},
	}

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items:   items,
	}

	result, err := Compute(snap, Params{
		BaseCurrency:  "ILS",
		DefaultMarkup: 20,
		RiskPercent:   5,
		AsOf:          day(2024, time.July, 1),
	})
	require.NoError(t, err)

	var sum float64
	for _, item := range result.Items {
		sum += item.TotalPrice
	}
	assert.InDelta(t, sum, result.Calculations.Subtotal, 1e-9)

	labor := result.Calculations.LaborEngineering.Price +
		result.Calculations.LaborCommissioning.Price +
		result.Calculations.LaborInstallation.Price
	assert.InDelta(t, labor, result.Calculations.Labor.Price, 1e-9)

	// Shares are a derived view over the same subtotal.
	var shareSum float64
	for _, key := range []string{"hardware", "software", "labor"} {
		shareSum += result.Calculations.CategoryShares[key]
	}
	assert.InDelta(t, 100, shareSum, 1e-9)
}

func TestCompute_Deterministic(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()
	sensor := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 2}},
		Items: []ItemSnapshot{{
			ID: node.Generate(), SystemID: systemID, Ref: ComponentRef(sensor),
			Type: ItemTypeHardware, Quantity: 3, ItemOrder: 1,
		}},
		Components: map[snowflake.ID]ComponentSnapshot{
			sensor: {ID: sensor, History: []PriceRecord{{
				ComponentID: sensor, Cost: 100, Currency: "USD", ValidFrom: day(2024, time.January, 1),
			}}},
		},
	}
	params := Params{
		BaseCurrency:  "ILS",
		Rates:         map[string]float64{"USD": 3.7},
		DefaultMarkup: 15,
		AsOf:          day(2024, time.July, 1),
	}

	first, err := Compute(snap, params)
	require.NoError(t, err)
	second, err := Compute(snap, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// System multiplier scales item quantity.
	assert.Equal(t, 6, first.Items[0].Quantity)
}

func TestCompute_UnpricedComponentFails(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()
	sensor := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID: node.Generate(), SystemID: systemID, Ref: ComponentRef(sensor),
			Type: ItemTypeHardware, Quantity: 1, ItemOrder: 1,
		}},
		Components: map[snowflake.ID]ComponentSnapshot{
			sensor: {ID: sensor, Name: "Sensor-100"}, // no price history
		},
	}

	_, err := Compute(snap, Params{BaseCurrency: "ILS", AsOf: day(2024, time.July, 1)})
	assert.True(t, errors.Is(err, ErrNoActivePrice), "missing price must never default to zero")
}

func TestCompute_CustomItemWarning(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()
	itemID := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID: itemID, SystemID: systemID, Ref: CustomRef(),
			Type: ItemTypeHardware, Quantity: 1, UnitCost: 50, ItemOrder: 1,
		}},
	}

	result, err := Compute(snap, Params{BaseCurrency: "ILS", AsOf: day(2024, time.July, 1)})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnCustomItemUntracked, result.Warnings[0].Code)
	assert.Equal(t, itemID, result.Warnings[0].ItemID)
	assert.True(t, result.Items[0].Custom)
}

func TestCompute_CircularAssemblyFails(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()
	a := node.Generate()
	b := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID: node.Generate(), SystemID: systemID, Ref: AssemblyRef(a),
			Type: ItemTypeHardware, Quantity: 1, ItemOrder: 1,
		}},
		Assemblies: map[snowflake.ID]AssemblySnapshot{
			a: {ID: a, Members: []MemberRef{{AssemblyID: idPtr(b), Quantity: 1}}},
			b: {ID: b, Members: []MemberRef{{AssemblyID: idPtr(a), Quantity: 1}}},
		},
	}

	_, err := Compute(snap, Params{BaseCurrency: "ILS", AsOf: day(2024, time.July, 1)})
	assert.True(t, errors.Is(err, ErrCircularAssembly))
}

func TestCompute_LaborSubtypeRequired(t *testing.T) {
	node := testNode(t)
	systemID := node.Generate()

	snap := Snapshot{
		Systems: []SystemSnapshot{{ID: systemID, DisplayOrder: 1, Multiplier: 1}},
		Items: []ItemSnapshot{{
			ID: node.Generate(), SystemID: systemID, Ref: CustomRef(),
			Type: ItemTypeLabor, Quantity: 1, UnitCost: 100, ItemOrder: 1,
		}},
	}

	_, err := Compute(snap, Params{BaseCurrency: "ILS", AsOf: day(2024, time.July, 1)})
	assert.True(t, errors.Is(err, ErrInvalidItemType))
}
