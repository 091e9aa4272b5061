package engine

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type ItemType string

const (
	ItemTypeHardware ItemType = "HARDWARE"
	ItemTypeSoftware ItemType = "SOFTWARE"
	ItemTypeLabor    ItemType = "LABOR"
)

type LaborSubtype string

const (
	LaborEngineering   LaborSubtype = "ENGINEERING"
	LaborCommissioning LaborSubtype = "COMMISSIONING"
	LaborInstallation  LaborSubtype = "INSTALLATION"
)

type RefKind string

const (
	RefComponent RefKind = "COMPONENT"
	RefAssembly  RefKind = "ASSEMBLY"
	RefCustom    RefKind = "CUSTOM"
)

// ItemRef is the tagged reference of a quotation item. Exactly one target is
// populated for component and assembly items; custom items reference nothing
// and price from their stored unit cost.
type ItemRef struct {
	Kind        RefKind
	ComponentID snowflake.ID
	AssemblyID  snowflake.ID
}

func ComponentRef(id snowflake.ID) ItemRef { return ItemRef{Kind: RefComponent, ComponentID: id} }
func AssemblyRef(id snowflake.ID) ItemRef  { return ItemRef{Kind: RefAssembly, AssemblyID: id} }
func CustomRef() ItemRef                   { return ItemRef{Kind: RefCustom} }

// ItemSnapshot is the persisted shape of a quotation line item at compute time.
type ItemSnapshot struct {
	ID            snowflake.ID
	SystemID      snowflake.ID
	Ref           ItemRef
	Type          ItemType
	LaborSubtype  LaborSubtype
	Quantity      int
	UnitCost      float64
	Currency      string
	MarginPercent *float64
	ItemOrder     int
	Notes         string
}

// SystemSnapshot is a named grouping inside a quotation. Its multiplier
// scales the quantity of every item it contains.
type SystemSnapshot struct {
	ID           snowflake.ID
	Name         string
	DisplayOrder int
	Multiplier   int
}

// ComputedItem is the display-ready output for one line item. All monetary
// fields are in the quotation's base currency.
type ComputedItem struct {
	ItemID        snowflake.ID `json:"item_id"`
	SystemID      snowflake.ID `json:"system_id"`
	DisplayNumber string       `json:"display_number"`
	ItemOrder     int          `json:"item_order"`
	Type          ItemType     `json:"item_type"`
	LaborSubtype  LaborSubtype `json:"labor_subtype,omitempty"`
	Custom        bool         `json:"custom"`
	Quantity      int          `json:"quantity"`
	UnitCost      float64      `json:"unit_cost"`
	TotalCost     float64      `json:"total_cost"`
	MarginPercent float64      `json:"margin_percent"`
	UnitPrice     float64      `json:"unit_price"`
	TotalPrice    float64      `json:"total_price"`
}

func (t ItemType) valid() bool {
	switch t {
	case ItemTypeHardware, ItemTypeSoftware, ItemTypeLabor:
		return true
	}
	return false
}

func (s LaborSubtype) valid() bool {
	switch s {
	case LaborEngineering, LaborCommissioning, LaborInstallation:
		return true
	}
	return false
}

// materializeItem turns a persisted item plus its resolved base-currency unit
// cost into a fully computed line. Custom items price from their stored unit
// cost instead of unitCostBase; that exception to price traceability is
// labeled on the computed output.
func materializeItem(item ItemSnapshot, system SystemSnapshot, unitCostBase float64, defaultMarkup float64) (ComputedItem, []Warning, error) {
	if item.Quantity <= 0 {
		return ComputedItem{}, nil, fmt.Errorf("%w: item %s has non-positive quantity %d", ErrInvalidInput, item.ID, item.Quantity)
	}
	if !item.Type.valid() {
		return ComputedItem{}, nil, fmt.Errorf("%w: %q", ErrInvalidItemType, item.Type)
	}
	if item.Type == ItemTypeLabor && !item.LaborSubtype.valid() {
		return ComputedItem{}, nil, fmt.Errorf("%w: labor item %s without subtype", ErrInvalidItemType, item.ID)
	}
	if item.Type != ItemTypeLabor && item.LaborSubtype != "" {
		return ComputedItem{}, nil, fmt.Errorf("%w: non-labor item %s with subtype %q", ErrInvalidItemType, item.ID, item.LaborSubtype)
	}

	var warnings []Warning

	unitCost := unitCostBase
	if item.Ref.Kind == RefCustom {
		if item.UnitCost < 0 {
			return ComputedItem{}, nil, fmt.Errorf("%w: item %s has negative unit cost", ErrInvalidInput, item.ID)
		}
		unitCost = item.UnitCost
		warnings = append(warnings, Warning{
			Code:   WarnCustomItemUntracked,
			ItemID: item.ID,
			Detail: "custom item priced from stored unit cost, not a price-history record",
		})
	}

	markup := defaultMarkup
	if item.MarginPercent != nil {
		markup = *item.MarginPercent
	}

	result, err := ApplyMarkup(unitCost, markup)
	if err != nil {
		return ComputedItem{}, nil, err
	}
	if result.Clamped {
		warnings = append(warnings, Warning{
			Code:   WarnPriceClamped,
			ItemID: item.ID,
			Detail: fmt.Sprintf("markup %.2f%% drove price below zero, clamped", markup),
		})
	}

	multiplier := system.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	quantity := item.Quantity * multiplier

	margin, err := CalculateMargin(unitCost, result.Price)
	if err != nil {
		return ComputedItem{}, nil, err
	}

	return ComputedItem{
		ItemID:        item.ID,
		SystemID:      item.SystemID,
		DisplayNumber: fmt.Sprintf("%d.%d", system.DisplayOrder, item.ItemOrder),
		ItemOrder:     item.ItemOrder,
		Type:          item.Type,
		LaborSubtype:  item.LaborSubtype,
		Custom:        item.Ref.Kind == RefCustom,
		Quantity:      quantity,
		UnitCost:      unitCost,
		TotalCost:     unitCost * float64(quantity),
		MarginPercent: margin,
		UnitPrice:     result.Price,
		TotalPrice:    result.Price * float64(quantity),
	}, warnings, nil
}
