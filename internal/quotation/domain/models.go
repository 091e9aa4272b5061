// Package domain contains the quotation aggregate: project, systems, line
// items, per-quotation parameters and the derived calculations snapshot.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusWon   Status = "won"
	StatusLost  Status = "lost"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusWon, StatusLost:
		return true
	}
	return false
}

type QuotationProject struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	CustomerName    string       `json:"customer_name" gorm:"type:text"`
	CustomerContact string       `json:"customer_contact" gorm:"type:text"`
	ProjectRef      string       `json:"project_ref" gorm:"type:text"`
	Status          Status       `json:"status" gorm:"type:text;not null;default:draft"`
	// CalculationsStale is set on every mutation that can change totals and
	// cleared inside the recompute transaction.
	CalculationsStale bool      `json:"calculations_stale" gorm:"not null;default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Systems []QuotationSystem `json:"systems,omitempty" gorm:"foreignKey:QuotationID"`
	Items   []QuotationItem   `json:"items,omitempty" gorm:"foreignKey:QuotationID"`
}

func (QuotationProject) TableName() string { return "quotation_projects" }

type QuotationSystem struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	QuotationID  snowflake.ID `json:"quotation_id" gorm:"not null;index"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	DisplayOrder int          `json:"display_order" gorm:"not null;default:1"`
	Multiplier   int          `json:"multiplier" gorm:"not null;default:1"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QuotationSystem) TableName() string { return "quotation_systems" }

// QuotationItem references a component, an assembly or nothing (custom).
// UnitCost and Currency are only authoritative for custom items; referenced
// items resolve cost from the component library at compute time.
type QuotationItem struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	QuotationID   snowflake.ID  `json:"quotation_id" gorm:"not null;index"`
	SystemID      snowflake.ID  `json:"system_id" gorm:"not null;index"`
	RefKind       string        `json:"ref_kind" gorm:"type:text;not null"`
	ComponentID   *snowflake.ID `json:"component_id,omitempty" gorm:"index"`
	AssemblyID    *snowflake.ID `json:"assembly_id,omitempty" gorm:"index"`
	ItemType      string        `json:"item_type" gorm:"type:text;not null"`
	LaborSubtype  string        `json:"labor_subtype,omitempty" gorm:"type:text"`
	Quantity      int           `json:"quantity" gorm:"not null"`
	UnitCost      float64       `json:"unit_cost" gorm:"not null;default:0"`
	Currency      string        `json:"currency" gorm:"type:text"`
	MarginPercent *float64      `json:"margin_percent,omitempty"`
	ItemOrder     int           `json:"item_order" gorm:"not null;default:0"`
	Notes         string        `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QuotationItem) TableName() string { return "quotation_items" }

// QuotationParameters is the per-quotation pricing configuration, seeded from
// the org defaults at creation and owned by the quotation afterwards.
type QuotationParameters struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	QuotationID    snowflake.ID `json:"quotation_id" gorm:"not null;uniqueIndex"`
	BaseCurrency   string       `json:"base_currency" gorm:"type:text;not null"`
	UsdToBase      float64      `json:"usd_to_base" gorm:"not null"`
	EurToBase      float64      `json:"eur_to_base" gorm:"not null"`
	DefaultMarkup  float64      `json:"default_markup" gorm:"not null"`
	DayLaborCost   float64      `json:"day_labor_cost" gorm:"not null"`
	RiskPercent    float64      `json:"risk_percent" gorm:"not null;default:0"`
	IncludeVAT     bool         `json:"include_vat" gorm:"not null;default:true"`
	VATRatePercent float64      `json:"vat_rate_percent" gorm:"column:vat_rate_percent;not null"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QuotationParameters) TableName() string { return "quotation_parameters" }

// QuotationCalculations is the derived snapshot of one compute pass. Exactly
// one row per quotation; Recalculate replaces it rather than appending.
type QuotationCalculations struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	QuotationID snowflake.ID `json:"quotation_id" gorm:"not null;uniqueIndex"`

	TotalCost           float64 `json:"total_cost" gorm:"not null"`
	Subtotal            float64 `json:"subtotal" gorm:"not null"`
	RiskAddition        float64 `json:"risk_addition" gorm:"not null"`
	VATAmount           float64 `json:"vat_amount" gorm:"column:vat_amount;not null"`
	FinalTotal          float64 `json:"final_total" gorm:"not null"`
	ProfitMarginPercent float64 `json:"profit_margin_percent" gorm:"not null"`

	// Per-category totals and percentage shares, keyed by category name.
	Categories datatypes.JSONMap `json:"categories" gorm:"type:jsonb"`
	Shares     datatypes.JSONMap `json:"shares" gorm:"type:jsonb"`
	Warnings   datatypes.JSON    `json:"warnings,omitempty" gorm:"type:jsonb"`

	ComputedAt time.Time `json:"computed_at" gorm:"not null"`
}

func (QuotationCalculations) TableName() string { return "quotation_calculations" }

// QuotationItemResult is the persisted computed line for one item, rebuilt
// wholesale on every recompute.
type QuotationItemResult struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	QuotationID   snowflake.ID `json:"quotation_id" gorm:"not null;index"`
	ItemID        snowflake.ID `json:"item_id" gorm:"not null;index"`
	SystemID      snowflake.ID `json:"system_id" gorm:"not null"`
	// Seq preserves the engine's display order; display numbers alone sort
	// lexicographically ("10.1" before "2.1").
	Seq           int    `json:"seq" gorm:"not null;default:0"`
	DisplayNumber string `json:"display_number" gorm:"type:text;not null"`
	ItemType      string       `json:"item_type" gorm:"type:text;not null"`
	LaborSubtype  string       `json:"labor_subtype,omitempty" gorm:"type:text"`
	Custom        bool         `json:"custom" gorm:"not null;default:false"`
	Quantity      int          `json:"quantity" gorm:"not null"`
	UnitCost      float64      `json:"unit_cost" gorm:"not null"`
	TotalCost     float64      `json:"total_cost" gorm:"not null"`
	MarginPercent float64      `json:"margin_percent" gorm:"not null"`
	UnitPrice     float64      `json:"unit_price" gorm:"not null"`
	TotalPrice    float64      `json:"total_price" gorm:"not null"`
	ComputedAt    time.Time    `json:"computed_at" gorm:"not null"`
}

func (QuotationItemResult) TableName() string { return "quotation_item_results" }
