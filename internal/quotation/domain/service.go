package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/quotation/engine"
	"github.com/craftbom/quotora/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*ProjectResponse, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*ProjectResponse, error)
	Get(ctx context.Context, id string) (*ProjectResponse, error)
	List(ctx context.Context, filter ListFilter) (*ListResponse, error)

	AddSystem(ctx context.Context, id string, req SystemRequest) (*ProjectResponse, error)
	UpdateSystem(ctx context.Context, id, systemID string, req SystemRequest) (*ProjectResponse, error)
	DeleteSystem(ctx context.Context, id, systemID string) (*ProjectResponse, error)

	AddItem(ctx context.Context, id string, req ItemRequest) (*ProjectResponse, error)
	UpdateItem(ctx context.Context, id, itemID string, req ItemRequest) (*ProjectResponse, error)
	DeleteItem(ctx context.Context, id, itemID string) (*ProjectResponse, error)

	UpdateParameters(ctx context.Context, id string, req ParametersRequest) (*ProjectResponse, error)

	// Recalculate rebuilds the calculations snapshot and per-item results in
	// one transaction and clears the stale flag.
	Recalculate(ctx context.Context, id string) (*CalculationsResponse, error)

	// Calculations returns the stored snapshot, recomputing first when stale.
	Calculations(ctx context.Context, id string) (*CalculationsResponse, error)
}

type CreateRequest struct {
	Name            string `json:"name"`
	CustomerName    string `json:"customer_name"`
	CustomerContact string `json:"customer_contact"`
	ProjectRef      string `json:"project_ref"`
}

type UpdateRequest struct {
	Name            *string `json:"name"`
	CustomerName    *string `json:"customer_name"`
	CustomerContact *string `json:"customer_contact"`
	ProjectRef      *string `json:"project_ref"`
	Status          *Status `json:"status"`
}

type SystemRequest struct {
	Name         string `json:"name"`
	DisplayOrder *int   `json:"display_order"`
	Multiplier   *int   `json:"multiplier"`
}

// ItemRequest targets exactly one of ComponentID / AssemblyID, or neither for
// a custom item. Custom items must carry UnitCost and may carry Currency.
type ItemRequest struct {
	SystemID      string   `json:"system_id"`
	ComponentID   string   `json:"component_id,omitempty"`
	AssemblyID    string   `json:"assembly_id,omitempty"`
	ItemType      string   `json:"item_type"`
	LaborSubtype  string   `json:"labor_subtype,omitempty"`
	Quantity      int      `json:"quantity"`
	UnitCost      *float64 `json:"unit_cost,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	MarginPercent *float64 `json:"margin_percent,omitempty"`
	ItemOrder     *int     `json:"item_order,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

type ParametersRequest struct {
	BaseCurrency   *string  `json:"base_currency"`
	UsdToBase      *float64 `json:"usd_to_base"`
	EurToBase      *float64 `json:"eur_to_base"`
	DefaultMarkup  *float64 `json:"default_markup"`
	DayLaborCost   *float64 `json:"day_labor_cost"`
	RiskPercent    *float64 `json:"risk_percent"`
	IncludeVAT     *bool    `json:"include_vat"`
	VATRatePercent *float64 `json:"vat_rate_percent"`
}

type ListFilter struct {
	Status Status
	Name   string
	Page   pagination.Pagination
}

type ListResponse struct {
	Data     []ProjectResponse    `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type ProjectResponse struct {
	ID                snowflake.ID        `json:"id"`
	Name              string              `json:"name"`
	CustomerName      string              `json:"customer_name,omitempty"`
	CustomerContact   string              `json:"customer_contact,omitempty"`
	ProjectRef        string              `json:"project_ref,omitempty"`
	Status            Status              `json:"status"`
	CalculationsStale bool                `json:"calculations_stale"`
	Systems           []QuotationSystem   `json:"systems"`
	Items             []QuotationItem     `json:"items"`
	Parameters        QuotationParameters `json:"parameters"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type CalculationsResponse struct {
	QuotationID  snowflake.ID          `json:"quotation_id"`
	Calculations QuotationCalculations `json:"calculations"`
	Items        []QuotationItemResult `json:"items"`
	Warnings     []engine.Warning      `json:"warnings,omitempty"`
	Stale        bool                  `json:"stale"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")

	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidSystem   = errors.New("invalid_system")
	ErrInvalidItem     = errors.New("invalid_item")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrSystemNotEmpty  = errors.New("system_not_empty")
	ErrNotFound        = errors.New("not_found")
	ErrNoCalculations  = errors.New("no_calculations")
)
