package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, filter ListFilter) ([]Response, error)
	SetPrice(ctx context.Context, id string, req SetPriceRequest) (*Response, error)
	PriceHistory(ctx context.Context, id string) ([]PriceHistoryRecord, error)
}

type CreateRequest struct {
	Name         string             `json:"name"`
	Manufacturer string             `json:"manufacturer"`
	Category     string             `json:"category"`
	Currency     string             `json:"currency"`
	UnitCost     float64            `json:"unit_cost"`
	CachedCosts  map[string]float64 `json:"cached_costs"`
	Active       *bool              `json:"active"`
}

type UpdateRequest struct {
	Name         *string            `json:"name"`
	Manufacturer *string            `json:"manufacturer"`
	Category     *string            `json:"category"`
	CachedCosts  map[string]float64 `json:"cached_costs"`
	Active       *bool              `json:"active"`
}

// SetPriceRequest opens a new price-history window. EffectiveFrom defaults to
// now; the previously open record is closed at the same instant.
type SetPriceRequest struct {
	Cost          float64    `json:"cost"`
	Currency      string     `json:"currency"`
	EffectiveFrom *time.Time `json:"effective_from"`
}

type ListFilter struct {
	Category string
	Active   *bool
	Name     string
}

type Response struct {
	ID           snowflake.ID       `json:"id"`
	Name         string             `json:"name"`
	Manufacturer string             `json:"manufacturer,omitempty"`
	Category     string             `json:"category,omitempty"`
	Currency     string             `json:"currency"`
	UnitCost     float64            `json:"unit_cost"`
	CachedCosts  map[string]float64 `json:"cached_costs,omitempty"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")

	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCost     = errors.New("invalid_cost")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrNameTaken       = errors.New("name_taken")
	ErrNotFound        = errors.New("not_found")
)
