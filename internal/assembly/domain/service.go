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

	// SetMembers replaces the member list atomically. The new graph is
	// checked for cycles before anything is written.
	SetMembers(ctx context.Context, id string, members []MemberRequest) (*Response, error)

	// Cost rolls the assembly up to a unit cost in the organization's base
	// currency using each component's price active at asOf.
	Cost(ctx context.Context, id string, asOf time.Time) (*CostResponse, error)
}

type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Members     []MemberRequest `json:"members"`
}

type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// MemberRequest sets exactly one of ComponentID or ChildAssemblyID.
type MemberRequest struct {
	ComponentID     string  `json:"component_id,omitempty"`
	ChildAssemblyID string  `json:"child_assembly_id,omitempty"`
	Quantity        float64 `json:"quantity"`
}

type ListFilter struct {
	Name   string
	Active *bool
}

type Response struct {
	ID          snowflake.ID     `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Active      bool             `json:"active"`
	Members     []MemberResponse `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type MemberResponse struct {
	ID              snowflake.ID  `json:"id"`
	ComponentID     *snowflake.ID `json:"component_id,omitempty"`
	ChildAssemblyID *snowflake.ID `json:"child_assembly_id,omitempty"`
	Quantity        float64       `json:"quantity"`
	MemberOrder     int           `json:"member_order"`
}

type CostResponse struct {
	AssemblyID snowflake.ID `json:"assembly_id"`
	UnitCost   float64      `json:"unit_cost"`
	Currency   string       `json:"currency"`
	AsOf       time.Time    `json:"as_of"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")

	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidMember    = errors.New("invalid_member")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrCircularAssembly = errors.New("circular_assembly")
	ErrNotFound         = errors.New("not_found")
)
