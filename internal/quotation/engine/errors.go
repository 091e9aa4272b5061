package engine

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidInput     = errors.New("invalid_input")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrNoActivePrice    = errors.New("no_active_price")
	ErrCircularAssembly = errors.New("circular_assembly")
	ErrUnknownAssembly  = errors.New("unknown_assembly")
	ErrUnknownComponent = errors.New("unknown_component")
	ErrMissingReference = errors.New("missing_reference")
	ErrInvalidItemType  = errors.New("invalid_item_type")
)

// WarningCode classifies recoverable findings surfaced alongside a result.
type WarningCode string

const (
	WarnPriceClamped        WarningCode = "price_clamped"
	WarnOverlappingWindows  WarningCode = "overlapping_price_windows"
	WarnCustomItemUntracked WarningCode = "custom_item_untraced"
)

// Warning is attached to a compute result instead of failing it. The hard
// failures (cycles, missing prices, missing rates) never degrade to warnings.
type Warning struct {
	Code   WarningCode  `json:"code"`
	ItemID snowflake.ID `json:"item_id,omitempty"`
	Detail string       `json:"detail,omitempty"`
}
