// Package domain contains the component library models. Components are owned
// here and referenced, never owned, by quotation line items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Component struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index;uniqueIndex:uniq_components_org_name"`
	Name         string            `json:"name" gorm:"type:text;not null;uniqueIndex:uniq_components_org_name"`
	Manufacturer string            `json:"manufacturer" gorm:"type:text"`
	Category     string            `json:"category" gorm:"type:text;index"`
	Currency     string            `json:"currency" gorm:"type:text;not null"`
	UnitCost     float64           `json:"unit_cost" gorm:"not null"`
	CachedCosts  datatypes.JSONMap `json:"cached_costs,omitempty" gorm:"type:jsonb"`
	Active       bool              `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Component) TableName() string { return "components" }

// PriceHistoryRecord is one immutable entry of a component's price history.
// At most one record per component is open (ValidTo == nil) at any time;
// closed records are never rewritten or deleted.
type PriceHistoryRecord struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	ComponentID snowflake.ID `json:"component_id" gorm:"not null;index"`
	Cost        float64      `json:"cost" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null"`
	ValidFrom   time.Time    `json:"valid_from" gorm:"not null"`
	ValidTo     *time.Time   `json:"valid_to,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceHistoryRecord) TableName() string { return "price_history_records" }
