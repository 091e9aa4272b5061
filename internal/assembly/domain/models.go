// Package domain contains the assembly models. An assembly is an ordered bill
// of members, each referencing either a component or another assembly.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Assembly struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Active      bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Members []AssemblyMember `json:"members,omitempty" gorm:"foreignKey:AssemblyID"`
}

func (Assembly) TableName() string { return "assemblies" }

// AssemblyMember references exactly one of a component or a child assembly.
type AssemblyMember struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	AssemblyID       snowflake.ID  `json:"assembly_id" gorm:"not null;index"`
	ComponentID      *snowflake.ID `json:"component_id,omitempty" gorm:"index"`
	ChildAssemblyID  *snowflake.ID `json:"child_assembly_id,omitempty" gorm:"index"`
	Quantity         float64       `json:"quantity" gorm:"not null"`
	MemberOrder      int           `json:"member_order" gorm:"not null;default:0"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AssemblyMember) TableName() string { return "assembly_members" }
