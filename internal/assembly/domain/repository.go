package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, assembly *Assembly) error
	Update(ctx context.Context, db *gorm.DB, assembly *Assembly) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Assembly, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Assembly, error)

	ReplaceMembers(ctx context.Context, db *gorm.DB, assemblyID snowflake.ID, members []AssemblyMember) error
	ListMembers(ctx context.Context, db *gorm.DB, assemblyID snowflake.ID) ([]AssemblyMember, error)
	// ListAllForOrg loads every assembly of the organization with members,
	// for graph validation and cost roll-up.
	ListAllForOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Assembly, error)
}
