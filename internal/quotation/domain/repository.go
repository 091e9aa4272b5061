package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *QuotationProject) error
	Update(ctx context.Context, db *gorm.DB, project *QuotationProject) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuotationProject, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]QuotationProject, error)

	InsertSystem(ctx context.Context, db *gorm.DB, system *QuotationSystem) error
	UpdateSystem(ctx context.Context, db *gorm.DB, system *QuotationSystem) error
	DeleteSystem(ctx context.Context, db *gorm.DB, systemID snowflake.ID) error
	CountSystemItems(ctx context.Context, db *gorm.DB, systemID snowflake.ID) (int64, error)

	InsertItem(ctx context.Context, db *gorm.DB, item *QuotationItem) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *QuotationItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) error

	UpsertParameters(ctx context.Context, db *gorm.DB, params *QuotationParameters) error
	FindParameters(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) (*QuotationParameters, error)

	// ReplaceCalculations deletes any previous snapshot and item results for
	// the quotation and writes the new ones.
	ReplaceCalculations(ctx context.Context, db *gorm.DB, calc *QuotationCalculations, items []QuotationItemResult) error
	FindCalculations(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) (*QuotationCalculations, error)
	ListItemResults(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) ([]QuotationItemResult, error)
}
