package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, component *Component) error
	Update(ctx context.Context, db *gorm.DB, component *Component) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Component, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Component, error)

	InsertPrice(ctx context.Context, db *gorm.DB, record *PriceHistoryRecord) error
	OpenPrice(ctx context.Context, db *gorm.DB, componentID snowflake.ID) (*PriceHistoryRecord, error)
	ClosePrice(ctx context.Context, db *gorm.DB, record *PriceHistoryRecord) error
	ListPrices(ctx context.Context, db *gorm.DB, componentID snowflake.ID) ([]PriceHistoryRecord, error)
	ListPricesForComponents(ctx context.Context, db *gorm.DB, componentIDs []snowflake.ID) ([]PriceHistoryRecord, error)
}
