package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/component/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, component *domain.Component) error {
	return db.WithContext(ctx).Create(component).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, component *domain.Component) error {
	return db.WithContext(ctx).Save(component).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Component, error) {
	var component domain.Component
	err := db.WithContext(ctx).First(&component, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &component, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Component, error) {
	stmt := db.WithContext(ctx).Model(&domain.Component{})
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}

	var components []domain.Component
	err := stmt.Order("name asc, id asc").Find(&components).Error
	return components, err
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, record *domain.PriceHistoryRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) OpenPrice(ctx context.Context, db *gorm.DB, componentID snowflake.ID) (*domain.PriceHistoryRecord, error) {
	var record domain.PriceHistoryRecord
	err := db.WithContext(ctx).
		Where("component_id = ? AND valid_to IS NULL", componentID).
		Order("valid_from desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ClosePrice(ctx context.Context, db *gorm.DB, record *domain.PriceHistoryRecord) error {
	return db.WithContext(ctx).
		Model(&domain.PriceHistoryRecord{}).
		Where("id = ?", record.ID).
		Update("valid_to", record.ValidTo).Error
}

func (r *repo) ListPrices(ctx context.Context, db *gorm.DB, componentID snowflake.ID) ([]domain.PriceHistoryRecord, error) {
	var records []domain.PriceHistoryRecord
	err := db.WithContext(ctx).
		Where("component_id = ?", componentID).
		Order("valid_from asc").
		Find(&records).Error
	return records, err
}

func (r *repo) ListPricesForComponents(ctx context.Context, db *gorm.DB, componentIDs []snowflake.ID) ([]domain.PriceHistoryRecord, error) {
	if len(componentIDs) == 0 {
		return nil, nil
	}
	var records []domain.PriceHistoryRecord
	err := db.WithContext(ctx).
		Where("component_id IN ?", componentIDs).
		Order("component_id asc, valid_from asc").
		Find(&records).Error
	return records, err
}
