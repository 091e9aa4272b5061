package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/quotation/domain"
	"github.com/craftbom/quotora/pkg/db/option"
	"github.com/craftbom/quotora/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func systems(db *gorm.DB) repository.Repository[domain.QuotationSystem] {
	return repository.ProvideStore[domain.QuotationSystem](db)
}

func items(db *gorm.DB) repository.Repository[domain.QuotationItem] {
	return repository.ProvideStore[domain.QuotationItem](db)
}

func itemResults(db *gorm.DB) repository.Repository[domain.QuotationItemResult] {
	return repository.ProvideStore[domain.QuotationItemResult](db)
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.QuotationProject) error {
	return db.WithContext(ctx).Omit("Systems", "Items").Create(project).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, project *domain.QuotationProject) error {
	return db.WithContext(ctx).Omit("Systems", "Items").Save(project).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.QuotationProject, error) {
	var project domain.QuotationProject
	err := db.WithContext(ctx).
		Preload("Systems", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order asc, id asc")
		}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_order asc, id asc")
		}).
		First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.QuotationProject, error) {
	stmt := db.WithContext(ctx).Model(&domain.QuotationProject{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}

	stmt = option.ApplyPagination(filter.Page).Apply(stmt)
	stmt = option.WithOrder("created_at desc, id desc").Apply(stmt)

	var projects []domain.QuotationProject
	err := stmt.Find(&projects).Error
	return projects, err
}

func (r *repo) InsertSystem(ctx context.Context, db *gorm.DB, system *domain.QuotationSystem) error {
	return systems(db).Create(ctx, system)
}

func (r *repo) UpdateSystem(ctx context.Context, db *gorm.DB, system *domain.QuotationSystem) error {
	return db.WithContext(ctx).Save(system).Error
}

func (r *repo) DeleteSystem(ctx context.Context, db *gorm.DB, systemID snowflake.ID) error {
	return systems(db).Delete(ctx, systemID.String())
}

func (r *repo) CountSystemItems(ctx context.Context, db *gorm.DB, systemID snowflake.ID) (int64, error) {
	return items(db).Count(ctx, &domain.QuotationItem{SystemID: systemID})
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.QuotationItem) error {
	return items(db).Create(ctx, item)
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.QuotationItem) error {
	return db.WithContext(ctx).Save(item).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID) error {
	return items(db).Delete(ctx, itemID.String())
}

func (r *repo) UpsertParameters(ctx context.Context, db *gorm.DB, params *domain.QuotationParameters) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quotation_id"}},
			UpdateAll: true,
		}).
		Create(params).Error
}

func (r *repo) FindParameters(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) (*domain.QuotationParameters, error) {
	return repository.ProvideStore[domain.QuotationParameters](db).
		FindOne(ctx, &domain.QuotationParameters{QuotationID: quotationID})
}

func (r *repo) ReplaceCalculations(ctx context.Context, db *gorm.DB, calc *domain.QuotationCalculations, items []domain.QuotationItemResult) error {
	err := db.WithContext(ctx).
		Where("quotation_id = ?", calc.QuotationID).
		Delete(&domain.QuotationCalculations{}).Error
	if err != nil {
		return err
	}
	err = db.WithContext(ctx).
		Where("quotation_id = ?", calc.QuotationID).
		Delete(&domain.QuotationItemResult{}).Error
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(calc).Error; err != nil {
		return err
	}
	rows := make([]*domain.QuotationItemResult, 0, len(items))
	for i := range items {
		rows = append(rows, &items[i])
	}
	return itemResults(db).BatchCreate(ctx, rows)
}

func (r *repo) FindCalculations(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) (*domain.QuotationCalculations, error) {
	return repository.ProvideStore[domain.QuotationCalculations](db).
		FindOne(ctx, &domain.QuotationCalculations{QuotationID: quotationID})
}

func (r *repo) ListItemResults(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) ([]domain.QuotationItemResult, error) {
	rows, err := itemResults(db).Find(ctx,
		&domain.QuotationItemResult{QuotationID: quotationID},
		option.WithOrder("seq asc, id asc"))
	if err != nil {
		return nil, err
	}
	results := make([]domain.QuotationItemResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, *row)
	}
	return results, nil
}
