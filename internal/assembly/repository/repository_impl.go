package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/assembly/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, assembly *domain.Assembly) error {
	return db.WithContext(ctx).Create(assembly).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, assembly *domain.Assembly) error {
	return db.WithContext(ctx).Omit("Members").Save(assembly).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Assembly, error) {
	var assembly domain.Assembly
	err := db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("member_order asc, id asc")
		}).
		First(&assembly, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assembly, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Assembly, error) {
	stmt := db.WithContext(ctx).Model(&domain.Assembly{})
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	var assemblies []domain.Assembly
	err := stmt.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("member_order asc, id asc")
		}).
		Order("name asc, id asc").
		Find(&assemblies).Error
	return assemblies, err
}

func (r *repo) ReplaceMembers(ctx context.Context, db *gorm.DB, assemblyID snowflake.ID, members []domain.AssemblyMember) error {
	err := db.WithContext(ctx).
		Where("assembly_id = ?", assemblyID).
		Delete(&domain.AssemblyMember{}).Error
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&members).Error
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, assemblyID snowflake.ID) ([]domain.AssemblyMember, error) {
	var members []domain.AssemblyMember
	err := db.WithContext(ctx).
		Where("assembly_id = ?", assemblyID).
		Order("member_order asc, id asc").
		Find(&members).Error
	return members, err
}

func (r *repo) ListAllForOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Assembly, error) {
	var assemblies []domain.Assembly
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("member_order asc, id asc")
		}).
		Find(&assemblies).Error
	return assemblies, err
}
