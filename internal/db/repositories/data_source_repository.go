package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// DataSourceRepo handles data source and mapping template rows
type DataSourceRepo struct {
	db *gorm.DB
}

func NewDataSourceRepo(db *gorm.DB) *DataSourceRepo {
	return &DataSourceRepo{db: db}
}

// GetByID returns nil, nil when no data source has the id
func (r *DataSourceRepo) GetByID(ctx context.Context, id string) (*gormModels.DataSource, error) {
	var ds gormModels.DataSource

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ds).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch data source: %w", err)
	}

	return &ds, nil
}

func (r *DataSourceRepo) List(ctx context.Context, opts ListOptions) ([]gormModels.DataSource, error) {
	var sources []gormModels.DataSource

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(opts.limit()).
		Offset(opts.Offset).
		Find(&sources).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	return sources, nil
}

func (r *DataSourceRepo) Create(ctx context.Context, ds *gormModels.DataSource) error {
	if err := r.db.WithContext(ctx).Create(ds).Error; err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	return nil
}

func (r *DataSourceRepo) Update(ctx context.Context, ds *gormModels.DataSource) error {
	result := r.db.WithContext(ctx).
		Model(ds).
		Select("name", "kind", "supplier_id", "connection_id", "mapping_template_id", "config", "active").
		Updates(ds)

	if result.Error != nil {
		return fmt.Errorf("failed to update data source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DataSourceRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&gormModels.DataSource{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete data source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTemplate returns nil, nil when no template has the id
func (r *DataSourceRepo) GetTemplate(ctx context.Context, id string) (*gormModels.MappingTemplate, error) {
	var tpl gormModels.MappingTemplate

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch mapping template: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns templates by name, optionally restricted to one
// source kind and to active templates
func (r *DataSourceRepo) ListTemplates(ctx context.Context, sourceKind string, activeOnly bool) ([]gormModels.MappingTemplate, error) {
	var tpls []gormModels.MappingTemplate

	q := r.db.WithContext(ctx).Order("name ASC")
	if sourceKind != "" {
		q = q.Where("source_kind = ?", sourceKind)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	if err := q.Find(&tpls).Error; err != nil {
		return nil, fmt.Errorf("failed to list mapping templates: %w", err)
	}
	return tpls, nil
}

func (r *DataSourceRepo) CreateTemplate(ctx context.Context, tpl *gormModels.MappingTemplate) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("failed to create mapping template: %w", err)
	}
	return nil
}

func (r *DataSourceRepo) UpdateTemplate(ctx context.Context, tpl *gormModels.MappingTemplate) error {
	result := r.db.WithContext(ctx).
		Model(tpl).
		Select("name", "source_kind", "field_mappings", "validation_rules", "keep_unmapped", "active").
		Updates(tpl)

	if result.Error != nil {
		return fmt.Errorf("failed to update mapping template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DataSourceRepo) DeleteTemplate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&gormModels.MappingTemplate{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete mapping template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
