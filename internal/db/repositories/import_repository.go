package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/constants"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

var terminalStatuses = []string{string(constants.ImportSuccess), string(constants.ImportError)}

// ImportRepo persists ingestion runs. Rows are append-only once they reach a
// terminal status.
type ImportRepo struct {
	db *gorm.DB
}

func NewImportRepo(db *gorm.DB) *ImportRepo {
	return &ImportRepo{db: db}
}

func (r *ImportRepo) Create(ctx context.Context, imp *gormModels.Import) error {
	if err := r.db.WithContext(ctx).Create(imp).Error; err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when no import has the id
func (r *ImportRepo) GetByID(ctx context.Context, id string) (*gormModels.Import, error) {
	var imp gormModels.Import

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&imp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch import: %w", err)
	}
	return &imp, nil
}

// ImportFilter narrows List; empty fields match everything
type ImportFilter struct {
	DataSourceID string
	SupplierID   string
	Status       constants.ImportStatus
}

func (r *ImportRepo) List(ctx context.Context, f ImportFilter, opts ListOptions) ([]gormModels.Import, error) {
	var imports []gormModels.Import

	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(opts.limit()).Offset(opts.Offset)
	if f.DataSourceID != "" {
		q = q.Where("data_source_id = ?", f.DataSourceID)
	}
	if f.SupplierID != "" {
		q = q.Where("supplier_id = ?", f.SupplierID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	if err := q.Find(&imports).Error; err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	return imports, nil
}

// Update writes the whole row unless the stored status is already terminal,
// in which case ErrImportFinalized is returned and nothing changes
func (r *ImportRepo) Update(ctx context.Context, imp *gormModels.Import) error {
	result := r.db.WithContext(ctx).
		Model(imp).
		Where("status NOT IN ?", terminalStatuses).
		Select("*").
		Omit("id", "created_at").
		Updates(imp)

	if result.Error != nil {
		return fmt.Errorf("failed to update import: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	existing, err := r.GetByID(ctx, imp.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return ErrImportFinalized
}
