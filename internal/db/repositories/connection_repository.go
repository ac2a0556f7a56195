package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// ConnectionRepo handles connection and supplier rows
type ConnectionRepo struct {
	db *gorm.DB
}

func NewConnectionRepo(db *gorm.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// GetByID returns nil, nil when no connection has the id
func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*gormModels.Connection, error) {
	var conn gormModels.Connection

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conn).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch connection: %w", err)
	}

	return &conn, nil
}

// List returns connections newest first, optionally only active ones
func (r *ConnectionRepo) List(ctx context.Context, activeOnly bool, opts ListOptions) ([]gormModels.Connection, error) {
	var conns []gormModels.Connection

	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(opts.limit()).Offset(opts.Offset)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	if err := q.Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func (r *ConnectionRepo) Create(ctx context.Context, conn *gormModels.Connection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// Update writes every mutable column, including zero values
func (r *ConnectionRepo) Update(ctx context.Context, conn *gormModels.Connection) error {
	result := r.db.WithContext(ctx).
		Model(conn).
		Select("name", "kind", "credentials", "supplier_id", "is_active").
		Updates(conn)

	if result.Error != nil {
		return fmt.Errorf("failed to update connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTestResult touches only the last_test columns; credentials are left alone
func (r *ConnectionRepo) RecordTestResult(ctx context.Context, id string, success bool, message string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Connection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_tested":       at,
			"last_test_success": success,
			"last_test_message": message,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to record test result: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConnectionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&gormModels.Connection{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSupplier returns nil, nil when no supplier has the id
func (r *ConnectionRepo) GetSupplier(ctx context.Context, id string) (*gormModels.Supplier, error) {
	var s gormModels.Supplier

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch supplier: %w", err)
	}
	return &s, nil
}

func (r *ConnectionRepo) CreateSupplier(ctx context.Context, s *gormModels.Supplier) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) ListSuppliers(ctx context.Context, opts ListOptions) ([]gormModels.Supplier, error) {
	var list []gormModels.Supplier

	err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(opts.limit()).
		Offset(opts.Offset).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return list, nil
}

// UpdateSupplier writes name, contact email and status
func (r *ConnectionRepo) UpdateSupplier(ctx context.Context, s *gormModels.Supplier) error {
	result := r.db.WithContext(ctx).
		Model(s).
		Select("name", "contact_email", "status").
		Updates(s)

	if result.Error != nil {
		return fmt.Errorf("failed to update supplier: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConnectionRepo) DeleteSupplier(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&gormModels.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete supplier: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSupplierReferences counts the connections, data sources and product
// links that name the supplier
func (r *ConnectionRepo) CountSupplierReferences(ctx context.Context, id string) (int64, error) {
	var total int64
	for _, model := range []interface{}{&gormModels.Connection{}, &gormModels.DataSource{}, &gormModels.ProductSupplier{}} {
		var n int64
		if err := r.db.WithContext(ctx).Model(model).Where("supplier_id = ?", id).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("failed to count supplier references: %w", err)
		}
		total += n
	}
	return total, nil
}
