package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// CatalogRepo is the product store the ingestion engine writes to
type CatalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// GetProductBySKU returns nil, nil when the SKU is unknown
func (r *CatalogRepo) GetProductBySKU(ctx context.Context, sku string) (*gormModels.Product, error) {
	var p gormModels.Product

	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p *gormModels.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct refreshes every descriptive column of the product with id;
// the SKU itself never changes
func (r *CatalogRepo) UpdateProduct(ctx context.Context, id string, p *gormModels.Product) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Product{}).
		Where("id = ?", id).
		Select("name", "description", "brand", "manufacturer", "category", "upc", "mpn",
			"price", "cost", "msrp", "weight", "image_url", "status", "attributes").
		Updates(p)

	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateProductSupplier refreshes the (product, supplier) join row from
// data, inserting it when absent. The first supplier of a product becomes
// its primary. created reports whether a row was inserted.
func (r *CatalogRepo) GetOrCreateProductSupplier(ctx context.Context, productID, supplierID string, data gormModels.ProductSupplier) (*gormModels.ProductSupplier, bool, error) {
	now := time.Now()
	data.LastSyncedAt = &now

	existing, err := r.findProductSupplier(ctx, productID, supplierID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, r.refreshProductSupplier(ctx, existing, data)
	}

	var others int64
	if err := r.db.WithContext(ctx).
		Model(&gormModels.ProductSupplier{}).
		Where("product_id = ?", productID).
		Count(&others).Error; err != nil {
		return nil, false, fmt.Errorf("failed to count product suppliers: %w", err)
	}

	row := &gormModels.ProductSupplier{
		ProductID:    productID,
		SupplierID:   supplierID,
		SupplierSKU:  data.SupplierSKU,
		Cost:         data.Cost,
		IsPrimary:    others == 0,
		LastSyncedAt: data.LastSyncedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		// a concurrent run may have inserted the same pair first
		existing, findErr := r.findProductSupplier(ctx, productID, supplierID)
		if findErr != nil || existing == nil {
			return nil, false, fmt.Errorf("failed to create product supplier: %w", err)
		}
		return existing, false, r.refreshProductSupplier(ctx, existing, data)
	}
	return row, true, nil
}

func (r *CatalogRepo) findProductSupplier(ctx context.Context, productID, supplierID string) (*gormModels.ProductSupplier, error) {
	var ps gormModels.ProductSupplier

	err := r.db.WithContext(ctx).
		Where("product_id = ? AND supplier_id = ?", productID, supplierID).
		First(&ps).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch product supplier: %w", err)
	}
	return &ps, nil
}

func (r *CatalogRepo) refreshProductSupplier(ctx context.Context, existing *gormModels.ProductSupplier, data gormModels.ProductSupplier) error {
	existing.SupplierSKU = data.SupplierSKU
	existing.Cost = data.Cost
	existing.LastSyncedAt = data.LastSyncedAt

	err := r.db.WithContext(ctx).
		Model(existing).
		Select("supplier_sku", "cost", "last_synced_at").
		Updates(existing).Error
	if err != nil {
		return fmt.Errorf("failed to update product supplier: %w", err)
	}
	return nil
}

// UpsertInventory records the stock a supplier reports for a product
func (r *CatalogRepo) UpsertInventory(ctx context.Context, productID, supplierID string, quantity int) error {
	row := &gormModels.SupplierInventory{
		ProductID:     productID,
		SupplierID:    supplierID,
		StockQuantity: quantity,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "supplier_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stock_quantity", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert inventory: %w", err)
	}
	return nil
}

// CountProducts is used by health reporting and tests
func (r *CatalogRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&gormModels.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// ListProductSuppliers returns every supplier row of a product
func (r *CatalogRepo) ListProductSuppliers(ctx context.Context, productID string) ([]gormModels.ProductSupplier, error) {
	var rows []gormModels.ProductSupplier
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list product suppliers: %w", err)
	}
	return rows, nil
}
