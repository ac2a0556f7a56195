package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is keyed by its unique SKU
type Product struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	SKU          string    `gorm:"column:sku;uniqueIndex;not null" json:"sku"`
	Name         string    `gorm:"column:name" json:"name"`
	Description  string    `gorm:"column:description" json:"description,omitempty"`
	Brand        string    `gorm:"column:brand" json:"brand,omitempty"`
	Manufacturer string    `gorm:"column:manufacturer" json:"manufacturer,omitempty"`
	Category     string    `gorm:"column:category" json:"category,omitempty"`
	UPC          string    `gorm:"column:upc" json:"upc,omitempty"`
	MPN          string    `gorm:"column:mpn" json:"mpn,omitempty"`
	Price        *float64  `gorm:"column:price" json:"price,omitempty"`
	Cost         *float64  `gorm:"column:cost" json:"cost,omitempty"`
	MSRP         *float64  `gorm:"column:msrp" json:"msrp,omitempty"`
	Weight       *float64  `gorm:"column:weight" json:"weight,omitempty"`
	ImageURL     string    `gorm:"column:image_url" json:"imageUrl,omitempty"`
	Status       string    `gorm:"column:status;type:varchar(20)" json:"status,omitempty"`
	Attributes   JSONB     `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProductSupplier joins a product to one supplier's offer of it
type ProductSupplier struct {
	ID           string     `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ProductID    string     `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_supplier" json:"productId"`
	SupplierID   string     `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:idx_product_supplier" json:"supplierId"`
	SupplierSKU  string     `gorm:"column:supplier_sku" json:"supplierSku,omitempty"`
	Cost         *float64   `gorm:"column:cost" json:"cost,omitempty"`
	IsPrimary    bool       `gorm:"column:is_primary" json:"isPrimary"`
	LastSyncedAt *time.Time `gorm:"column:last_synced_at" json:"lastSyncedAt,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (ProductSupplier) TableName() string {
	return "product_suppliers"
}

func (ps *ProductSupplier) BeforeCreate(tx *gorm.DB) error {
	if ps.ID == "" {
		ps.ID = uuid.NewString()
	}
	return nil
}

// SupplierInventory is the stock a supplier reports for a product
type SupplierInventory struct {
	ID            string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ProductID     string    `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_supplier_inventory" json:"productId"`
	SupplierID    string    `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:idx_supplier_inventory" json:"supplierId"`
	StockQuantity int       `gorm:"column:stock_quantity" json:"stockQuantity"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (SupplierInventory) TableName() string {
	return "supplier_inventory"
}

func (si *SupplierInventory) BeforeCreate(tx *gorm.DB) error {
	if si.ID == "" {
		si.ID = uuid.NewString()
	}
	return nil
}
