package ingestion

import (
	"context"
	"io"
	"time"

	"mdm-platform/feedhub/internal/constants"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// ConfigStore resolves the persisted configuration of a run. Lookups return
// nil, nil for unknown ids.
type ConfigStore interface {
	GetDataSource(ctx context.Context, id string) (*gormModels.DataSource, error)
	GetConnection(ctx context.Context, id string) (*gormModels.Connection, error)
	GetTemplate(ctx context.Context, id string) (*gormModels.MappingTemplate, error)
}

// ImportStore persists import rows. Update must refuse rows that already
// reached a terminal status.
type ImportStore interface {
	Create(ctx context.Context, imp *gormModels.Import) error
	Update(ctx context.Context, imp *gormModels.Import) error
}

// CatalogStore is the product side of the catalog
type CatalogStore interface {
	GetProductBySKU(ctx context.Context, sku string) (*gormModels.Product, error)
	CreateProduct(ctx context.Context, p *gormModels.Product) error
	UpdateProduct(ctx context.Context, id string, p *gormModels.Product) error
	GetOrCreateProductSupplier(ctx context.Context, productID, supplierID string, data gormModels.ProductSupplier) (*gormModels.ProductSupplier, bool, error)
}

// InventorySink receives the stock level of records that carry one
type InventorySink interface {
	UpsertInventory(ctx context.Context, productID, supplierID string, quantity int) error
}

// Archiver stores the raw fetched feed before it is parsed
type Archiver interface {
	Archive(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// EventPublisher announces finished runs to downstream consumers
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, event ImportEvent) error
}

// ImportEvent is the payload of an import.completed event
type ImportEvent struct {
	ImportID       string                 `json:"importId"`
	DataSourceID   string                 `json:"dataSourceId"`
	SupplierID     string                 `json:"supplierId"`
	Status         constants.ImportStatus `json:"status"`
	RecordCount    int                    `json:"recordCount"`
	ProcessedCount int                    `json:"processedCount"`
	ErrorCount     int                    `json:"errorCount"`
	TriggeredBy    string                 `json:"triggeredBy"`
	CompletedAt    time.Time              `json:"completedAt"`
}
