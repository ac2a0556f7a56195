package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DataSourceConfig carries the non-secret location and parsing settings of a
// data source. Secrets always come from the linked connection.
type DataSourceConfig struct {
	RemoteDirectory       string `json:"remoteDirectory,omitempty"`
	BaseURL               string `json:"baseUrl,omitempty"`
	Endpoint              string `json:"endpoint,omitempty"`
	FilePattern           string `json:"filePattern,omitempty"`
	HasHeader             *bool  `json:"hasHeader,omitempty"`
	Delimiter             string `json:"delimiter,omitempty"`
	Encoding              string `json:"encoding,omitempty"`
	SheetName             string `json:"sheetName,omitempty"`
	RecordsPath           string `json:"recordsPath,omitempty"`
	DeleteAfterProcessing bool   `json:"deleteAfterProcessing,omitempty"`
	SkipExistingProducts  bool   `json:"skipExistingProducts,omitempty"`
}

func (c *DataSourceConfig) Scan(value interface{}) error {
	return scanJSON(value, c)
}

func (c DataSourceConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// DataSource binds a connection to default remote paths and parse settings
type DataSource struct {
	ID                string           `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name              string           `gorm:"column:name;not null" json:"name"`
	Kind              string           `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	SupplierID        *string          `gorm:"column:supplier_id;type:uuid;index" json:"supplierId,omitempty"`
	ConnectionID      *string          `gorm:"column:connection_id;type:uuid;index" json:"connectionId,omitempty"`
	MappingTemplateID *string          `gorm:"column:mapping_template_id;type:uuid" json:"mappingTemplateId,omitempty"`
	Config            DataSourceConfig `gorm:"column:config;type:jsonb" json:"config"`
	Active            bool             `gorm:"column:active" json:"active"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (DataSource) TableName() string {
	return "data_sources"
}

func (d *DataSource) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// MappingTemplate is the stored form of a mapping.Template. FieldMappings is
// always the canonical array; migration from the flat object shape happens
// on write.
type MappingTemplate struct {
	ID              string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	SourceKind      string    `gorm:"column:source_kind;type:varchar(20)" json:"sourceKind"`
	FieldMappings   RawJSON   `gorm:"column:field_mappings;type:jsonb;not null" json:"fieldMappings"`
	ValidationRules RawJSON   `gorm:"column:validation_rules;type:jsonb" json:"validationRules"`
	KeepUnmapped    bool      `gorm:"column:keep_unmapped" json:"keepUnmapped"`
	Active          bool      `gorm:"column:active" json:"active"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (MappingTemplate) TableName() string {
	return "mapping_templates"
}

func (m *MappingTemplate) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
