package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/constants"
)

// ImportError is one entry of an import's error report
type ImportError struct {
	RecordIndex *int   `json:"recordIndex,omitempty"`
	Field       string `json:"field,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message"`
}

// ImportErrors is the JSON array column holding the error report
type ImportErrors []ImportError

func (e *ImportErrors) Scan(value interface{}) error {
	var out []ImportError
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*e = out
	return nil
}

func (e ImportErrors) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ImportError(e))
}

// Import tracks one ingestion run from pending to a terminal status
type Import struct {
	ID                string                 `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Filename          string                 `gorm:"column:filename" json:"filename"`
	Source            string                 `gorm:"column:source" json:"source"`
	SupplierID        *string                `gorm:"column:supplier_id;type:uuid;index" json:"supplierId,omitempty"`
	DataSourceID      *string                `gorm:"column:data_source_id;type:uuid;index" json:"dataSourceId,omitempty"`
	MappingTemplateID *string                `gorm:"column:mapping_template_id;type:uuid" json:"mappingTemplateId,omitempty"`
	Status            constants.ImportStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	RecordCount       int                    `gorm:"column:record_count" json:"recordCount"`
	ProcessedCount    int                    `gorm:"column:processed_count" json:"processedCount"`
	ErrorCount        int                    `gorm:"column:error_count" json:"errorCount"`
	CreatedCount      int                    `gorm:"column:created_count" json:"createdCount"`
	UpdatedCount      int                    `gorm:"column:updated_count" json:"updatedCount"`
	SkippedCount      int                    `gorm:"column:skipped_count" json:"skippedCount"`
	ImportErrors      ImportErrors           `gorm:"column:import_errors;type:jsonb" json:"importErrors"`
	Warnings          ImportErrors           `gorm:"column:warnings;type:jsonb" json:"warnings"`
	TriggeredBy       string                 `gorm:"column:triggered_by;type:varchar(20)" json:"triggeredBy"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	StartedAt         *time.Time             `gorm:"column:started_at" json:"startedAt,omitempty"`
	CompletedAt       *time.Time             `gorm:"column:completed_at" json:"completedAt,omitempty"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Import) TableName() string {
	return "imports"
}

func (i *Import) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = constants.ImportPending
	}
	return nil
}

// TestPullLog records one sample pull with its schema check and mapping
// suggestion
type TestPullLog struct {
	ID                string     `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ConnectionID      string     `gorm:"column:connection_id;type:uuid;index;not null" json:"connectionId"`
	Success           bool       `gorm:"column:success" json:"success"`
	Message           string     `gorm:"column:message" json:"message"`
	RecordCount       int        `gorm:"column:record_count" json:"recordCount"`
	Headers           StringList `gorm:"column:headers;type:jsonb" json:"headers"`
	SchemaValidation  RawJSON    `gorm:"column:schema_validation;type:jsonb" json:"schemaValidation,omitempty"`
	MappingSuggestion RawJSON    `gorm:"column:mapping_suggestion;type:jsonb" json:"mappingSuggestion,omitempty"`
	MappingConfidence float64    `gorm:"column:mapping_confidence" json:"mappingConfidence"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for GORM
func (TestPullLog) TableName() string {
	return "test_pull_logs"
}

func (l *TestPullLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
