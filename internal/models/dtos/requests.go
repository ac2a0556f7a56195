package dtos

import (
	"encoding/json"
	"time"

	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// AdhocConnectionRequest carries plaintext credentials for a connection that
// has not been saved. Used by test, sample and paths.
type AdhocConnectionRequest struct {
	Kind           string         `json:"kind"`
	Credentials    map[string]any `json:"credentials"`
	Path           string         `json:"path,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	HasHeader      *bool          `json:"hasHeader,omitempty"`
	Delimiter      string         `json:"delimiter,omitempty"`
	Encoding       string         `json:"encoding,omitempty"`
	Sheet          string         `json:"sheet,omitempty"`
	TimeoutSeconds int            `json:"timeoutSeconds,omitempty"`
}

type ConnectionRequest struct {
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	SupplierID  *string        `json:"supplierId,omitempty"`
	Credentials map[string]any `json:"credentials"`
	IsActive    *bool          `json:"isActive,omitempty"`
}

type DataSourceRequest struct {
	Name              string                      `json:"name"`
	Kind              string                      `json:"kind,omitempty"`
	SupplierID        *string                     `json:"supplierId,omitempty"`
	ConnectionID      *string                     `json:"connectionId,omitempty"`
	MappingTemplateID *string                     `json:"mappingTemplateId,omitempty"`
	Config            gormModels.DataSourceConfig `json:"config"`
	Active            *bool                       `json:"active,omitempty"`
}

// MappingTemplateRequest accepts field mappings as the canonical array or as
// a flat {source: target} object
type MappingTemplateRequest struct {
	Name            string          `json:"name"`
	SourceKind      string          `json:"sourceKind,omitempty"`
	FieldMappings   json.RawMessage `json:"fieldMappings"`
	ValidationRules json.RawMessage `json:"validationRules,omitempty"`
	KeepUnmapped    bool            `json:"keepUnmapped"`
	Active          *bool           `json:"active,omitempty"`
}

type ScheduleRequest struct {
	DataSourceID      string     `json:"dataSourceId"`
	MappingTemplateID *string    `json:"mappingTemplateId,omitempty"`
	Path              string     `json:"path,omitempty"`
	Label             string     `json:"label,omitempty"`
	Frequency         string     `json:"frequency"`
	Hour              int        `json:"hour"`
	Minute            int        `json:"minute"`
	DayOfWeek         int        `json:"dayOfWeek"`
	DayOfMonth        int        `json:"dayOfMonth"`
	CustomCron        string     `json:"customCron,omitempty"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	Active            *bool      `json:"active,omitempty"`
}

type TestPullRequest struct {
	Path      string `json:"path,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	HasHeader *bool  `json:"hasHeader,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Sheet     string `json:"sheet,omitempty"`
}

type SupplierRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Status       string `json:"status,omitempty"`
}
