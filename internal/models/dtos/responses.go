package dtos

import (
	"time"

	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/mapping"
)

type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// ConnectionView is the outbound form of a connection; credentials are
// always sanitized
type ConnectionView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Kind            string         `json:"kind"`
	SupplierID      *string        `json:"supplierId,omitempty"`
	IsActive        bool           `json:"isActive"`
	Credentials     map[string]any `json:"credentials"`
	LastTested      *time.Time     `json:"lastTested,omitempty"`
	LastTestSuccess *bool          `json:"lastTestSuccess,omitempty"`
	LastTestMessage string         `json:"lastTestMessage,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type PathsResponse struct {
	Paths []string `json:"paths"`
}

type TestPullResponse struct {
	LogID             string                  `json:"logId,omitempty"`
	Sample            *ingestion.SampleResult `json:"sample"`
	SchemaValidation  []mapping.SchemaResult  `json:"schemaValidation,omitempty"`
	MappingSuggestion *mapping.Suggestion     `json:"mappingSuggestion,omitempty"`
	MappingConfidence float64                 `json:"mappingConfidence"`
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

type HealthCheckResponse struct {
	Status    string                   `json:"status"`
	Services  map[string]ServiceStatus `json:"services"`
	Uptime    string                   `json:"uptime"`
	Timestamp time.Time                `json:"timestamp"`
}

type UploadResponse struct {
	SupplierID   string                  `json:"supplierId"`
	DataSourceID string                  `json:"dataSourceId"`
	File         string                  `json:"file"`
	Size         int64                   `json:"size"`
	Import       *ingestion.ImportResult `json:"import,omitempty"`
}
