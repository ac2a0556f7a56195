package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/constants"
)

// Schedule is a recurrence rule bound to a data source. Run bookkeeping
// lives on the same row.
type Schedule struct {
	ID                string              `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	DataSourceID      string              `gorm:"column:data_source_id;type:uuid;not null;index" json:"dataSourceId"`
	MappingTemplateID *string             `gorm:"column:mapping_template_id;type:uuid" json:"mappingTemplateId,omitempty"`
	Path              string              `gorm:"column:path" json:"path,omitempty"`
	Label             string              `gorm:"column:label" json:"label,omitempty"`
	Frequency         constants.Frequency `gorm:"column:frequency;type:varchar(20);not null" json:"frequency"`
	Hour              int                 `gorm:"column:hour" json:"hour"`
	Minute            int                 `gorm:"column:minute" json:"minute"`
	DayOfWeek         int                 `gorm:"column:day_of_week" json:"dayOfWeek"`
	DayOfMonth        int                 `gorm:"column:day_of_month" json:"dayOfMonth"`
	CustomCron        string              `gorm:"column:custom_cron" json:"customCron,omitempty"`
	LastRun           *time.Time          `gorm:"column:last_run" json:"lastRun,omitempty"`
	NextRun           *time.Time          `gorm:"column:next_run" json:"nextRun,omitempty"`
	StartDate         *time.Time          `gorm:"column:start_date" json:"startDate,omitempty"`
	EndDate           *time.Time          `gorm:"column:end_date" json:"endDate,omitempty"`
	Active            bool                `gorm:"column:active" json:"active"`
	LastStatus        string              `gorm:"column:last_status;type:varchar(20)" json:"lastStatus,omitempty"`
	LastMessage       string              `gorm:"column:last_message" json:"lastMessage,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Schedule) TableName() string {
	return "schedules"
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Supplier{},
		&Connection{},
		&DataSource{},
		&MappingTemplate{},
		&Import{},
		&Product{},
		&ProductSupplier{},
		&SupplierInventory{},
		&Schedule{},
		&TestPullLog{},
	}
}
