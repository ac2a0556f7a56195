package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/constants"
)

// Supplier is the attribution target of every ingested record
type Supplier struct {
	ID           string                   `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name         string                   `gorm:"column:name;not null" json:"name"`
	ContactEmail string                   `gorm:"column:contact_email" json:"contactEmail,omitempty"`
	Status       constants.SupplierStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = constants.SupplierPending
	}
	return nil
}

// Connection holds encrypted transport credentials. Credentials is the
// sealed blob and is never serialized.
type Connection struct {
	ID              string     `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name            string     `gorm:"column:name;not null" json:"name"`
	Kind            string     `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	Credentials     string     `gorm:"column:credentials;type:text;not null" json:"-"`
	SupplierID      *string    `gorm:"column:supplier_id;type:uuid;index" json:"supplierId,omitempty"`
	IsActive        bool       `gorm:"column:is_active" json:"isActive"`
	LastTested      *time.Time `gorm:"column:last_tested" json:"lastTested,omitempty"`
	LastTestSuccess *bool      `gorm:"column:last_test_success" json:"lastTestSuccess,omitempty"`
	LastTestMessage string     `gorm:"column:last_test_message" json:"lastTestMessage,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
