package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert severity levels, derived from available stock vs reorder point.
const (
	AlertLevelLow        = "low"
	AlertLevelCritical   = "critical"
	AlertLevelOutOfStock = "out_of_stock"
)

// Alert lifecycle states. A resolved alert never moves back to active;
// a new row is created instead.
const (
	AlertActive       = "active"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// LowStockAlert is the derived alert state for an inventory item.
// At most one active alert exists per item at any time — enforced by a
// partial unique index on (item_id) WHERE status = 'active'.
type LowStockAlert struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_alert_item_active,where:status = 'active'"`

	Level string `gorm:"type:varchar(20);not null;default:'low'"`
	// Snapshots at creation/last update. Levels derive from available
	// stock; on-hand is kept alongside for reporting.
	CurrentStock   int `gorm:"not null"`
	AvailableStock int `gorm:"not null"`
	ReorderPoint   int `gorm:"not null"` // snapshot at creation

	Status           string `gorm:"type:varchar(20);not null;default:'active'"`
	AcknowledgedByID *uuid.UUID `gorm:"type:uuid"`
	AcknowledgedAt   *time.Time
	ResolvedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Item           *InventoryItem `gorm:"foreignKey:ItemID"`
	AcknowledgedBy *User          `gorm:"foreignKey:AcknowledgedByID"`
}

func (LowStockAlert) TableName() string { return "low_stock_alerts" }
