package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Audit workflow states.
const (
	AuditPlanned    = "planned"
	AuditInProgress = "in_progress"
	AuditCompleted  = "completed"
	AuditCancelled  = "cancelled"
)

// InventoryAudit is one cycle-count or full-count pass over a location.
type InventoryAudit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	AuditorID  uuid.UUID `gorm:"type:uuid;not null"`

	Kind   string `gorm:"type:varchar(20);not null;default:'cycle_count'"` // cycle_count | full
	Status string `gorm:"type:varchar(20);not null;default:'planned'"`

	ScheduledOn *time.Time `gorm:"type:date"`
	StartedAt   *time.Time
	CompletedAt *time.Time

	ItemsCounted    int             `gorm:"not null;default:0"`
	Discrepancies   int             `gorm:"not null;default:0"`
	ValueDifference decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time

	Location *Location   `gorm:"foreignKey:LocationID"`
	Auditor  *User       `gorm:"foreignKey:AuditorID"`
	Lines    []AuditLine `gorm:"foreignKey:AuditID"`
}

func (InventoryAudit) TableName() string { return "inventory_audits" }

// AuditLine is one item within an audit. Lines are pre-created when the
// audit starts, snapshotting the system count; Variance is computed
// against that snapshot, not the live ledger.
type AuditLine struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AuditID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_audit_item"`
	ItemID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_line_audit_item;index"`

	SystemCount   int  `gorm:"not null"`
	PhysicalCount int  `gorm:"not null;default:0"`
	Variance      int  `gorm:"not null;default:0"` // physical - system
	Counted       bool `gorm:"not null;default:false"`

	UnitCost      decimal.Decimal `gorm:"type:decimal(10,2)"`
	ValueVariance decimal.Decimal `gorm:"type:decimal(10,2)"`

	Notes     *string
	CountedAt time.Time `gorm:"not null"`

	Item *InventoryItem `gorm:"foreignKey:ItemID"`
}

func (AuditLine) TableName() string { return "audit_lines" }
