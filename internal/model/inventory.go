package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item reference kinds. An InventoryItem tracks stock for exactly one
// product-like entity; the kind tags which catalog the ID belongs to.
const (
	RefProduct = "product"
	RefJewelry = "jewelry"
	RefVehicle = "vehicle"
)

// Movement kinds. Quantity on a movement is always positive; the kind
// encodes direction.
const (
	MovementIn          = "in"
	MovementOut         = "out"
	MovementTransferOut = "transfer_out"
	MovementTransferIn  = "transfer_in"
	MovementAdjustment  = "adjustment"
	MovementSale        = "sale"
	MovementReturn      = "return"
)

// InventoryItem is the per-(item, location) stock balance row.
// Invariant: 0 <= reserved_stock <= current_stock at all times.
type InventoryItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RefKind    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_item_ref"`
	RefID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_ref"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_ref;index"`

	CurrentStock  int `gorm:"not null;default:0"`
	ReservedStock int `gorm:"not null;default:0"`
	ReorderPoint  int `gorm:"not null;default:2"`
	MaxStockLevel int

	UnitCost   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	TotalValue decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Status        string `gorm:"type:varchar(20);not null;default:'active'"` // active | inactive | discontinued
	LastCountedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Location  *Location       `gorm:"foreignKey:LocationID"`
	Movements []StockMovement `gorm:"foreignKey:ItemID"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// AvailableStock is current minus reserved, floored at zero. This is the
// quantity a new reservation may consume.
func (i *InventoryItem) AvailableStock() int {
	avail := i.CurrentStock - i.ReservedStock
	if avail < 0 {
		return 0
	}
	return avail
}

// RecomputeValue refreshes the materialized total_value column.
func (i *InventoryItem) RecomputeValue() {
	i.TotalValue = i.UnitCost.Mul(decimal.NewFromInt(int64(i.CurrentStock)))
}

// StockMovement is an immutable ledger entry describing a change in
// physical stock. Movements are NEVER modified or deleted — corrections
// create inverse entries.
type StockMovement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;index"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`

	Kind     string `gorm:"type:varchar(20);not null"`
	Quantity int    `gorm:"not null"` // always > 0; direction lives in Kind

	ReferenceType *string `gorm:"type:varchar(50)"` // order, purchase, transfer, audit, …
	ReferenceID   *string `gorm:"type:varchar(50)"`

	UnitCost    decimal.Decimal `gorm:"type:decimal(10,2)"`
	StockBefore int             `gorm:"not null"`
	StockAfter  int             `gorm:"not null"`
	Notes       *string

	OccurredAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time

	Item *InventoryItem `gorm:"foreignKey:ItemID"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// SignedQuantity returns the delta this movement applied to current_stock.
func (m *StockMovement) SignedQuantity() int {
	return m.StockAfter - m.StockBefore
}

// Reservation states.
const (
	ReservationHeld     = "held"
	ReservationReleased = "released"
	ReservationConsumed = "consumed"
)

// StockReservation is a soft hold on inventory — it consumes availability
// but not physical stock until consumed. The row ID is the handle callers
// pass back to Release/Consume; both are idempotent on it.
type StockReservation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity  int       `gorm:"not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'held'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Item *InventoryItem `gorm:"foreignKey:ItemID"`
}

func (StockReservation) TableName() string { return "stock_reservations" }
