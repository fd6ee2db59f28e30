package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateItemRequest struct {
	RefKind       string          `json:"ref_kind" validate:"required,oneof=product jewelry vehicle"`
	RefID         uuid.UUID       `json:"ref_id" validate:"required"`
	LocationID    uuid.UUID       `json:"location_id" validate:"required"`
	CurrentStock  int             `json:"current_stock" validate:"min=0"`
	ReorderPoint  int             `json:"reorder_point" validate:"min=0"`
	MaxStockLevel int             `json:"max_stock_level" validate:"min=0"`
	UnitCost      decimal.Decimal `json:"unit_cost" validate:"min=0"`
}

type ReserveRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

type ReserveResponse struct {
	Handle uuid.UUID `json:"handle"`
}

type ConsumeRequest struct {
	Handle        uuid.UUID `json:"handle" validate:"required"`
	ReferenceType string    `json:"reference_type" validate:"required"`
	ReferenceID   string    `json:"reference_id" validate:"required"`
}

type ReceiveRequest struct {
	ItemID        uuid.UUID       `json:"item_id" validate:"required"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	UnitCost      decimal.Decimal `json:"unit_cost" validate:"min=0"`
	ReferenceType string          `json:"reference_type" validate:"required"`
	ReferenceID   string          `json:"reference_id" validate:"required"`
}

type TransferRequest struct {
	ItemID       uuid.UUID `json:"item_id" validate:"required"`
	ToLocationID uuid.UUID `json:"to_location_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
}

type AdjustRequest struct {
	ItemID        uuid.UUID `json:"item_id" validate:"required"`
	PhysicalCount int       `json:"physical_count" validate:"min=0"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   string    `json:"reference_id"`
}

type ItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	RefKind        string          `json:"ref_kind"`
	RefID          uuid.UUID       `json:"ref_id"`
	LocationID     uuid.UUID       `json:"location_id"`
	CurrentStock   int             `json:"current_stock"`
	ReservedStock  int             `json:"reserved_stock"`
	AvailableStock int             `json:"available_stock"`
	ReorderPoint   int             `json:"reorder_point"`
	MaxStockLevel  int             `json:"max_stock_level"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Status         string          `json:"status"`
	LastCountedAt  *time.Time      `json:"last_counted_at,omitempty"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
}

type MovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	ItemID        uuid.UUID       `json:"item_id"`
	LocationID    uuid.UUID       `json:"location_id"`
	Kind          string          `json:"kind"`
	Quantity      int             `json:"quantity"`
	SignedQty     int             `json:"signed_qty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	StockBefore   int             `json:"stock_before"`
	StockAfter    int             `json:"stock_after"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type MovementListResponse struct {
	Movements []MovementResponse `json:"movements"`
	Total     int64              `json:"total"`
}
