package dto

import (
	"time"

	"github.com/google/uuid"
)

type AlertResponse struct {
	ID             uuid.UUID  `json:"id"`
	ItemID         uuid.UUID  `json:"item_id"`
	LocationID     *uuid.UUID `json:"location_id,omitempty"`
	Level          string     `json:"level"`
	CurrentStock   int        `json:"current_stock"`
	AvailableStock int        `json:"available_stock"`
	ReorderPoint   int        `json:"reorder_point"`
	Status         string     `json:"status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
