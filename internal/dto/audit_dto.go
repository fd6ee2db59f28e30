package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlanAuditRequest struct {
	LocationID  uuid.UUID  `json:"location_id" validate:"required"`
	Kind        string     `json:"kind" validate:"required,oneof=cycle_count full"`
	ScheduledOn *time.Time `json:"scheduled_on,omitempty"`
}

type CountRequest struct {
	ItemID        uuid.UUID `json:"item_id" validate:"required"`
	PhysicalCount int       `json:"physical_count" validate:"min=0"`
	Notes         string    `json:"notes"`
}

type AuditResponse struct {
	ID              uuid.UUID       `json:"id"`
	LocationID      uuid.UUID       `json:"location_id"`
	AuditorID       uuid.UUID       `json:"auditor_id"`
	Kind            string          `json:"kind"`
	Status          string          `json:"status"`
	ScheduledOn     *time.Time      `json:"scheduled_on,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	ItemsCounted    int             `json:"items_counted"`
	Discrepancies   int             `json:"discrepancies"`
	ValueDifference decimal.Decimal `json:"value_difference"`
}

type AuditLineResponse struct {
	ItemID        uuid.UUID       `json:"item_id"`
	SystemCount   int             `json:"system_count"`
	PhysicalCount int             `json:"physical_count"`
	Variance      int             `json:"variance"`
	ValueVariance decimal.Decimal `json:"value_variance"`
	Counted       bool            `json:"counted"`
	CountedAt     time.Time       `json:"counted_at"`
	Notes         *string         `json:"notes,omitempty"`
}
