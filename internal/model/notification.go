package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification intent states.
const (
	IntentPending = "pending"
	IntentSent    = "sent"
	IntentFailed  = "failed"
	IntentGaveUp  = "gave_up"
)

// NotificationIntent is one (recipient, location-batch) delivery within a
// dispatch window. The idempotency key — hash(recipient, location,
// window_start, level_set) — keeps retries from duplicating deliveries.
type NotificationIntent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null;index"`

	WindowStart    time.Time `gorm:"not null"`
	IdempotencyKey string    `gorm:"type:varchar(64);uniqueIndex;not null"`

	// Payload carries the rendered alert batch (item names, stock levels).
	Payload datatypes.JSONMap

	Status    string `gorm:"type:varchar(20);not null;default:'pending'"`
	Attempts  int    `gorm:"not null;default:0"`
	LastError *string
	SentAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Recipient *User     `gorm:"foreignKey:RecipientID"`
	Location  *Location `gorm:"foreignKey:LocationID"`
}

func (NotificationIntent) TableName() string { return "notification_intents" }
