package model

import (
	"time"

	"github.com/google/uuid"
)

// Secret kinds rotated by the keyring.
const (
	KeySession = "session"
	KeyCSRF    = "csrf"
	KeyToken   = "token"
)

// SecretKey is one generation of a rotating named secret. Exactly one row
// per kind has Active=true at any time; the previous generation stays
// readable for signature verification during one rotation cycle.
type SecretKey struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind      string    `gorm:"type:varchar(50);not null;index;uniqueIndex:idx_key_kind_active,where:active"`
	Value     string    `gorm:"type:varchar(500);not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
}

func (SecretKey) TableName() string { return "secret_keys" }

// DaysToExpiry returns whole days until the key expires, negative if past.
func (k *SecretKey) DaysToExpiry(now time.Time) int {
	return int(k.ExpiresAt.Sub(now).Hours() / 24)
}
