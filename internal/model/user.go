package model

import (
	"time"

	"github.com/google/uuid"
)

// User stores system users with role-based access.
// Role: "customer" | "staff" | "admin"
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	FullName     string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Notifiable reports whether the user has a deliverable channel.
func (u *User) Notifiable() bool {
	return u.Active && u.Email != nil && *u.Email != ""
}
