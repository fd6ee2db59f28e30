package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Location is a physical warehouse or store holding inventory.
// Locations are soft-deactivated, never hard-deleted while items reference them.
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Address   *string
	City      *string
	Country   *string
	Active    bool       `gorm:"not null;default:true"`
	ManagerID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Manager *User `gorm:"foreignKey:ManagerID"`
}

// StaffAssignment links a staff member to a location with a role.
// At most one active assignment per (staff, location).
type StaffAssignment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StaffID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_staff_location,where:active"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_staff_location,where:active;index"`
	Role        string    `gorm:"type:varchar(20);not null"` // "manager" | "supervisor" | "clerk"
	Permissions datatypes.JSONSlice[string]
	Active      bool `gorm:"not null;default:true"`
	AssignedAt  time.Time
	UpdatedAt   time.Time

	Staff    *User     `gorm:"foreignKey:StaffID"`
	Location *Location `gorm:"foreignKey:LocationID"`
}

func (StaffAssignment) TableName() string { return "staff_assignments" }
