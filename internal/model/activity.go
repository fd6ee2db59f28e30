package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityEntry is one immutable record in the activity journal.
// It describes a state change after the fact — the journal never fronts
// the change it records. User references are weak: the entry survives
// deletion or anonymization of the user.
type ActivityEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	// SubjectID is the user the activity is about; ActorID is who performed
	// it. Both nullable for system activities.
	SubjectID *uuid.UUID `gorm:"type:uuid;index:idx_activity_subject_time"`
	ActorID   *uuid.UUID `gorm:"type:uuid;index"`

	Type        string `gorm:"type:varchar(50);not null;index:idx_activity_type_time"` // registration, authentication, page_view, …
	Action      string `gorm:"type:varchar(100);not null"`
	Category    string `gorm:"type:varchar(50);not null"` // auth, inventory, user_action, system, …
	Description *string

	IPAddress     *string `gorm:"type:varchar(45)"` // IPv6 compatible
	UserAgent     *string
	RequestMethod *string `gorm:"type:varchar(10)"`
	RequestURL    *string

	Metadata     datatypes.JSONMap
	Success      bool `gorm:"not null;default:true"`
	ErrorMessage *string

	DurationMs *int
	OccurredAt time.Time `gorm:"not null;index:idx_activity_subject_time,sort:desc;index:idx_activity_type_time"`
	CreatedAt  time.Time
}

func (ActivityEntry) TableName() string { return "activity_entries" }

// LoginSession tracks one bounded authenticated interaction window,
// identified by an opaque token. When Active is false, LogoutAt is set.
type LoginSession struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SessionToken string    `gorm:"type:varchar(255);uniqueIndex;not null"`

	LoginAt    time.Time `gorm:"not null"`
	LastSeenAt time.Time `gorm:"not null"`
	LogoutAt   *time.Time

	IPAddress   *string `gorm:"type:varchar(45)"`
	UserAgent   *string
	LoginMethod string `gorm:"type:varchar(50);not null;default:'password'"`

	Active       bool    `gorm:"not null;default:true"`
	LogoutReason *string `gorm:"type:varchar(50)"` // manual, timeout, forced

	PageViews   int `gorm:"not null;default:0"`
	ActionCount int `gorm:"not null;default:0"`

	User *User `gorm:"foreignKey:UserID"`
}

func (LoginSession) TableName() string { return "login_sessions" }

// HourWholeDay marks the whole-day usage bucket. Postgres unique
// indexes treat NULLs as distinct, so the day row carries a sentinel
// hour instead of NULL to keep (date, hour) upserts conflicting.
const HourWholeDay = -1

// UsageBucket rolls activity counts into daily/hourly windows.
// Hour is HourWholeDay for whole-day buckets. Uniqueness on (date, hour).
type UsageBucket struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex:idx_usage_date_hour"`
	Hour int       `gorm:"not null;default:-1;uniqueIndex:idx_usage_date_hour"`

	ActiveUsers      int `gorm:"not null;default:0"`
	NewRegistrations int `gorm:"not null;default:0"`
	Logins           int `gorm:"not null;default:0"`
	FailedLogins     int `gorm:"not null;default:0"`
	PageViews        int `gorm:"not null;default:0"`
	ServiceActions   int `gorm:"not null;default:0"`
	Errors           int `gorm:"not null;default:0"`

	AvgResponseMs float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UsageBucket) TableName() string { return "usage_buckets" }
