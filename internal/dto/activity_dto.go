package dto

import (
	"time"

	"github.com/google/uuid"
)

type ActivityResponse struct {
	ID         uuid.UUID      `json:"id"`
	SubjectID  *uuid.UUID     `json:"subject_id,omitempty"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	Category   string         `json:"category"`
	Success    bool           `json:"success"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DurationMs *int           `json:"duration_ms,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type OpenSessionRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	LoginMethod string    `json:"login_method" validate:"required"`
}

type OpenSessionResponse struct {
	Token   string    `json:"token"`
	LoginAt time.Time `json:"login_at"`
}

type CloseSessionRequest struct {
	Token  string `json:"token" validate:"required"`
	Reason string `json:"reason" validate:"required,oneof=manual timeout forced"`
}

type UsageBucketResponse struct {
	Date             time.Time `json:"date"`
	Hour             *int      `json:"hour,omitempty"`
	ActiveUsers      int       `json:"active_users"`
	NewRegistrations int       `json:"new_registrations"`
	Logins           int       `json:"logins"`
	FailedLogins     int       `json:"failed_logins"`
	PageViews        int       `json:"page_views"`
	ServiceActions   int       `json:"service_actions"`
	Errors           int       `json:"errors"`
	AvgResponseMs    float64   `json:"avg_response_ms"`
}
