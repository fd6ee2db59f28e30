package service

import "errors"

// Conflict and validation errors surfaced uniformly to callers. Handlers
// map these onto HTTP statuses; background sweeps record and skip them.
var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrItemInactive         = errors.New("inventory item is not active")
	ErrLocationInactive     = errors.New("location is not active")
	ErrVersionConflict      = errors.New("version conflict")
	ErrDuplicateActiveAlert = errors.New("item already has an active alert")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrNotFound             = errors.New("not found")
	ErrStateConflict        = errors.New("operation not valid in current state")
	ErrUnavailable          = errors.New("storage unavailable")
)
