package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced trip, item, or activity does not
// exist. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. end date before start date, day number outside the trip).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrSyncFailure is returned when a remote write was rejected after the
// mutation had already been applied locally. Handlers map it to HTTP 409.
var ErrSyncFailure = errors.New("sync failure")

// SyncError describes a rejected remote write. It matches both ErrSyncFailure
// and the underlying cause under errors.Is.
type SyncError struct {
	TripID uuid.UUID
	ItemID uuid.UUID
	Op     string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s item %s on trip %s: %v", ErrSyncFailure, e.Op, e.ItemID, e.TripID, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailure, e.Err}
}
