package domain

import "github.com/google/uuid"

// Activity is a bookable thing to do, supplied by the activity catalog.
// The planner only ever reads activities; items reference them by ID.
type Activity struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Location      string
	DurationHours float64
	Cost          float64
	Category      string
	ImageURL      *string
}
