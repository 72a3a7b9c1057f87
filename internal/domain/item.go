package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItineraryItem is an Activity scheduled into a specific day of a trip at a
// specific position within that day. OrderInDay is 1-based.
//
// StartTime is either empty or an "HH:MM" wall-clock time.
type ItineraryItem struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	ActivityID uuid.UUID
	DayNumber  int
	OrderInDay int
	StartTime  string
	Notes      string
	CreatedAt  time.Time
}

// OrderChange sets the position of one item. Reorders are sent to the store
// as a list of changes rather than the whole item list.
type OrderChange struct {
	ItemID     uuid.UUID
	DayNumber  int
	OrderInDay int
}

// Direction is the way an item moves within its day.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts s into a Direction.
// Returns ErrValidation for anything other than "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionUp, DirectionDown:
		return d, nil
	}
	return "", fmt.Errorf("%w: direction must be %q or %q, got %q", ErrValidation, DirectionUp, DirectionDown, s)
}
