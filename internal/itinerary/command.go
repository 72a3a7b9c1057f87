package itinerary

import (
	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Kind names a command type. It doubles as the op label in logs and sync errors.
type Kind string

const (
	KindInsert Kind = "insert"
	KindRemove Kind = "remove"
	KindMove   Kind = "move"
)

// Command is a mutation of a Plan. The set of commands is closed: InsertItem,
// RemoveItem and MoveItem.
type Command interface {
	Kind() Kind
	// Target is the ID of the item the command acts on.
	Target() uuid.UUID
}

// InsertItem appends Item to the end of Item.DayNumber. Item.ID must already
// be assigned; Item.OrderInDay is ignored and computed by the plan.
type InsertItem struct {
	Item domain.ItineraryItem
}

// RemoveItem deletes an item and closes the gap it leaves in its day.
type RemoveItem struct {
	ItemID uuid.UUID
}

// MoveItem swaps an item with its neighbour in Direction.
type MoveItem struct {
	ItemID    uuid.UUID
	Direction domain.Direction
}

func (InsertItem) Kind() Kind { return KindInsert }
func (RemoveItem) Kind() Kind { return KindRemove }
func (MoveItem) Kind() Kind   { return KindMove }

func (c InsertItem) Target() uuid.UUID { return c.Item.ID }
func (c RemoveItem) Target() uuid.UUID { return c.ItemID }
func (c MoveItem) Target() uuid.UUID   { return c.ItemID }

// Effect is what a command did to a plan, in the shape the store needs to
// reproduce it.
type Effect struct {
	Kind Kind

	// Item is the inserted item for KindInsert and the removed item (as it
	// was before removal) for KindRemove. For KindMove it is the moved item
	// after the move.
	Item domain.ItineraryItem

	// Changes lists every item whose position changed, other than an
	// inserted or removed item. A move yields exactly two changes; a remove
	// yields one per later sibling.
	Changes []domain.OrderChange

	// NoOp is set when a move hit the boundary of its day. Nothing changed
	// and nothing needs persisting.
	NoOp bool
}
