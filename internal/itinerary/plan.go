package itinerary

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Plan is the item collection of one trip, partitioned into day buckets.
//
// After every successful operation each item's DayNumber lies in
// [1, DayCount] and the OrderInDay values of each day are exactly 1..k.
// Operations that would break either rule return an error and leave the plan
// untouched.
//
// A Plan is not safe for concurrent use.
type Plan struct {
	tripID   uuid.UUID
	start    time.Time
	end      time.Time
	dayCount int

	items map[uuid.UUID]domain.ItineraryItem
	// days[d][k] is the ID of the item at OrderInDay k+1 on day d.
	days map[int][]uuid.UUID
}

// NewPlan builds a plan for trip from a previously persisted item set.
// Returns domain.ErrValidation if the trip's dates are inverted or if the
// items already violate the day range or contiguous ordering. Stored data is
// never repaired silently.
func NewPlan(trip domain.Trip, items []domain.ItineraryItem) (*Plan, error) {
	n, err := DayCount(trip.StartDate, trip.EndDate)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		tripID:   trip.ID,
		start:    civil(trip.StartDate),
		end:      civil(trip.EndDate),
		dayCount: n,
		items:    make(map[uuid.UUID]domain.ItineraryItem, len(items)),
		days:     make(map[int][]uuid.UUID),
	}

	byDay := make(map[int][]domain.ItineraryItem)
	for _, it := range items {
		if err := p.checkDay(it.DayNumber); err != nil {
			return nil, err
		}
		if _, dup := p.items[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %s", domain.ErrValidation, it.ID)
		}
		it.TripID = trip.ID
		p.items[it.ID] = it
		byDay[it.DayNumber] = append(byDay[it.DayNumber], it)
	}

	for d, bucket := range byDay {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].OrderInDay < bucket[j].OrderInDay })
		ids := make([]uuid.UUID, len(bucket))
		for k, it := range bucket {
			if it.OrderInDay != k+1 {
				return nil, fmt.Errorf("%w: day %d has order_in_day %d at position %d",
					domain.ErrValidation, d, it.OrderInDay, k+1)
			}
			ids[k] = it.ID
		}
		p.days[d] = ids
	}
	return p, nil
}

// TripID returns the ID of the trip that owns the plan.
func (p *Plan) TripID() uuid.UUID { return p.tripID }

// DayCount returns the number of day buckets.
func (p *Plan) DayCount() int { return p.dayCount }

// Days returns the plan's day buckets, derived from the trip dates.
func (p *Plan) Days() []Day {
	days, _ := Days(p.start, p.end) // dates were validated by NewPlan
	return days
}

// Len returns the number of items in the plan.
func (p *Plan) Len() int { return len(p.items) }

// Item returns the item with the given ID.
func (p *Plan) Item(id uuid.UUID) (domain.ItineraryItem, bool) {
	it, ok := p.items[id]
	return it, ok
}

// Items returns every item ordered by day, then by position within the day.
func (p *Plan) Items() []domain.ItineraryItem {
	out := make([]domain.ItineraryItem, 0, len(p.items))
	for d := 1; d <= p.dayCount; d++ {
		for _, id := range p.days[d] {
			out = append(out, p.items[id])
		}
	}
	return out
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	c := &Plan{
		tripID:   p.tripID,
		start:    p.start,
		end:      p.end,
		dayCount: p.dayCount,
		items:    make(map[uuid.UUID]domain.ItineraryItem, len(p.items)),
		days:     make(map[int][]uuid.UUID, len(p.days)),
	}
	for id, it := range p.items {
		c.items[id] = it
	}
	for d, ids := range p.days {
		c.days[d] = append([]uuid.UUID(nil), ids...)
	}
	return c
}

// Apply runs cmd against the plan.
func (p *Plan) Apply(cmd Command) (Effect, error) {
	switch c := cmd.(type) {
	case InsertItem:
		return p.Insert(c.Item)
	case RemoveItem:
		return p.Remove(c.ItemID)
	case MoveItem:
		return p.Move(c.ItemID, c.Direction)
	default:
		return Effect{}, fmt.Errorf("%w: unknown command %T", domain.ErrValidation, cmd)
	}
}

// Insert appends item to the end of its day. item.ID and item.ActivityID must
// be set; OrderInDay is assigned as k+1 where k is the day's current size.
func (p *Plan) Insert(item domain.ItineraryItem) (Effect, error) {
	if item.ID == uuid.Nil {
		return Effect{}, fmt.Errorf("%w: item id is required", domain.ErrValidation)
	}
	if item.ActivityID == uuid.Nil {
		return Effect{}, fmt.Errorf("%w: activity_id is required", domain.ErrValidation)
	}
	if err := p.checkDay(item.DayNumber); err != nil {
		return Effect{}, err
	}
	if _, dup := p.items[item.ID]; dup {
		return Effect{}, fmt.Errorf("%w: item %s already exists", domain.ErrValidation, item.ID)
	}

	item.TripID = p.tripID
	item.OrderInDay = len(p.days[item.DayNumber]) + 1
	p.items[item.ID] = item
	p.days[item.DayNumber] = append(p.days[item.DayNumber], item.ID)

	return Effect{Kind: KindInsert, Item: item}, nil
}

// Remove deletes an item and shifts every later item in the same day up by
// one position so the day stays contiguous.
func (p *Plan) Remove(id uuid.UUID) (Effect, error) {
	removed, ok := p.items[id]
	if !ok {
		return Effect{}, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}

	d := removed.DayNumber
	idx := removed.OrderInDay - 1
	ids := append(p.days[d][:idx], p.days[d][idx+1:]...)

	var changes []domain.OrderChange
	for k := idx; k < len(ids); k++ {
		it := p.items[ids[k]]
		it.OrderInDay = k + 1
		p.items[it.ID] = it
		changes = append(changes, domain.OrderChange{ItemID: it.ID, DayNumber: d, OrderInDay: it.OrderInDay})
	}

	delete(p.items, id)
	if len(ids) == 0 {
		delete(p.days, d)
	} else {
		p.days[d] = ids
	}

	return Effect{Kind: KindRemove, Item: removed, Changes: changes}, nil
}

// Move swaps an item with the sibling one position above (up) or below (down)
// it in the same day. Moving the first item up or the last item down is a
// no-op and reports Effect.NoOp.
func (p *Plan) Move(id uuid.UUID, dir domain.Direction) (Effect, error) {
	if _, err := domain.ParseDirection(string(dir)); err != nil {
		return Effect{}, err
	}
	it, ok := p.items[id]
	if !ok {
		return Effect{}, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}

	ids := p.days[it.DayNumber]
	i := it.OrderInDay - 1
	j := i + 1
	if dir == domain.DirectionUp {
		j = i - 1
	}
	if j < 0 || j >= len(ids) {
		return Effect{Kind: KindMove, Item: it, NoOp: true}, nil
	}

	sib := p.items[ids[j]]
	ids[i], ids[j] = ids[j], ids[i]
	it.OrderInDay, sib.OrderInDay = sib.OrderInDay, it.OrderInDay
	p.items[it.ID] = it
	p.items[sib.ID] = sib

	return Effect{
		Kind: KindMove,
		Item: it,
		Changes: []domain.OrderChange{
			{ItemID: it.ID, DayNumber: it.DayNumber, OrderInDay: it.OrderInDay},
			{ItemID: sib.ID, DayNumber: sib.DayNumber, OrderInDay: sib.OrderInDay},
		},
	}, nil
}

func (p *Plan) checkDay(d int) error {
	if d < 1 || d > p.dayCount {
		return fmt.Errorf("%w: day_number %d is outside 1..%d", domain.ErrValidation, d, p.dayCount)
	}
	return nil
}
