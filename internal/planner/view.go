package planner

import (
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// View is a point-in-time snapshot of a session's local state.
type View struct {
	Trip      domain.Trip
	Days      []DayView
	ItemCount int
	TotalCost float64
	// Pending is the number of writes not yet confirmed by the store.
	Pending int
	Notices []Notice
}

// DayView is one day bucket and its items in order.
type DayView struct {
	itinerary.Day
	Items []domain.ItineraryItem
}

// Snapshot returns the current local state with totals derived from it.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.local.Items()
	days := s.local.Days()
	v := View{
		Trip:      s.trip,
		Days:      make([]DayView, len(days)),
		ItemCount: itinerary.ItemCount(items),
		TotalCost: itinerary.TotalCost(items, s.catalog),
		Pending:   len(s.queue),
		Notices:   append([]Notice{}, s.notices...),
	}
	for i, d := range days {
		v.Days[i] = DayView{Day: d, Items: itinerary.ItemsForDay(items, d.Number)}
	}
	return v
}

