package itinerary

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Catalog indexes activities by ID for cost lookups.
type Catalog map[uuid.UUID]domain.Activity

// NewCatalog indexes activities by ID.
func NewCatalog(activities []domain.Activity) Catalog {
	c := make(Catalog, len(activities))
	for _, a := range activities {
		c[a.ID] = a
	}
	return c
}

// TotalCost sums the cost of the activity behind each item. Items whose
// activity is missing from the catalog contribute nothing.
func TotalCost(items []domain.ItineraryItem, catalog Catalog) float64 {
	var total float64
	for _, it := range items {
		total += catalog[it.ActivityID].Cost
	}
	return total
}

// ItemCount returns the number of items.
func ItemCount(items []domain.ItineraryItem) int {
	return len(items)
}

// ItemsForDay returns the items on day d ordered by OrderInDay ascending.
// Always returns a non-nil slice.
func ItemsForDay(items []domain.ItineraryItem, d int) []domain.ItineraryItem {
	out := []domain.ItineraryItem{}
	for _, it := range items {
		if it.DayNumber == d {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInDay < out[j].OrderInDay })
	return out
}
