package handler

import (
	"context"
	"errors"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/planner"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// Item is the JSON representation of a scheduled itinerary item.
type Item struct {
	Id         openapi_types.UUID `json:"id"`
	TripId     openapi_types.UUID `json:"trip_id"`
	ActivityId openapi_types.UUID `json:"activity_id"`
	DayNumber  int                `json:"day_number"`
	OrderInDay int                `json:"order_in_day"`
	StartTime  *string            `json:"start_time,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
}

// Day is one day bucket of an itinerary.
type Day struct {
	DayNumber int                `json:"day_number"`
	Date      openapi_types.Date `json:"date"`
	Items     []Item             `json:"items"`
}

// Itinerary is the body of GET /trips/{tripID}/itinerary.
type Itinerary struct {
	Trip      Trip             `json:"trip"`
	Days      []Day            `json:"days"`
	ItemCount int              `json:"item_count"`
	TotalCost float64          `json:"total_cost"`
	Pending   int              `json:"pending"`
	Notices   []planner.Notice `json:"notices"`
}

// AddItemRequest is the body of POST /trips/{tripID}/items.
type AddItemRequest struct {
	ActivityId openapi_types.UUID `json:"activity_id"`
	DayNumber  int                `json:"day_number"`
	StartTime  *string            `json:"start_time,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
}

// MoveItemRequest is the body of POST /trips/{tripID}/items/{itemID}/move.
type MoveItemRequest struct {
	Direction string `json:"direction"`
}

// Mutation is the body returned by every itinerary edit. Item is omitted for
// removals.
type Mutation struct {
	Item       *Item  `json:"item,omitempty"`
	SyncStatus string `json:"sync_status"`
}

// GetItinerary handles GET /trips/{tripID}/itinerary.
func (s *Server) GetItinerary(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	view, err := s.itinerary.View(r.Context(), tripID)
	if err != nil {
		s.serviceError(w, r, err, "trip not found")
		return
	}

	writeJSON(w, http.StatusOK, viewToResponse(view))
}

// AddItem handles POST /trips/{tripID}/items.
func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var wait *bool
	if !queryParam(w, r, "wait", &wait) {
		return
	}
	var body AddItemRequest
	if !decodeBody(w, r, &body) {
		return
	}

	item, op, err := s.itinerary.AddItem(r.Context(), tripID, service.AddItemInput{
		ActivityID: body.ActivityId,
		DayNumber:  body.DayNumber,
		StartTime:  derefString(body.StartTime),
		Notes:      derefString(body.Notes),
	})
	if err != nil {
		s.serviceError(w, r, err, "trip not found")
		return
	}

	resp := itemToResponse(item)
	s.respondOp(w, r, op, wait, &resp, http.StatusCreated)
}

// RemoveItem handles DELETE /trips/{tripID}/items/{itemID}.
func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var wait *bool
	if !queryParam(w, r, "wait", &wait) {
		return
	}

	op, err := s.itinerary.RemoveItem(r.Context(), tripID, itemID)
	if err != nil {
		s.serviceError(w, r, err, "item not found")
		return
	}

	s.respondOp(w, r, op, wait, nil, http.StatusOK)
}

// MoveItem handles POST /trips/{tripID}/items/{itemID}/move.
// Moving past either end of the day succeeds without changing anything.
func (s *Server) MoveItem(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	var wait *bool
	if !queryParam(w, r, "wait", &wait) {
		return
	}
	var body MoveItemRequest
	if !decodeBody(w, r, &body) {
		return
	}
	dir, err := domain.ParseDirection(body.Direction)
	if err != nil {
		s.serviceError(w, r, err, "")
		return
	}

	item, op, err := s.itinerary.MoveItem(r.Context(), tripID, itemID, dir)
	if err != nil {
		s.serviceError(w, r, err, "item not found")
		return
	}

	resp := itemToResponse(item)
	s.respondOp(w, r, op, wait, &resp, http.StatusOK)
}

// respondOp reports the sync state of op. Without ?wait=true a pending op is
// answered with 202; with it the request blocks until the write settles and a
// rolled-back write is answered with 409.
func (s *Server) respondOp(w http.ResponseWriter, r *http.Request, op *planner.Op, wait *bool, item *Item, committed int) {
	if wait != nil && *wait {
		if err := op.Wait(r.Context()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// The client went away; the write carries on without it.
				return
			}
			s.serviceError(w, r, err, "item not found")
			return
		}
	}

	switch op.Status() {
	case planner.StatusCommitted:
		writeJSON(w, committed, Mutation{Item: item, SyncStatus: string(planner.StatusCommitted)})
	case planner.StatusFailed:
		s.serviceError(w, r, op.Err(), "item not found")
	default:
		writeJSON(w, http.StatusAccepted, Mutation{Item: item, SyncStatus: string(planner.StatusPending)})
	}
}

// --- mapping helpers --------------------------------------------------------

func itemToResponse(it domain.ItineraryItem) Item {
	resp := Item{
		Id:         it.ID,
		TripId:     it.TripID,
		ActivityId: it.ActivityID,
		DayNumber:  it.DayNumber,
		OrderInDay: it.OrderInDay,
	}
	if it.StartTime != "" {
		resp.StartTime = &it.StartTime
	}
	if it.Notes != "" {
		resp.Notes = &it.Notes
	}
	return resp
}

func viewToResponse(v planner.View) Itinerary {
	days := make([]Day, len(v.Days))
	for i, d := range v.Days {
		items := make([]Item, len(d.Items))
		for j, it := range d.Items {
			items[j] = itemToResponse(it)
		}
		days[i] = Day{DayNumber: d.Number, Date: openapi_types.Date{Time: d.Date}, Items: items}
	}
	notices := v.Notices
	if notices == nil {
		notices = []planner.Notice{}
	}
	return Itinerary{
		Trip:      tripToResponse(v.Trip),
		Days:      days,
		ItemCount: v.ItemCount,
		TotalCost: v.TotalCost,
		Pending:   v.Pending,
		Notices:   notices,
	}
}

// derefString returns the value of s, or "" if s is nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
