// Package handler implements the HTTP handlers for the trip planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, itinerary.go, etc.) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/planner"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// TripServicer defines the business operations the trip handler depends on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ActivityServicer serves the activity catalog.
type ActivityServicer interface {
	List(ctx context.Context, category string) ([]domain.Activity, error)
}

// ItineraryServicer reads and edits a trip's itinerary.
type ItineraryServicer interface {
	View(ctx context.Context, tripID uuid.UUID) (planner.View, error)
	AddItem(ctx context.Context, tripID uuid.UUID, in service.AddItemInput) (domain.ItineraryItem, *planner.Op, error)
	RemoveItem(ctx context.Context, tripID, itemID uuid.UUID) (*planner.Op, error)
	MoveItem(ctx context.Context, tripID, itemID uuid.UUID, dir domain.Direction) (domain.ItineraryItem, *planner.Op, error)
}

// Server holds the dependencies of every API endpoint.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	trips      TripServicer
	activities ActivityServicer
	itinerary  ItineraryServicer
	log        *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(trips TripServicer, activities ActivityServicer, itinerary ItineraryServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{trips: trips, activities: activities, itinerary: itinerary, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Handler registers every route of s on a new chi router.
// Wire it in main.go via r.Mount("/", handler.Handler(srv)).
func Handler(s *Server) http.Handler {
	return HandlerFromMux(s, chi.NewRouter())
}

// HandlerFromMux registers every route of s on r and returns it.
func HandlerFromMux(s *Server, r chi.Router) http.Handler {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/docs", s.GetDocs)

	r.Get("/activities", s.ListActivities)

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.CreateTrip)
		r.Get("/", s.ListTrips)

		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Get("/itinerary", s.GetItinerary)
			r.Get("/itinerary/export", s.ExportItinerary)
			r.Post("/items", s.AddItem)
			r.Delete("/items/{itemID}", s.RemoveItem)
			r.Post("/items/{itemID}/move", s.MoveItem)
		})
	})
	return r
}
