// Package service contains the business logic for the trip planner API.
// Services validate inputs, enforce business rules, and orchestrate repo and
// planner calls. No SQL lives here; services depend on interfaces, not
// implementations.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/itinerary"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// maxTripDays caps the length of a trip, in days.
const maxTripDays = 3660

// SessionHolder fences a trip's itinerary session: the cached session is
// flushed and dropped, and no new one opens until release is called.
// *planner.Manager satisfies it.
type SessionHolder interface {
	Hold(ctx context.Context, tripID uuid.UUID) (release func(), err error)
}

// TripService implements business logic for Trip operations.
type TripService struct {
	trips    repo.TripRepo
	items    repo.ItemRepo
	sessions SessionHolder
}

// NewTripService constructs a TripService. items is consulted when dates
// change; sessions is reset whenever a trip changes or disappears.
func NewTripService(trips repo.TripRepo, items repo.ItemRepo, sessions SessionHolder) *TripService {
	return &TripService{trips: trips, items: items, sessions: sessions}
}

// Create validates and persists a new trip.
func (s *TripService) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	result, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single trip by ID.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	result, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of trips and the total count.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.trips.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.ListPaged: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// Update validates and updates an existing trip.
// Shrinking the date range is rejected with domain.ErrValidation while items
// are still scheduled on the days it would drop; items are never moved or
// clamped implicitly. The trip's planner session is held for the whole
// update, so no item write can land between the check and the new dates, and
// the next access reloads the day list from the stored trip.
func (s *TripService) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	release, err := s.sessions.Hold(ctx, trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	defer release()

	days, _ := itinerary.DayCount(trip.StartDate, trip.EndDate) // validated above
	maxDay, err := s.items.MaxDayNumber(ctx, trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if maxDay > days {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w: items are scheduled on day %d but the new dates only cover %d days",
			domain.ErrValidation, maxDay, days)
	}

	result, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip and its itinerary.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	release, err := s.sessions.Hold(ctx, id)
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	defer release()

	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// validateTrip enforces business rules common to both Create and Update.
//   - Title must be non-empty (whitespace-only titles are rejected).
//   - StartDate must be set and EndDate must not be before it.
//   - The range must not exceed maxTripDays.
func validateTrip(trip domain.Trip) error {
	if strings.TrimSpace(trip.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if trip.StartDate.IsZero() || trip.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	days, err := itinerary.DayCount(trip.StartDate, trip.EndDate)
	if err != nil {
		return err
	}
	if days > maxTripDays {
		return fmt.Errorf("%w: a trip can span at most %d days", domain.ErrValidation, maxTripDays)
	}
	return nil
}
