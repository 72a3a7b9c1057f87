package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/planner"
)

// maxNotesLen bounds the free-text notes on an item, in bytes.
const maxNotesLen = 2000

// maxSessionAttempts bounds how often a command is re-sent after the trip's
// session was retired between lookup and use.
const maxSessionAttempts = 3

// SessionSource opens the planner session of a trip. *planner.Manager satisfies it.
type SessionSource interface {
	Session(ctx context.Context, tripID uuid.UUID) (*planner.Session, error)
}

// AddItemInput is what a caller supplies to schedule an activity.
type AddItemInput struct {
	ActivityID uuid.UUID
	DayNumber  int
	StartTime  string // "" or "HH:MM"
	Notes      string
}

// ItineraryService routes itinerary reads and edits to the trip's session.
type ItineraryService struct {
	sessions SessionSource
}

// NewItineraryService constructs an ItineraryService.
func NewItineraryService(sessions SessionSource) *ItineraryService {
	return &ItineraryService{sessions: sessions}
}

// View returns the trip's current days, items and totals.
func (s *ItineraryService) View(ctx context.Context, tripID uuid.UUID) (planner.View, error) {
	sess, err := s.sessions.Session(ctx, tripID)
	if err != nil {
		return planner.View{}, fmt.Errorf("service.ItineraryService.View: %w", err)
	}
	return sess.Snapshot(), nil
}

// AddItem schedules an activity at the end of a day.
func (s *ItineraryService) AddItem(ctx context.Context, tripID uuid.UUID, in AddItemInput) (domain.ItineraryItem, *planner.Op, error) {
	if err := validateAddItem(&in); err != nil {
		return domain.ItineraryItem{}, nil, fmt.Errorf("service.ItineraryService.AddItem: %w", err)
	}
	var (
		item domain.ItineraryItem
		op   *planner.Op
	)
	err := s.dispatch(ctx, tripID, func(sess *planner.Session) (err error) {
		item, op, err = sess.Insert(in.ActivityID, in.DayNumber, in.StartTime, in.Notes)
		return err
	})
	if err != nil {
		return domain.ItineraryItem{}, nil, fmt.Errorf("service.ItineraryService.AddItem: %w", err)
	}
	return item, op, nil
}

// RemoveItem unschedules an item.
func (s *ItineraryService) RemoveItem(ctx context.Context, tripID, itemID uuid.UUID) (*planner.Op, error) {
	var op *planner.Op
	err := s.dispatch(ctx, tripID, func(sess *planner.Session) (err error) {
		op, err = sess.Remove(itemID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.RemoveItem: %w", err)
	}
	return op, nil
}

// MoveItem moves an item one position up or down within its day.
func (s *ItineraryService) MoveItem(ctx context.Context, tripID, itemID uuid.UUID, dir domain.Direction) (domain.ItineraryItem, *planner.Op, error) {
	var (
		item domain.ItineraryItem
		op   *planner.Op
	)
	err := s.dispatch(ctx, tripID, func(sess *planner.Session) (err error) {
		item, op, err = sess.Move(itemID, dir)
		return err
	})
	if err != nil {
		return domain.ItineraryItem{}, nil, fmt.Errorf("service.ItineraryService.MoveItem: %w", err)
	}
	return item, op, nil
}

// dispatch runs fn against the trip's current session, fetching the session
// again when the one it got was retired before fn reached it.
func (s *ItineraryService) dispatch(ctx context.Context, tripID uuid.UUID, fn func(*planner.Session) error) error {
	var err error
	for range maxSessionAttempts {
		var sess *planner.Session
		if sess, err = s.sessions.Session(ctx, tripID); err != nil {
			return err
		}
		if err = fn(sess); !errors.Is(err, planner.ErrSessionClosed) {
			return err
		}
	}
	return err
}

// validateAddItem checks the free-form fields and normalizes them in place.
// Day bounds and activity existence are checked by the session.
func validateAddItem(in *AddItemInput) error {
	in.StartTime = strings.TrimSpace(in.StartTime)
	if in.StartTime != "" {
		if _, err := time.Parse("15:04", in.StartTime); err != nil {
			return fmt.Errorf("%w: start_time must be HH:MM", domain.ErrValidation)
		}
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if len(in.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes must be at most %d bytes", domain.ErrValidation, maxNotesLen)
	}
	return nil
}
