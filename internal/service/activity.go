package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// ActivityService serves the read-only activity catalog.
type ActivityService struct {
	activities repo.ActivityRepo
}

// NewActivityService constructs an ActivityService backed by the provided ActivityRepo.
func NewActivityService(activities repo.ActivityRepo) *ActivityService {
	return &ActivityService{activities: activities}
}

// List returns the catalog, optionally narrowed to one category.
// Always returns a non-nil slice.
func (s *ActivityService) List(ctx context.Context, category string) ([]domain.Activity, error) {
	activities, err := s.activities.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("service.ActivityService.List: %w", err)
	}
	if activities == nil {
		return []domain.Activity{}, nil
	}
	return activities, nil
}
