package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Activity is the JSON representation of a catalog activity.
type Activity struct {
	Id            openapi_types.UUID `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Location      string             `json:"location"`
	DurationHours float64            `json:"duration_hours"`
	Cost          float64            `json:"cost"`
	Category      string             `json:"category"`
	ImageUrl      *string            `json:"image_url,omitempty"`
}

// ListActivities handles GET /activities. ?category= narrows the catalog.
func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	var category *string
	if !queryParam(w, r, "category", &category) {
		return
	}
	var filter string
	if category != nil {
		filter = *category
	}

	activities, err := s.activities.List(r.Context(), filter)
	if err != nil {
		s.serviceError(w, r, err, "activity not found")
		return
	}

	out := make([]Activity, len(activities))
	for i, a := range activities {
		out[i] = activityToResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func activityToResponse(a domain.Activity) Activity {
	return Activity{
		Id:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Location:      a.Location,
		DurationHours: a.DurationHours,
		Cost:          a.Cost,
		Category:      a.Category,
		ImageUrl:      a.ImageURL,
	}
}
