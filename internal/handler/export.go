package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/planner"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"day_number", "date", "order_in_day", "start_time",
	"activity", "category", "cost", "notes",
}

// ExportRow is one itinerary item flattened with its day and activity.
type ExportRow struct {
	DayNumber  int                `json:"day_number"`
	Date       openapi_types.Date `json:"date"`
	OrderInDay int                `json:"order_in_day"`
	StartTime  *string            `json:"start_time,omitempty"`
	Activity   string             `json:"activity"`
	Category   string             `json:"category,omitempty"`
	Cost       float64            `json:"cost"`
	Notes      *string            `json:"notes,omitempty"`
}

// ExportItinerary handles GET /trips/{tripID}/itinerary/export.
// It returns one row per scheduled item in day and order sequence.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) ExportItinerary(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var format *string
	if !queryParam(w, r, "format", &format) {
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeError(w, http.StatusBadRequest, codeBadParameter, "format must be csv or json")
		return
	}

	view, err := s.itinerary.View(r.Context(), tripID)
	if err != nil {
		s.serviceError(w, r, err, "trip not found")
		return
	}
	activities, err := s.activities.List(r.Context(), "")
	if err != nil {
		s.serviceError(w, r, err, "activity not found")
		return
	}
	names := make(map[openapi_types.UUID]Activity, len(activities))
	for _, a := range activities {
		names[a.ID] = activityToResponse(a)
	}

	rows := exportRows(view, names)
	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// exportRows flattens the view. Items whose activity has left the catalog
// keep their row with an empty name and zero cost.
func exportRows(v planner.View, activities map[openapi_types.UUID]Activity) []ExportRow {
	rows := make([]ExportRow, 0, v.ItemCount)
	for _, d := range v.Days {
		for _, it := range d.Items {
			a := activities[it.ActivityID]
			resp := itemToResponse(it)
			rows = append(rows, ExportRow{
				DayNumber:  d.Number,
				Date:       openapi_types.Date{Time: d.Date},
				OrderInDay: it.OrderInDay,
				StartTime:  resp.StartTime,
				Activity:   a.Name,
				Category:   a.Category,
				Cost:       a.Cost,
				Notes:      resp.Notes,
			})
		}
	}
	return rows
}

// writeCSV encodes rows as CSV with a header row.
func writeCSV(w http.ResponseWriter, rows []ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write([]string{
			strconv.Itoa(r.DayNumber),
			r.Date.Format(openapi_types.DateFormat),
			strconv.Itoa(r.OrderInDay),
			derefString(r.StartTime),
			r.Activity,
			r.Category,
			strconv.FormatFloat(r.Cost, 'f', 2, 64),
			derefString(r.Notes),
		})
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
