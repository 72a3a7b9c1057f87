package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// Notice is a user-facing report of a write that did not reach the store.
type Notice struct {
	At      time.Time      `json:"at"`
	TripID  uuid.UUID      `json:"trip_id"`
	ItemID  uuid.UUID      `json:"item_id"`
	Op      itinerary.Kind `json:"op"`
	Message string         `json:"message"`
}

// Notifier receives notices as they are raised. Implementations must not
// block for long; they are called from the write queue.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes each notice as a WARN line.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a Notifier backed by log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notice Notice) {
	n.log.WarnContext(ctx, "itinerary change rolled back",
		"trip_id", notice.TripID,
		"item_id", notice.ItemID,
		"op", notice.Op,
		"reason", notice.Message,
	)
}
