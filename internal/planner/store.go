package planner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Store is the remote side of the sync: the writes a session issues after
// applying a command locally. repo.ItemRepo satisfies it.
type Store interface {
	// Create persists a new item with its client-assigned ID and position.
	Create(ctx context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error)

	// Delete removes an item and closes the gap in its day.
	Delete(ctx context.Context, tripID, itemID uuid.UUID) error

	// Reorder applies position changes atomically.
	Reorder(ctx context.Context, tripID uuid.UUID, changes []domain.OrderChange) error
}

// Policy bounds how a session talks to the store.
type Policy struct {
	// MaxRetries is how many times a transient failure is retried before
	// the write is declared failed and rolled back. Zero means one attempt.
	MaxRetries uint64

	// Backoff is the base delay of the exponential retry backoff.
	Backoff time.Duration

	// Timeout caps one write including its retries. Zero means no limit.
	Timeout time.Duration
}

// DefaultPolicy is used when no policy is configured.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, Backoff: 100 * time.Millisecond, Timeout: 10 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.Backoff <= 0 {
		p.Backoff = time.Millisecond
	}
	return p
}
