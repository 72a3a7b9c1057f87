package planner

import (
	"context"
	"sync"

	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// Status is the sync state of a dispatched command.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusFailed    Status = "failed"
)

// Op tracks one dispatched command from Pending to Committed or Failed.
type Op struct {
	Seq uint64
	cmd itinerary.Command

	// effect is what the command does to the plan it will be replayed on.
	// Guarded by the owning Session's mutex; rewritten on rollback.
	effect itinerary.Effect

	mu     sync.Mutex
	status Status
	err    error
	done   chan struct{}
}

func newOp(seq uint64, cmd itinerary.Command) *Op {
	return &Op{Seq: seq, cmd: cmd, status: StatusPending, done: make(chan struct{})}
}

// Kind returns the kind of the command behind the op.
func (o *Op) Kind() itinerary.Kind { return o.cmd.Kind() }

// Status returns the current sync state.
func (o *Op) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Err returns the *domain.SyncError of a failed op, or nil.
func (o *Op) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed once the op leaves Pending.
func (o *Op) Done() <-chan struct{} { return o.done }

// Wait blocks until the op settles or ctx is done. It returns the op's sync
// error, or ctx.Err() if the wait was abandoned.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Op) settle(status Status, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusPending {
		return
	}
	o.status = status
	o.err = err
	close(o.done)
}
