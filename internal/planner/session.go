package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// maxNotices caps how many recent notices a session keeps for its view.
const maxNotices = 20

// ErrSessionClosed is returned by Dispatch after the Manager has retired the
// session. The caller should fetch the trip's session again.
var ErrSessionClosed = errors.New("planner: session closed")

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Policy   Policy
	Notifier Notifier
	Logger   *slog.Logger

	// IdleTimeout is how long the Manager keeps an unused session cached.
	// Zero keeps sessions until Forget or Close.
	IdleTimeout time.Duration
}

// Session owns the in-memory itinerary of one trip. It is safe for
// concurrent use; commands are applied in the order Dispatch is called.
type Session struct {
	trip    domain.Trip
	catalog itinerary.Catalog
	store   Store
	policy  Policy
	notify  Notifier
	log     *slog.Logger

	// ctx bounds every remote write issued by the session.
	ctx context.Context

	mu        sync.Mutex
	confirmed *itinerary.Plan
	local     *itinerary.Plan
	queue     []*Op // queue[0] may be in flight
	draining  bool
	closed    bool
	seq       uint64
	notices   []Notice
}

// NewSession builds a session for trip from its stored items. ctx bounds all
// remote writes; cancel it only after Flush.
func NewSession(ctx context.Context, trip domain.Trip, items []domain.ItineraryItem,
	catalog itinerary.Catalog, store Store, opts Options) (*Session, error) {
	plan, err := itinerary.NewPlan(trip, items)
	if err != nil {
		return nil, fmt.Errorf("planner.NewSession: trip %s: %w", trip.ID, err)
	}

	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(opts.Logger)
	}

	return &Session{
		trip:      trip,
		catalog:   catalog,
		store:     store,
		policy:    opts.Policy.normalized(),
		notify:    opts.Notifier,
		log:       opts.Logger.With("trip_id", trip.ID),
		ctx:       ctx,
		confirmed: plan,
		local:     plan.Clone(),
	}, nil
}

// Trip returns the trip the session was loaded for.
func (s *Session) Trip() domain.Trip { return s.trip }

// Insert appends a new item for activityID to the end of day.
func (s *Session) Insert(activityID uuid.UUID, day int, startTime, notes string) (domain.ItineraryItem, *Op, error) {
	op, eff, err := s.Dispatch(itinerary.InsertItem{Item: domain.ItineraryItem{
		ID:         uuid.New(),
		ActivityID: activityID,
		DayNumber:  day,
		StartTime:  startTime,
		Notes:      notes,
	}})
	if err != nil {
		return domain.ItineraryItem{}, nil, err
	}
	return eff.Item, op, nil
}

// Remove deletes an item and renumbers the rest of its day.
func (s *Session) Remove(itemID uuid.UUID) (*Op, error) {
	op, _, err := s.Dispatch(itinerary.RemoveItem{ItemID: itemID})
	return op, err
}

// Move swaps an item with its neighbour in dir. A move past the edge of the
// day returns an op that is already committed.
func (s *Session) Move(itemID uuid.UUID, dir domain.Direction) (domain.ItineraryItem, *Op, error) {
	op, eff, err := s.Dispatch(itinerary.MoveItem{ItemID: itemID, Direction: dir})
	if err != nil {
		return domain.ItineraryItem{}, nil, err
	}
	return eff.Item, op, nil
}

// Dispatch applies cmd to the local plan and queues its remote write.
// Validation and not-found errors are returned before anything changes.
func (s *Session) Dispatch(cmd itinerary.Command) (*Op, itinerary.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, itinerary.Effect{}, fmt.Errorf("planner.Session.Dispatch: %w", ErrSessionClosed)
	}
	if ins, ok := cmd.(itinerary.InsertItem); ok {
		if _, known := s.catalog[ins.Item.ActivityID]; !known {
			return nil, itinerary.Effect{}, fmt.Errorf("planner.Session.Dispatch: %w: unknown activity %s",
				domain.ErrValidation, ins.Item.ActivityID)
		}
	}

	eff, err := s.local.Apply(cmd)
	if err != nil {
		return nil, itinerary.Effect{}, fmt.Errorf("planner.Session.Dispatch: %w", err)
	}

	s.seq++
	op := newOp(s.seq, cmd)
	if eff.NoOp {
		op.settle(StatusCommitted, nil)
		return op, eff, nil
	}

	op.effect = eff
	s.queue = append(s.queue, op)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
	return op, eff, nil
}

// Flush waits until every op dispatched before the call has settled.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := append([]*Op(nil), s.queue...)
	s.mu.Unlock()

	for _, op := range pending {
		select {
		case <-op.Done():
		case <-ctx.Done():
			return fmt.Errorf("planner.Session.Flush: %w", ctx.Err())
		}
	}
	return nil
}

// setClosed stops or resumes accepting commands. Ops already queued still
// drain either way.
func (s *Session) setClosed(closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = closed
}

// idle reports whether no write is queued or in flight.
func (s *Session) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) == 0
}

// drain sends queued writes one at a time until the queue is empty.
func (s *Session) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		op := s.queue[0]
		eff := op.effect
		s.mu.Unlock()

		err := s.push(eff)

		var raised []Notice
		s.mu.Lock()
		s.queue = s.queue[1:]
		if err == nil {
			if _, aerr := s.confirmed.Apply(op.cmd); aerr != nil {
				// confirmed plus the queue always replays to local.
				s.log.Error("confirmed plan rejected a committed command",
					"op", op.Kind(), "item_id", op.cmd.Target(), "error", aerr)
			}
			op.settle(StatusCommitted, nil)
			s.log.Debug("itinerary write committed", "op", op.Kind(), "item_id", op.cmd.Target(), "seq", op.Seq)
		} else {
			serr := &domain.SyncError{TripID: s.trip.ID, ItemID: op.cmd.Target(), Op: string(op.Kind()), Err: err}
			op.settle(StatusFailed, serr)
			s.log.Error("itinerary write failed", "op", op.Kind(), "item_id", op.cmd.Target(), "seq", op.Seq, "error", err)
			raised = append(raised, s.record(op, err))
			raised = append(raised, s.rollback()...)
		}
		s.mu.Unlock()

		for _, n := range raised {
			s.notify.Notify(s.ctx, n)
		}
	}
}

// rollback rebuilds local from confirmed and replays the queue on top.
// Queued ops that no longer apply are failed and dropped; their effects are
// recomputed otherwise. Must be called with s.mu held and nothing in flight.
func (s *Session) rollback() []Notice {
	s.local = s.confirmed.Clone()

	var (
		kept   []*Op
		raised []Notice
	)
	for _, op := range s.queue {
		eff, err := s.local.Apply(op.cmd)
		switch {
		case err != nil:
			cause := fmt.Errorf("depends on a rolled back change: %w", err)
			op.settle(StatusFailed, &domain.SyncError{
				TripID: s.trip.ID, ItemID: op.cmd.Target(), Op: string(op.Kind()), Err: cause,
			})
			raised = append(raised, s.record(op, cause))
		case eff.NoOp:
			op.settle(StatusCommitted, nil)
		default:
			op.effect = eff
			kept = append(kept, op)
		}
	}
	s.queue = kept
	return raised
}

// record keeps a notice for the session view. Must be called with s.mu held.
func (s *Session) record(op *Op, cause error) Notice {
	n := Notice{
		At:      time.Now().UTC(),
		TripID:  s.trip.ID,
		ItemID:  op.cmd.Target(),
		Op:      op.Kind(),
		Message: cause.Error(),
	}
	s.notices = append(s.notices, n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
	return n
}

// push sends one effect to the store, retrying transient failures with
// exponential backoff.
func (s *Session) push(eff itinerary.Effect) error {
	ctx, cancel := s.ctx, context.CancelFunc(func() {})
	if s.policy.Timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.policy.Timeout)
	}
	defer cancel()

	backoff := retry.WithMaxRetries(s.policy.MaxRetries, retry.NewExponential(s.policy.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.send(ctx, eff)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Session) send(ctx context.Context, eff itinerary.Effect) error {
	switch eff.Kind {
	case itinerary.KindInsert:
		_, err := s.store.Create(ctx, eff.Item)
		return err
	case itinerary.KindRemove:
		return s.store.Delete(ctx, s.trip.ID, eff.Item.ID)
	case itinerary.KindMove:
		return s.store.Reorder(ctx, s.trip.ID, eff.Changes)
	default:
		return fmt.Errorf("%w: unknown effect kind %q", domain.ErrValidation, eff.Kind)
	}
}

// transient reports whether a store error is worth retrying.
func transient(err error) bool {
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrValidation) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
