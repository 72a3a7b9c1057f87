package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// TripGetter loads a trip. repo.TripRepo satisfies it.
type TripGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

// ItemSource is the item store plus the read needed to open a session.
// repo.ItemRepo satisfies it.
type ItemSource interface {
	Store
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryItem, error)
}

// ActivityLister reads the activity catalog. repo.ActivityRepo satisfies it.
type ActivityLister interface {
	List(ctx context.Context, category string) ([]domain.Activity, error)
}

// Manager opens one Session per trip on first use and keeps it cached.
//
// A trip never has two live sessions: Hold fences the trip, retires its
// session once the queued writes have drained, and keeps Session from
// opening a replacement until the fence is released.
type Manager struct {
	trips      TripGetter
	items      ItemSource
	activities ActivityLister
	opts       Options
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the eviction loop exits; nil without one

	group    singleflight.Group
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	fences   map[uuid.UUID]chan struct{}
	closed   bool
}

type entry struct {
	session *Session
	used    time.Time
}

// NewManager constructs a Manager. Call Close on shutdown to flush pending
// writes. With a non-zero Options.IdleTimeout, unused sessions are evicted in
// the background.
func NewManager(trips TripGetter, items ItemSource, activities ActivityLister, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		trips:      trips,
		items:      items,
		activities: activities,
		opts:       opts,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[uuid.UUID]*entry),
		fences:     make(map[uuid.UUID]chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		m.done = make(chan struct{})
		go m.evictLoop(opts.IdleTimeout / 2)
	}
	return m
}

// Session returns the cached session for tripID, loading it on first use.
// It blocks while the trip is held. Returns domain.ErrNotFound if the trip
// does not exist and ErrSessionClosed once Close has begun.
func (m *Manager) Session(ctx context.Context, tripID uuid.UUID) (*Session, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, fmt.Errorf("planner.Manager.Session: %w", ErrSessionClosed)
		}
		if e, ok := m.sessions[tripID]; ok {
			e.used = time.Now()
			m.mu.Unlock()
			return e.session, nil
		}
		fence, held := m.fences[tripID]
		m.mu.Unlock()

		if held {
			select {
			case <-fence:
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("planner.Manager.Session: %w", ctx.Err())
			}
		}

		// The load is shared and runs under the manager's context, so a
		// caller that gives up does not fail the others.
		ch := m.group.DoChan(tripID.String(), func() (any, error) {
			return m.open(tripID)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, fmt.Errorf("planner.Manager.Session: %w", res.Err)
			}
			if s, ok := res.Val.(*Session); ok {
				return s, nil
			}
			// A fence went up before the load started.
		case <-ctx.Done():
			return nil, fmt.Errorf("planner.Manager.Session: %w", ctx.Err())
		}
	}
}

// open loads and caches the trip's session. It returns a nil value without
// loading when the trip is held.
func (m *Manager) open(tripID uuid.UUID) (any, error) {
	m.mu.Lock()
	if e, ok := m.sessions[tripID]; ok {
		m.mu.Unlock()
		return e.session, nil
	}
	if _, held := m.fences[tripID]; held || m.closed {
		m.mu.Unlock()
		return nil, nil
	}
	m.mu.Unlock()

	ctx, cancel := m.ctx, context.CancelFunc(func() {})
	if t := m.opts.Policy.Timeout; t > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, t)
	}
	defer cancel()

	s, err := m.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[tripID] = &entry{session: s, used: time.Now()}
	m.mu.Unlock()
	return s, nil
}

// load reads the trip, its items and the catalog concurrently.
func (m *Manager) load(ctx context.Context, tripID uuid.UUID) (*Session, error) {
	var (
		trip       domain.Trip
		items      []domain.ItineraryItem
		activities []domain.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trip, err = m.trips.GetByID(gctx, tripID)
		return err
	})
	g.Go(func() (err error) {
		items, err = m.items.ListByTripID(gctx, tripID)
		return err
	})
	g.Go(func() (err error) {
		activities, err = m.activities.List(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewSession(m.ctx, trip, items, itinerary.NewCatalog(activities), m.items, m.opts)
}

// Hold fences tripID until release is called. The cached session, if any,
// stops accepting commands (they fail with ErrSessionClosed), its queued
// writes are flushed, and it is dropped. While the fence is up Session blocks
// for the trip, so the caller can read and change the trip's stored state
// with no itinerary write racing it. Holds on one trip are taken in turn.
//
// On error nothing is held and the session stays cached.
func (m *Manager) Hold(ctx context.Context, tripID uuid.UUID) (release func(), err error) {
	fence := make(chan struct{})
	for {
		m.mu.Lock()
		other, held := m.fences[tripID]
		if !held {
			m.fences[tripID] = fence
			m.mu.Unlock()
			break
		}
		m.mu.Unlock()

		select {
		case <-other:
		case <-ctx.Done():
			return nil, fmt.Errorf("planner.Manager.Hold: %w", ctx.Err())
		}
	}

	var once sync.Once
	release = func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.fences, tripID)
			m.mu.Unlock()
			close(fence)
		})
	}

	// Joins a load that started before the fence, so its session is cached
	// by the time retire looks for it.
	select {
	case <-m.group.DoChan(tripID.String(), func() (any, error) { return nil, nil }):
	case <-ctx.Done():
		release()
		return nil, fmt.Errorf("planner.Manager.Hold: %w", ctx.Err())
	}

	if err := m.retire(ctx, tripID); err != nil {
		release()
		return nil, fmt.Errorf("planner.Manager.Hold: %w", err)
	}
	return release, nil
}

// retire closes the trip's cached session, waits for its writes and drops
// it. If the flush is abandoned the session is reopened and stays cached.
func (m *Manager) retire(ctx context.Context, tripID uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[tripID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	e.session.setClosed(true)
	if err := e.session.Flush(ctx); err != nil {
		e.session.setClosed(false)
		return err
	}

	m.mu.Lock()
	delete(m.sessions, tripID)
	m.mu.Unlock()
	return nil
}

// Forget drops the cached session for tripID after flushing its pending
// writes, so the next access reloads it from the store. It is a no-op when
// no session is cached.
func (m *Manager) Forget(ctx context.Context, tripID uuid.UUID) error {
	release, err := m.Hold(ctx, tripID)
	if err != nil {
		return fmt.Errorf("planner.Manager.Forget: %w", err)
	}
	release()
	return nil
}

// EvictIdle drops every session that has not been handed out since
// now minus Options.IdleTimeout and has no write outstanding. It returns how
// many were dropped. It does nothing when IdleTimeout is zero.
func (m *Manager) EvictIdle(ctx context.Context, now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var stale []uuid.UUID
	for id, e := range m.sessions {
		if e.used.Before(cutoff) && e.session.idle() {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	evicted := 0
	for _, id := range stale {
		if err := m.Forget(ctx, id); err != nil {
			m.log.Warn("evicting idle itinerary session", "trip_id", id, "error", err)
			continue
		}
		evicted++
	}
	if evicted > 0 {
		m.log.Debug("evicted idle itinerary sessions", "count", evicted)
	}
	return evicted
}

func (m *Manager) evictLoop(every time.Duration) {
	defer close(m.done)
	if every <= 0 {
		every = m.opts.IdleTimeout
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.EvictIdle(m.ctx, now)
		}
	}
}

// Close flushes every session and stops accepting remote writes.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.mu.Unlock()

	var errs error
	for _, s := range sessions {
		s.setClosed(true)
		errs = multierr.Append(errs, s.Flush(ctx))
	}
	m.cancel()
	if m.done != nil {
		<-m.done
	}
	if errs != nil {
		return fmt.Errorf("planner.Manager.Close: %w", errs)
	}
	return nil
}
