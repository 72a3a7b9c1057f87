package planner_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/planner"
)

type mockTrips struct {
	calls   atomic.Int32
	getByID func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

func (m *mockTrips) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	m.calls.Add(1)
	return m.getByID(ctx, id)
}

type mockItems struct {
	fakeStore
	listByTripID func(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryItem, error)
}

func (m *mockItems) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryItem, error) {
	return m.listByTripID(ctx, tripID)
}

type mockActivities struct {
	list func(ctx context.Context, category string) ([]domain.Activity, error)
}

func (m *mockActivities) List(ctx context.Context, category string) ([]domain.Activity, error) {
	return m.list(ctx, category)
}

var (
	_ planner.TripGetter     = (*mockTrips)(nil)
	_ planner.ItemSource     = (*mockItems)(nil)
	_ planner.ActivityLister = (*mockActivities)(nil)
)

func newManager(trip domain.Trip, items ...domain.ItineraryItem) (*planner.Manager, *mockTrips, *mockItems) {
	return newManagerWith(trip, quietOptions(&recordingNotifier{}), items...)
}

func newManagerWith(trip domain.Trip, opts planner.Options, items ...domain.ItineraryItem) (*planner.Manager, *mockTrips, *mockItems) {
	trips := &mockTrips{getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
		if id != trip.ID {
			return domain.Trip{}, domain.ErrNotFound
		}
		return trip, nil
	}}
	store := &mockItems{listByTripID: func(context.Context, uuid.UUID) ([]domain.ItineraryItem, error) {
		return items, nil
	}}
	acts := &mockActivities{list: func(context.Context, string) ([]domain.Activity, error) {
		return []domain.Activity{tramRide, belemWalk, fadoNight}, nil
	}}
	return planner.NewManager(trips, store, acts, opts), trips, store
}

func TestManager_LoadsSessionOnce(t *testing.T) {
	trip := tripFixture()
	existing := domain.ItineraryItem{ID: uuid.New(), ActivityID: fadoNight.ID, DayNumber: 4, OrderInDay: 1}
	m, trips, _ := newManager(trip, existing)
	ctx := context.Background()

	var wg sync.WaitGroup
	sessions := make([]*planner.Session, 10)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Session(ctx, trip.ID)
			assert.NoError(t, err)
			sessions[i] = s
		}()
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.EqualValues(t, 1, trips.calls.Load())

	v := sessions[0].Snapshot()
	assert.Equal(t, 1, v.ItemCount)
	assert.InDelta(t, 750, v.TotalCost, 1e-9)
}

func TestManager_UnknownTrip(t *testing.T) {
	m, _, _ := newManager(tripFixture())

	_, err := m.Session(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_ForgetReloads(t *testing.T) {
	trip := tripFixture()
	m, trips, _ := newManager(trip)
	ctx := context.Background()

	first, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	require.NoError(t, m.Forget(ctx, trip.ID))
	second, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, trips.calls.Load())
	assert.NoError(t, m.Forget(ctx, uuid.New()))
}

func TestManager_CloseFlushesPendingWrites(t *testing.T) {
	trip := tripFixture()
	m, _, store := newManager(trip)
	store.create = func(_ context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error) {
		time.Sleep(5 * time.Millisecond)
		return item, nil
	}
	ctx := context.Background()

	s, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	var ops []*planner.Op
	for range 3 {
		_, op, err := s.Insert(tramRide.ID, 1, "", "")
		require.NoError(t, err)
		ops = append(ops, op)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.Close(closeCtx))

	for _, op := range ops {
		assert.Equal(t, planner.StatusCommitted, op.Status())
	}
	assert.Equal(t, []string{"create", "create", "create"}, store.callLog())
}

func TestManager_SessionWaitsForForgetToFlush(t *testing.T) {
	trip := tripFixture()
	m, _, store := newManager(trip)
	release := make(chan struct{})
	store.create = func(_ context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error) {
		<-release
		return item, nil
	}
	store.listByTripID = func(context.Context, uuid.UUID) ([]domain.ItineraryItem, error) {
		store.mu.Lock()
		defer store.mu.Unlock()
		return slices.Clone(store.created), nil
	}
	ctx := context.Background()

	a, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	_, opA, err := a.Insert(tramRide.ID, 1, "", "")
	require.NoError(t, err)

	forgot := make(chan error, 1)
	go func() { forgot <- m.Forget(ctx, trip.ID) }()
	require.Eventually(t, func() bool {
		_, err := a.Remove(uuid.New())
		return errors.Is(err, planner.ErrSessionClosed)
	}, time.Second, time.Millisecond, "Forget never stopped the cached session")

	opened := make(chan *planner.Session, 1)
	go func() {
		s, err := m.Session(ctx, trip.ID)
		assert.NoError(t, err)
		opened <- s
	}()
	select {
	case <-opened:
		t.Fatal("a second session opened while the first was still flushing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-forgot)
	require.NoError(t, waitOp(t, opA))

	b := <-opened
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	item, opB, err := b.Insert(belemWalk.ID, 1, "", "")
	require.NoError(t, err)
	require.NoError(t, waitOp(t, opB))

	assert.Equal(t, 2, item.OrderInDay, "the new session sees the flushed write")
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.maxInFlight)
}

func TestManager_HoldBlocksSessionUntilRelease(t *testing.T) {
	trip := tripFixture()
	m, trips, _ := newManager(trip)
	ctx := context.Background()

	release, err := m.Hold(ctx, trip.ID)
	require.NoError(t, err)

	opened := make(chan error, 1)
	go func() {
		_, err := m.Session(ctx, trip.ID)
		opened <- err
	}()
	select {
	case <-opened:
		t.Fatal("Session returned while the trip was held")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, trips.calls.Load())

	release()
	release() // idempotent
	require.NoError(t, <-opened)
	assert.EqualValues(t, 1, trips.calls.Load())
}

func TestManager_HoldGivesUpWhenContextEnds(t *testing.T) {
	trip := tripFixture()
	m, _, _ := newManager(trip)

	release, err := m.Hold(context.Background(), trip.ID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Session(ctx, trip.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = m.Hold(ctx, trip.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_AbandonedHoldKeepsSession(t *testing.T) {
	trip := tripFixture()
	m, _, store := newManager(trip)
	release := make(chan struct{})
	defer close(release)
	store.create = func(_ context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error) {
		<-release
		return item, nil
	}
	ctx := context.Background()

	a, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	_, _, err = a.Insert(tramRide.ID, 1, "", "")
	require.NoError(t, err)

	holdCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Hold(holdCtx, trip.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	again, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	assert.Same(t, a, again)
	_, _, err = a.Insert(belemWalk.ID, 1, "", "")
	assert.NoError(t, err, "the session accepts commands again")
}

func TestManager_LoadSurvivesCallerCancel(t *testing.T) {
	trip := tripFixture()
	m, trips, _ := newManager(trip)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	trips.getByID = func(ctx context.Context, _ uuid.UUID) (domain.Trip, error) {
		close(entered)
		select {
		case <-unblock:
			return trip, nil
		case <-ctx.Done():
			return domain.Trip{}, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := m.Session(ctx, trip.ID)
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		_, err := m.Session(context.Background(), trip.ID)
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	close(unblock)
	assert.NoError(t, <-second)
	assert.EqualValues(t, 1, trips.calls.Load())
}

func TestManager_EvictIdle(t *testing.T) {
	trip := tripFixture()
	opts := quietOptions(&recordingNotifier{})
	opts.IdleTimeout = time.Hour
	m, trips, store := newManagerWith(trip, opts)
	ctx := context.Background()
	defer func() { assert.NoError(t, m.Close(ctx)) }()

	first, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)

	assert.Zero(t, m.EvictIdle(ctx, time.Now()), "recently used")
	assert.Equal(t, 1, m.EvictIdle(ctx, time.Now().Add(2*time.Hour)))

	second, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, trips.calls.Load())

	// A session with a write outstanding is kept.
	release := make(chan struct{})
	store.create = func(_ context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error) {
		<-release
		return item, nil
	}
	_, op, err := second.Insert(fadoNight.ID, 2, "", "")
	require.NoError(t, err)
	assert.Zero(t, m.EvictIdle(ctx, time.Now().Add(2*time.Hour)))
	close(release)
	require.NoError(t, waitOp(t, op))
}

func TestManager_SessionAfterClose(t *testing.T) {
	trip := tripFixture()
	m, _, _ := newManager(trip)
	ctx := context.Background()

	s, err := m.Session(ctx, trip.ID)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))

	_, err = m.Session(ctx, trip.ID)
	assert.ErrorIs(t, err, planner.ErrSessionClosed)
	_, _, err = s.Insert(tramRide.ID, 1, "", "")
	assert.ErrorIs(t, err, planner.ErrSessionClosed)
}
