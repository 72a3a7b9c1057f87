package itinerary_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/itinerary"
)

// ---- helpers ---------------------------------------------------------------

func weekTrip() domain.Trip {
	return domain.Trip{
		ID:        uuid.New(),
		Title:     "Lisbon",
		StartDate: date(2025, 1, 10),
		EndDate:   date(2025, 1, 16),
	}
}

func newPlan(t *testing.T) *itinerary.Plan {
	t.Helper()
	p, err := itinerary.NewPlan(weekTrip(), nil)
	require.NoError(t, err)
	return p
}

func insert(t *testing.T, p *itinerary.Plan, day int) domain.ItineraryItem {
	t.Helper()
	eff, err := p.Insert(domain.ItineraryItem{ID: uuid.New(), ActivityID: uuid.New(), DayNumber: day})
	require.NoError(t, err)
	return eff.Item
}

func order(t *testing.T, p *itinerary.Plan, id uuid.UUID) int {
	t.Helper()
	it, ok := p.Item(id)
	require.True(t, ok, "item %s not in plan", id)
	return it.OrderInDay
}

// requireWellFormed checks the day range and the contiguous 1..k ordering of
// every day in p.
func requireWellFormed(t *testing.T, p *itinerary.Plan) {
	t.Helper()
	items := p.Items()
	for _, it := range items {
		require.GreaterOrEqual(t, it.DayNumber, 1)
		require.LessOrEqual(t, it.DayNumber, p.DayCount())
	}
	for d := 1; d <= p.DayCount(); d++ {
		for k, it := range itinerary.ItemsForDay(items, d) {
			require.Equal(t, k+1, it.OrderInDay, "day %d position %d", d, k+1)
		}
	}
}

// ---- NewPlan ---------------------------------------------------------------

func TestNewPlan_Empty(t *testing.T) {
	p := newPlan(t)

	assert.Equal(t, 7, p.DayCount())
	assert.Len(t, p.Days(), 7)
	assert.Zero(t, p.Len())
}

func TestNewPlan_InvertedDates(t *testing.T) {
	trip := weekTrip()
	trip.EndDate = trip.StartDate.AddDate(0, 0, -1)

	_, err := itinerary.NewPlan(trip, nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewPlan_LoadsStoredItems(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	items := []domain.ItineraryItem{
		{ID: b, ActivityID: uuid.New(), DayNumber: 2, OrderInDay: 2},
		{ID: a, ActivityID: uuid.New(), DayNumber: 2, OrderInDay: 1},
	}

	p, err := itinerary.NewPlan(weekTrip(), items)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids(p.Items()))
	requireWellFormed(t, p)
}

func TestNewPlan_RejectsGap(t *testing.T) {
	items := []domain.ItineraryItem{
		{ID: uuid.New(), DayNumber: 1, OrderInDay: 1},
		{ID: uuid.New(), DayNumber: 1, OrderInDay: 3},
	}

	_, err := itinerary.NewPlan(weekTrip(), items)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewPlan_RejectsDayOutsideTrip(t *testing.T) {
	items := []domain.ItineraryItem{{ID: uuid.New(), DayNumber: 8, OrderInDay: 1}}

	_, err := itinerary.NewPlan(weekTrip(), items)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- Insert ----------------------------------------------------------------

func TestInsert_AppendsToDay(t *testing.T) {
	p := newPlan(t)

	first := insert(t, p, 3)
	second := insert(t, p, 3)
	other := insert(t, p, 1)

	assert.Equal(t, 1, first.OrderInDay)
	assert.Equal(t, 2, second.OrderInDay)
	assert.Equal(t, 1, other.OrderInDay)
	assert.Equal(t, p.TripID(), first.TripID)
	requireWellFormed(t, p)
}

func TestInsert_DayOutOfRange(t *testing.T) {
	for _, day := range []int{0, -1, 8} {
		p := newPlan(t)

		_, err := p.Insert(domain.ItineraryItem{ID: uuid.New(), ActivityID: uuid.New(), DayNumber: day})

		assert.ErrorIs(t, err, domain.ErrValidation, "day %d", day)
		assert.Zero(t, p.Len(), "day %d must not mutate the plan", day)
	}
}

func TestInsert_RequiresIDs(t *testing.T) {
	p := newPlan(t)

	_, err := p.Insert(domain.ItineraryItem{ActivityID: uuid.New(), DayNumber: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = p.Insert(domain.ItineraryItem{ID: uuid.New(), DayNumber: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInsert_DuplicateID(t *testing.T) {
	p := newPlan(t)
	it := insert(t, p, 1)

	_, err := p.Insert(domain.ItineraryItem{ID: it.ID, ActivityID: uuid.New(), DayNumber: 2})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, p.Len())
}

// ---- Remove ----------------------------------------------------------------

func TestRemove_RenumbersLaterSiblings(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 2)
	b := insert(t, p, 2)
	c := insert(t, p, 2)
	d := insert(t, p, 2)

	eff, err := p.Remove(b.ID)

	require.NoError(t, err)
	assert.Equal(t, b.ID, eff.Item.ID)
	assert.Equal(t, 1, order(t, p, a.ID))
	assert.Equal(t, 2, order(t, p, c.ID))
	assert.Equal(t, 3, order(t, p, d.ID))
	assert.Equal(t, []domain.OrderChange{
		{ItemID: c.ID, DayNumber: 2, OrderInDay: 2},
		{ItemID: d.ID, DayNumber: 2, OrderInDay: 3},
	}, eff.Changes)
	requireWellFormed(t, p)
}

func TestRemove_FirstOfThree(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)
	b := insert(t, p, 1)
	c := insert(t, p, 1)

	_, err := p.Remove(a.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, order(t, p, b.ID))
	assert.Equal(t, 2, order(t, p, c.ID))
	requireWellFormed(t, p)
}

func TestRemove_LeavesOtherDaysAlone(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)
	x := insert(t, p, 2)
	y := insert(t, p, 2)

	eff, err := p.Remove(a.ID)

	require.NoError(t, err)
	assert.Empty(t, eff.Changes)
	assert.Equal(t, 1, order(t, p, x.ID))
	assert.Equal(t, 2, order(t, p, y.ID))
}

func TestRemove_NotFound(t *testing.T) {
	p := newPlan(t)
	insert(t, p, 1)

	_, err := p.Remove(uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, p.Len())
}

// ---- Move ------------------------------------------------------------------

func TestMove_SwapsWithNeighbour(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)
	b := insert(t, p, 1)

	eff, err := p.Move(b.ID, domain.DirectionUp)

	require.NoError(t, err)
	assert.False(t, eff.NoOp)
	assert.Equal(t, 2, order(t, p, a.ID))
	assert.Equal(t, 1, order(t, p, b.ID))
	assert.Equal(t, []domain.OrderChange{
		{ItemID: b.ID, DayNumber: 1, OrderInDay: 1},
		{ItemID: a.ID, DayNumber: 1, OrderInDay: 2},
	}, eff.Changes)
}

func TestMove_Down(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 4)
	b := insert(t, p, 4)
	c := insert(t, p, 4)

	_, err := p.Move(a.ID, domain.DirectionDown)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID, c.ID}, ids(itinerary.ItemsForDay(p.Items(), 4)))
}

func TestMove_BoundariesAreNoOps(t *testing.T) {
	p := newPlan(t)
	first := insert(t, p, 1)
	insert(t, p, 1)
	last := insert(t, p, 1)
	before := p.Items()

	up, err := p.Move(first.ID, domain.DirectionUp)
	require.NoError(t, err)
	down, err := p.Move(last.ID, domain.DirectionDown)
	require.NoError(t, err)

	assert.True(t, up.NoOp)
	assert.True(t, down.NoOp)
	assert.Empty(t, up.Changes)
	assert.Equal(t, before, p.Items())
}

func TestMove_RepeatedPastBoundaryIsIdempotent(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)
	b := insert(t, p, 1)

	_, err := p.Move(b.ID, domain.DirectionUp)
	require.NoError(t, err)
	settled := p.Items()

	for range 5 {
		eff, err := p.Move(b.ID, domain.DirectionUp)
		require.NoError(t, err)
		assert.True(t, eff.NoOp)
	}

	assert.Equal(t, settled, p.Items())
	assert.Equal(t, 2, order(t, p, a.ID))
}

func TestMove_NeverCrossesDays(t *testing.T) {
	p := newPlan(t)
	insert(t, p, 1)
	onlyOnDay2 := insert(t, p, 2)

	eff, err := p.Move(onlyOnDay2.ID, domain.DirectionUp)

	require.NoError(t, err)
	assert.True(t, eff.NoOp)
	it, _ := p.Item(onlyOnDay2.ID)
	assert.Equal(t, 2, it.DayNumber)
}

func TestMove_InvalidDirection(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)

	_, err := p.Move(a.ID, domain.Direction("sideways"))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMove_NotFound(t *testing.T) {
	p := newPlan(t)

	_, err := p.Move(uuid.New(), domain.DirectionDown)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Apply / Clone ---------------------------------------------------------

func TestApply_DispatchesCommands(t *testing.T) {
	p := newPlan(t)
	id := uuid.New()

	eff, err := p.Apply(itinerary.InsertItem{Item: domain.ItineraryItem{ID: id, ActivityID: uuid.New(), DayNumber: 5}})
	require.NoError(t, err)
	assert.Equal(t, itinerary.KindInsert, eff.Kind)

	eff, err = p.Apply(itinerary.MoveItem{ItemID: id, Direction: domain.DirectionDown})
	require.NoError(t, err)
	assert.True(t, eff.NoOp)

	eff, err = p.Apply(itinerary.RemoveItem{ItemID: id})
	require.NoError(t, err)
	assert.Equal(t, itinerary.KindRemove, eff.Kind)
	assert.Zero(t, p.Len())
}

func TestClone_IsIndependent(t *testing.T) {
	p := newPlan(t)
	a := insert(t, p, 1)
	b := insert(t, p, 1)

	c := p.Clone()
	_, err := c.Move(b.ID, domain.DirectionUp)
	require.NoError(t, err)
	_, err = c.Remove(a.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1, order(t, p, a.ID))
	assert.Equal(t, 2, order(t, p, b.ID))
}

// ---- Scenario & properties ---------------------------------------------------

func TestScenario_WeekInLisbon(t *testing.T) {
	actA := domain.Activity{ID: uuid.New(), Name: "Tram 28", Cost: 500}
	actB := domain.Activity{ID: uuid.New(), Name: "Belem", Cost: 300}
	catalog := itinerary.NewCatalog([]domain.Activity{actA, actB})

	p := newPlan(t)
	require.Equal(t, 7, p.DayCount())

	a, err := p.Insert(domain.ItineraryItem{ID: uuid.New(), ActivityID: actA.ID, DayNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Item.OrderInDay)

	b, err := p.Insert(domain.ItineraryItem{ID: uuid.New(), ActivityID: actB.ID, DayNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Item.OrderInDay)
	assert.InDelta(t, 800, itinerary.TotalCost(p.Items(), catalog), 1e-9)

	_, err = p.Move(b.Item.ID, domain.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, 2, order(t, p, a.Item.ID))
	assert.Equal(t, 1, order(t, p, b.Item.ID))

	_, err = p.Remove(a.Item.ID)
	require.NoError(t, err)
	day1 := itinerary.ItemsForDay(p.Items(), 1)
	require.Len(t, day1, 1)
	assert.Equal(t, 1, day1[0].OrderInDay)
	assert.InDelta(t, 300, itinerary.TotalCost(p.Items(), catalog), 1e-9)
}

func TestPlan_StaysWellFormedUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	p := newPlan(t)
	var live []uuid.UUID

	for step := 0; step < 2000; step++ {
		switch op := rng.IntN(3); {
		case op == 0 || len(live) == 0:
			it := insert(t, p, 1+rng.IntN(p.DayCount()))
			live = append(live, it.ID)
		case op == 1:
			k := rng.IntN(len(live))
			_, err := p.Remove(live[k])
			require.NoError(t, err)
			live = append(live[:k], live[k+1:]...)
		default:
			dir := domain.DirectionUp
			if rng.IntN(2) == 0 {
				dir = domain.DirectionDown
			}
			_, err := p.Move(live[rng.IntN(len(live))], dir)
			require.NoError(t, err)
		}
		require.Equal(t, len(live), p.Len())
		requireWellFormed(t, p)
	}
}
