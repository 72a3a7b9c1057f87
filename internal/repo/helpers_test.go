package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/testutil"
)

// newTestTx opens a transaction against the test database. The transaction is
// automatically rolled back when the test finishes, giving free per-test
// isolation.
//
// Requires TEST_DATABASE_URL to be set; the test is skipped otherwise.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test; no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// tripFixture returns a one-week trip. Callers can override individual fields.
func tripFixture() domain.Trip {
	return domain.Trip{
		Title:       "Lisbon",
		Description: "Trams and tiles",
		StartDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
	}
}

// seedActivity inserts an activity directly; the catalog has no write API.
func seedActivity(t *testing.T, tx pgx.Tx, name, category string, cost float64) domain.Activity {
	t.Helper()
	a := domain.Activity{
		ID:            uuid.New(),
		Name:          name,
		Location:      "Lisbon",
		DurationHours: 2,
		Cost:          cost,
		Category:      category,
	}
	_, err := tx.Exec(context.Background(), `
		INSERT INTO activities (id, name, location, duration_hours, cost, category)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Location, a.DurationHours, a.Cost, a.Category)
	require.NoError(t, err, "seed activity")
	return a
}
