package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

func TestActivityRepo_ListByCategory(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewActivityRepo(tx)
	ctx := context.Background()

	museum := seedActivity(t, tx, "zz-test Azulejo Museum", "zz-test-museum", 5)
	seedActivity(t, tx, "zz-test Surf Lesson", "zz-test-sport", 60)

	got, err := r.List(ctx, "zz-test-museum")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, museum.ID, got[0].ID)
	assert.InDelta(t, 5, got[0].Cost, 1e-9)
	assert.Nil(t, got[0].ImageURL)

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)
}

func TestActivityRepo_GetByID(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewActivityRepo(tx)

	a := seedActivity(t, tx, "Fado Night", "music", 750)

	got, err := r.GetByID(context.Background(), a.ID)

	require.NoError(t, err)
	assert.Equal(t, "Fado Night", got.Name)
	assert.Equal(t, "music", got.Category)
}

func TestActivityRepo_GetByID_NotFound(t *testing.T) {
	r := repo.NewActivityRepo(newTestTx(t))

	_, err := r.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
