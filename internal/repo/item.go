package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Postgres SQLSTATE codes mapped onto domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// ItemRepo defines the persistence operations for itinerary items.
// All operations are scoped by trip ID. It is the store behind planner sessions.
type ItemRepo interface {
	// Create inserts an item with its client-assigned ID and position.
	// Returns domain.ErrNotFound if the trip or activity does not exist and
	// domain.ErrValidation if the position is already taken or the day lies
	// outside the trip's dates.
	Create(ctx context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error)

	// ListByTripID returns a trip's items ordered by day, then position.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryItem, error)

	// Delete removes an item and, in the same transaction, shifts later items
	// of its day up by one. Returns domain.ErrNotFound if the item does not
	// exist under that trip.
	Delete(ctx context.Context, tripID, itemID uuid.UUID) error

	// Reorder applies position changes in one transaction.
	// Returns domain.ErrNotFound if any item does not exist under that trip
	// and domain.ErrValidation if a change targets a day outside its dates.
	Reorder(ctx context.Context, tripID uuid.UUID, changes []domain.OrderChange) error

	// MaxDayNumber returns the highest day_number used by the trip's items,
	// or 0 when it has none.
	MaxDayNumber(ctx context.Context, tripID uuid.UUID) (int, error)
}

// pgItemRepo is the Postgres implementation of ItemRepo.
type pgItemRepo struct {
	db db
}

// NewItemRepo constructs an ItemRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewItemRepo(db db) ItemRepo {
	return &pgItemRepo{db: db}
}

const itemColumns = `id, trip_id, activity_id, day_number, order_in_day, start_time, notes, created_at`

func (r *pgItemRepo) Create(ctx context.Context, item domain.ItineraryItem) (domain.ItineraryItem, error) {
	const q = `
		INSERT INTO itinerary_items (id, trip_id, activity_id, day_number, order_in_day, start_time, notes)
		VALUES (@id, @trip_id, @activity_id, @day_number, @order_in_day, @start_time, @notes)
		RETURNING ` + itemColumns

	args := pgx.NamedArgs{
		"id":           item.ID,
		"trip_id":      item.TripID,
		"activity_id":  item.ActivityID,
		"day_number":   item.DayNumber,
		"order_in_day": item.OrderInDay,
		"start_time":   item.StartTime,
		"notes":        item.Notes,
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	days, err := lockTripDays(ctx, tx, item.TripID)
	if err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: %w", err)
	}
	if err := checkDay(item.DayNumber, days); err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: %w", err)
	}

	result, err := scanItem(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: %w", mapPgError(err))
	}
	if err := checkPositions(ctx, tx); err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ItineraryItem{}, fmt.Errorf("repo.ItemRepo.Create: commit: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgItemRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ItineraryItem, error) {
	const q = `
		SELECT ` + itemColumns + `
		FROM itinerary_items
		WHERE trip_id = @trip_id
		ORDER BY day_number, order_in_day`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ItemRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	items := []domain.ItineraryItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ItemRepo.ListByTripID: scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ItemRepo.ListByTripID: rows: %w", err)
	}
	return items, nil
}

func (r *pgItemRepo) Delete(ctx context.Context, tripID, itemID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	var day, pos int
	err = tx.QueryRow(ctx, `
		DELETE FROM itinerary_items
		WHERE id = @id AND trip_id = @trip_id
		RETURNING day_number, order_in_day`,
		pgx.NamedArgs{"id": itemID, "trip_id": tripID},
	).Scan(&day, &pos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("repo.ItemRepo.Delete: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.ItemRepo.Delete: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE itinerary_items
		SET order_in_day = order_in_day - 1
		WHERE trip_id = @trip_id AND day_number = @day AND order_in_day > @pos`,
		pgx.NamedArgs{"trip_id": tripID, "day": day, "pos": pos},
	)
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: renumber: %w", err)
	}
	if err := checkPositions(ctx, tx); err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: commit: %w", mapPgError(err))
	}
	return nil
}

func (r *pgItemRepo) Reorder(ctx context.Context, tripID uuid.UUID, changes []domain.OrderChange) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Reorder: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	days, err := lockTripDays(ctx, tx, tripID)
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Reorder: %w", err)
	}

	// A swap passes through a duplicate position between the two updates.
	if _, err := tx.Exec(ctx, `SET CONSTRAINTS itinerary_items_position_key DEFERRED`); err != nil {
		return fmt.Errorf("repo.ItemRepo.Reorder: defer constraint: %w", err)
	}

	const q = `
		UPDATE itinerary_items
		SET day_number = @day_number, order_in_day = @order_in_day
		WHERE id = @id AND trip_id = @trip_id`

	for _, c := range changes {
		if err := checkDay(c.DayNumber, days); err != nil {
			return fmt.Errorf("repo.ItemRepo.Reorder: item %s: %w", c.ItemID, err)
		}
		tag, err := tx.Exec(ctx, q, pgx.NamedArgs{
			"id":           c.ItemID,
			"trip_id":      tripID,
			"day_number":   c.DayNumber,
			"order_in_day": c.OrderInDay,
		})
		if err != nil {
			return fmt.Errorf("repo.ItemRepo.Reorder: %w", mapPgError(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("repo.ItemRepo.Reorder: item %s: %w", c.ItemID, domain.ErrNotFound)
		}
	}

	if err := checkPositions(ctx, tx); err != nil {
		return fmt.Errorf("repo.ItemRepo.Reorder: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.ItemRepo.Reorder: commit: %w", mapPgError(err))
	}
	return nil
}

func (r *pgItemRepo) MaxDayNumber(ctx context.Context, tripID uuid.UUID) (int, error) {
	const q = `SELECT COALESCE(MAX(day_number), 0) FROM itinerary_items WHERE trip_id = @trip_id`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ItemRepo.MaxDayNumber: %w", err)
	}
	return n, nil
}

// lockTripDays share-locks the trip row for the rest of tx and returns how
// many days its dates span. TripRepo.Update takes the row exclusively, so
// item writes and date changes on one trip are serialized.
func lockTripDays(ctx context.Context, tx pgx.Tx, tripID uuid.UUID) (int, error) {
	const q = `SELECT (end_date - start_date) + 1 FROM trips WHERE id = @id FOR SHARE`

	var days int
	if err := tx.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID}).Scan(&days); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("trip %s: %w", tripID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("lock trip: %w", err)
	}
	return days, nil
}

// checkDay rejects a day_number outside 1..days.
func checkDay(day, days int) error {
	if day < 1 || day > days {
		return fmt.Errorf("%w: day_number %d is outside 1..%d", domain.ErrValidation, day, days)
	}
	return nil
}

// checkPositions forces the deferred position constraint to be checked now
// rather than at the outermost COMMIT. Inside a test transaction Begin only
// opens a savepoint, and savepoints never trigger deferred checks.
func checkPositions(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SET CONSTRAINTS itinerary_items_position_key IMMEDIATE`); err != nil {
		return mapPgError(err)
	}
	return nil
}

// scanItem maps a single database row into a domain.ItineraryItem.
func scanItem(s scanner) (domain.ItineraryItem, error) {
	var (
		it                     domain.ItineraryItem
		id, tripID, activityID pgtype.UUID
	)

	err := s.Scan(&id, &tripID, &activityID, &it.DayNumber, &it.OrderInDay, &it.StartTime, &it.Notes, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItineraryItem{}, domain.ErrNotFound
		}
		return domain.ItineraryItem{}, err
	}

	it.ID = uuid.UUID(id.Bytes)
	it.TripID = uuid.UUID(tripID.Bytes)
	it.ActivityID = uuid.UUID(activityID.Bytes)
	return it, nil
}

// mapPgError translates constraint violations into domain errors so the
// planner does not retry writes that can never succeed.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
	case pgUniqueViolation:
		return fmt.Errorf("%w: position already taken (%s)", domain.ErrValidation, pgErr.ConstraintName)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
	}
	return err
}
