package repository

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TripRepository interface {
	// Ensure inserts an active trip unless the id is already known.
	Ensure(ctx context.Context, id int64) (bool, error)
	// EnsureCancelled inserts a cancelled tombstone unless the id is already known.
	EnsureCancelled(ctx context.Context, id int64) (bool, error)
	FindByID(ctx context.Context, id int64, lock bool) (*entity.Trip, error)
	// MarkCancelled flips an active trip to cancelled and reports whether it did.
	MarkCancelled(ctx context.Context, id int64) (bool, error)
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type tripRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewTripRepository(db database.Querier, log *zap.Logger) TripRepository {
	return &tripRepository{
		db:  db,
		log: log.With(zap.String("repository", "trip")),
	}
}

func (r *tripRepository) Ensure(ctx context.Context, id int64) (bool, error) {
	return r.insert(ctx, id, false)
}

func (r *tripRepository) EnsureCancelled(ctx context.Context, id int64) (bool, error) {
	return r.insert(ctx, id, true)
}

func (r *tripRepository) insert(ctx context.Context, id int64, cancelled bool) (bool, error) {
	query := `
		INSERT INTO trips (id, cancelled, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, id, cancelled)
	if err != nil {
		r.log.Error("Failed to ensure trip",
			zap.Error(err),
			zap.Int64("trip_id", id),
			zap.Bool("cancelled", cancelled),
		)
		return false, fmt.Errorf("ensure trip %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *tripRepository) FindByID(ctx context.Context, id int64, lock bool) (*entity.Trip, error) {
	query := `
		SELECT id, cancelled, created_at, updated_at
		FROM trips
		WHERE id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var trip entity.Trip
	err := r.db.QueryRow(ctx, query, id).Scan(
		&trip.ID,
		&trip.Cancelled,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find trip by ID",
			zap.Error(err),
			zap.Int64("trip_id", id),
		)
		return nil, fmt.Errorf("find trip by ID %d: %w", id, err)
	}

	return &trip, nil
}

func (r *tripRepository) MarkCancelled(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE trips SET cancelled = TRUE, updated_at = NOW() WHERE id = $1 AND NOT cancelled`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to cancel trip",
			zap.Error(err),
			zap.Int64("trip_id", id),
		)
		return false, fmt.Errorf("cancel trip %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *tripRepository) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM trips
		WHERE NOT cancelled AND id > $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		r.log.Error("Failed to list active trips",
			zap.Error(err),
			zap.Int64("after_id", afterID),
		)
		return nil, fmt.Errorf("list active trips after %d: %w", afterID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trip id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip rows: %w", err)
	}

	return ids, nil
}
