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

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id int64, lock bool) (*entity.Booking, error)
	// FindPageByUsername returns up to limit bookings with id > afterID in
	// ascending id order.
	FindPageByUsername(ctx context.Context, username string, afterID int64, limit int) ([]*entity.Booking, error)
	UpdateAmount(ctx context.Context, id int64, amount int32) error

	// Business queries
	SumActiveAmountByTrip(ctx context.Context, tripID int64) (int64, error)
	Cancel(ctx context.Context, id int64) (int64, error)
	CancelByTrip(ctx context.Context, tripID int64) ([]int64, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, username, trip_id, amount, cancelled, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Username,
		&booking.TripID,
		&booking.Amount,
		&booking.Cancelled,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (username, trip_id, amount, cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		booking.Username,
		booking.TripID,
		booking.Amount,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("username", booking.Username),
			zap.Int64("trip_id", booking.TripID),
		)
		return fmt.Errorf("create booking for trip %d: %w", booking.TripID, err)
	}

	booking.Cancelled = false
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id int64, lock bool) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if lock {
		query += " FOR UPDATE"
	}

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return nil, fmt.Errorf("find booking by ID %d: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindPageByUsername(ctx context.Context, username string, afterID int64, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE username = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, username, afterID, limit)
	if err != nil {
		r.log.Error("Failed to find bookings by username",
			zap.Error(err),
			zap.String("username", username),
			zap.Int64("after_id", afterID),
			zap.Int("limit", limit),
		)
		return nil, fmt.Errorf("find bookings by username %s: %w", username, err)
	}
	defer rows.Close()

	bookings := make([]*entity.Booking, 0, limit)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) UpdateAmount(ctx context.Context, id int64, amount int32) error {
	query := `UPDATE bookings SET amount = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		r.log.Error("Failed to update booking amount",
			zap.Error(err),
			zap.Int64("booking_id", id),
			zap.Int32("amount", amount),
		)
		return fmt.Errorf("update booking %d amount: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %d not found", id)
	}

	return nil
}

func (r *bookingRepository) SumActiveAmountByTrip(ctx context.Context, tripID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM bookings WHERE trip_id = $1 AND NOT cancelled`

	var sum int64
	if err := r.db.QueryRow(ctx, query, tripID).Scan(&sum); err != nil {
		r.log.Error("Failed to sum booking amounts",
			zap.Error(err),
			zap.Int64("trip_id", tripID),
		)
		return 0, fmt.Errorf("sum booking amounts for trip %d: %w", tripID, err)
	}

	return sum, nil
}

// Cancel marks the booking cancelled without loading it and returns the number
// of rows matched. updated_at only moves on the first cancellation.
func (r *bookingRepository) Cancel(ctx context.Context, id int64) (int64, error) {
	query := `
		UPDATE bookings
		SET cancelled = TRUE,
		    updated_at = CASE WHEN cancelled THEN updated_at ELSE NOW() END
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.Int64("booking_id", id),
		)
		return 0, fmt.Errorf("cancel booking %d: %w", id, err)
	}

	return result.RowsAffected(), nil
}

func (r *bookingRepository) CancelByTrip(ctx context.Context, tripID int64) ([]int64, error) {
	query := `
		UPDATE bookings
		SET cancelled = TRUE, updated_at = NOW()
		WHERE trip_id = $1 AND NOT cancelled
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		r.log.Error("Failed to cancel bookings by trip",
			zap.Error(err),
			zap.Int64("trip_id", tripID),
		)
		return nil, fmt.Errorf("cancel bookings for trip %d: %w", tripID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cancelled booking id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cancelled bookings: %w", err)
	}

	return ids, nil
}
