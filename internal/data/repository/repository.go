package repository

import (
	"context"
	"fmt"

	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	Trip    TripRepository
	Booking BookingRepository

	db  database.PgxIface
	log *zap.Logger
}

// TxManager runs fn inside one database transaction. The repositories handed
// to fn are bound to that transaction, so row locks taken through them are
// held until fn returns.
type TxManager interface {
	WithTx(ctx context.Context, fn func(tx *Repository) error) error
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	r := bind(db, log)
	r.db = db
	return r
}

func bind(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(q, log),
		Trip:    NewTripRepository(q, log),
		Booking: NewBookingRepository(q, log),
		log:     log,
	}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) (err error) {
	if r.db == nil {
		return fmt.Errorf("begin transaction: repository is already bound to a transaction")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(bind(tx, r.log)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
