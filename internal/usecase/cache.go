package usecase

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"

	"go.uber.org/zap"
)

// EntityCache keeps the local users and trips tables in step with the Auth
// and Trip services. Every write is an idempotent upsert or a monotonic
// cancel, so event handlers may race with requests and with redeliveries.
type EntityCache interface {
	// GetOrCreateUser must run inside the caller's transaction when lock is set.
	GetOrCreateUser(ctx context.Context, tx *repository.Repository, username string, lock bool) (*entity.User, error)
	// GetOrCreateTrip falls back to the Trip service when the id is not
	// mirrored yet. A definite 404 yields ErrUnknownTrip and writes nothing.
	GetOrCreateTrip(ctx context.Context, tx *repository.Repository, tripID int64, lock bool) (*entity.Trip, error)
	// ApplyTripCancellation cancels the trip and its active bookings in one
	// transaction and reports whether anything changed.
	ApplyTripCancellation(ctx context.Context, tripID int64) (bool, error)

	OnUserCreated(ctx context.Context, username string) error
	OnTripCreated(ctx context.Context, tripID int64) error
	OnTripCancelled(ctx context.Context, tripID int64) error
}

type entityCache struct {
	txm   repository.TxManager
	repo  *repository.Repository
	trips TripGateway
	pub   EventPublisher
	log   *zap.Logger
}

func NewEntityCache(txm repository.TxManager, repo *repository.Repository, trips TripGateway, pub EventPublisher, log *zap.Logger) EntityCache {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &entityCache{
		txm:   txm,
		repo:  repo,
		trips: trips,
		pub:   pub,
		log:   log.With(zap.String("service", "cache")),
	}
}

func (c *entityCache) GetOrCreateUser(ctx context.Context, tx *repository.Repository, username string, lock bool) (*entity.User, error) {
	created, err := tx.User.Ensure(ctx, username)
	if err != nil {
		return nil, err
	}
	if created {
		c.log.Info("User mirrored on first reference", zap.String("username", username))
	}

	user, err := tx.User.FindByUsername(ctx, username, lock)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser.withf("user %s does not exist", username)
	}

	return user, nil
}

func (c *entityCache) GetOrCreateTrip(ctx context.Context, tx *repository.Repository, tripID int64, lock bool) (*entity.Trip, error) {
	trip, err := tx.Trip.FindByID(ctx, tripID, lock)
	if err != nil {
		return nil, err
	}
	if trip != nil {
		return trip, nil
	}

	// create_trip has not arrived yet; ask the Trip service directly
	exists, err := c.trips.Exists(ctx, tripID)
	if err != nil {
		return nil, tripError(tripID, err)
	}
	if !exists {
		return nil, ErrUnknownTrip.withf("trip %d does not exist", tripID)
	}

	if _, err := tx.Trip.Ensure(ctx, tripID); err != nil {
		return nil, err
	}
	c.log.Info("Trip mirrored after verification", zap.Int64("trip_id", tripID))

	trip, err = tx.Trip.FindByID(ctx, tripID, lock)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %d missing after ensure", tripID)
	}

	return trip, nil
}

func (c *entityCache) ApplyTripCancellation(ctx context.Context, tripID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "EntityCache.ApplyTripCancellation")
	defer span.End()

	var (
		changed   bool
		cancelled []int64
	)

	err := c.txm.WithTx(ctx, func(tx *repository.Repository) error {
		trip, err := tx.Trip.FindByID(ctx, tripID, true)
		if err != nil {
			return err
		}

		if trip == nil {
			// Cancel arrived before create: leave a tombstone so the later
			// create_trip is a no-op and the trip can never be booked.
			created, err := tx.Trip.EnsureCancelled(ctx, tripID)
			if err != nil {
				return err
			}
			if created {
				changed = true
				return nil
			}

			// lost the insert race to a concurrent mirror, cancel that row
			trip, err = tx.Trip.FindByID(ctx, tripID, true)
			if err != nil {
				return err
			}
			if trip == nil {
				return fmt.Errorf("trip %d missing after ensure", tripID)
			}
		}

		if trip.Cancelled {
			return nil
		}

		if _, err := tx.Trip.MarkCancelled(ctx, tripID); err != nil {
			return err
		}
		cancelled, err = tx.Booking.CancelByTrip(ctx, tripID)
		if err != nil {
			return err
		}

		changed = true
		return nil
	})
	if err != nil {
		c.log.Error("Failed to apply trip cancellation",
			zap.Error(err),
			zap.Int64("trip_id", tripID),
		)
		return false, err
	}

	if changed {
		c.log.Info("Trip cancelled",
			zap.Int64("trip_id", tripID),
			zap.Int("bookings_cancelled", len(cancelled)),
		)
	}
	for _, id := range cancelled {
		publishEvent(ctx, c.pub, c.log, EventBookingCancelled, BookingEvent{
			BookingID: id,
			TripID:    tripID,
			Cancelled: true,
			Reason:    "trip_cancelled",
		})
	}

	return changed, nil
}

func (c *entityCache) OnUserCreated(ctx context.Context, username string) error {
	created, err := c.repo.User.Ensure(ctx, username)
	if err != nil {
		return err
	}

	c.log.Info("User created event applied",
		zap.String("username", username),
		zap.Bool("duplicate", !created),
	)
	return nil
}

func (c *entityCache) OnTripCreated(ctx context.Context, tripID int64) error {
	created, err := c.repo.Trip.Ensure(ctx, tripID)
	if err != nil {
		return err
	}

	c.log.Info("Trip created event applied",
		zap.Int64("trip_id", tripID),
		zap.Bool("duplicate", !created),
	)
	return nil
}

func (c *entityCache) OnTripCancelled(ctx context.Context, tripID int64) error {
	_, err := c.ApplyTripCancellation(ctx, tripID)
	return err
}
