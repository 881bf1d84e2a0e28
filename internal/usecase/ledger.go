package usecase

import (
	"context"

	"travel-booking/internal/data/repository"

	"go.uber.org/zap"
)

// CapacityLedger computes what is left of a trip's capacity. It keeps no
// state: capacity comes from the Trip service on every call and the booked
// total from the transaction's view of the bookings table.
type CapacityLedger struct {
	trips TripGateway
	log   *zap.Logger
}

func NewCapacityLedger(trips TripGateway, log *zap.Logger) *CapacityLedger {
	return &CapacityLedger{
		trips: trips,
		log:   log.With(zap.String("service", "ledger")),
	}
}

// AvailableCapacity returns capacity minus the amounts of all active bookings
// on the trip. It fails closed when the Trip service cannot answer.
func (l *CapacityLedger) AvailableCapacity(ctx context.Context, tx *repository.Repository, tripID int64) (int64, error) {
	capacity, err := l.trips.Capacity(ctx, tripID)
	if err != nil {
		l.log.Warn("Capacity lookup failed",
			zap.Error(err),
			zap.Int64("trip_id", tripID),
		)
		return 0, tripError(tripID, err)
	}

	booked, err := tx.Booking.SumActiveAmountByTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}

	l.log.Debug("Capacity computed",
		zap.Int64("trip_id", tripID),
		zap.Int64("capacity", capacity),
		zap.Int64("booked", booked),
	)

	return capacity - booked, nil
}
