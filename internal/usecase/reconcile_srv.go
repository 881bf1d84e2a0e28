package usecase

import (
	"context"

	"travel-booking/internal/data/repository"

	"go.uber.org/zap"
)

const reconcileBatchSize = 100

type ReconcileReport struct {
	Checked   int
	Cancelled int
	Skipped   int
}

// ReconcileService re-checks mirrored trips against the Trip service and
// cancels the ones it no longer knows. It covers delete_trip events that were
// lost or overtaken.
type ReconcileService interface {
	ReconcileTrips(ctx context.Context) (ReconcileReport, error)
}

type reconcileService struct {
	repo  *repository.Repository
	cache EntityCache
	trips TripGateway
	batch int
	log   *zap.Logger
}

func NewReconcileService(repo *repository.Repository, cache EntityCache, trips TripGateway, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo:  repo,
		cache: cache,
		trips: trips,
		batch: reconcileBatchSize,
		log:   log.With(zap.String("service", "reconcile")),
	}
}

func (s *reconcileService) ReconcileTrips(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "ReconcileService.ReconcileTrips")
	defer span.End()

	var report ReconcileReport
	var afterID int64

	for {
		ids, err := s.repo.Trip.ListActiveIDs(ctx, afterID, s.batch)
		if err != nil {
			return report, err
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++

			exists, err := s.trips.Exists(ctx, id)
			if err != nil {
				// unknown is not gone
				report.Skipped++
				s.log.Debug("Skipping trip, Trip service did not answer",
					zap.Error(err),
					zap.Int64("trip_id", id),
				)
				continue
			}
			if exists {
				continue
			}

			changed, err := s.cache.ApplyTripCancellation(ctx, id)
			if err != nil {
				return report, err
			}
			if changed {
				report.Cancelled++
			}
		}

		if len(ids) < s.batch {
			break
		}
		afterID = ids[len(ids)-1]
	}

	s.log.Info("Trip reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}
