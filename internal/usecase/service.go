package usecase

import (
	"context"
	"time"

	"travel-booking/internal/data/repository"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// BookingsPath is where the booking resources live; next-page links are built on it.
const BookingsPath = "/api/v1/booking/bookings"

var tracer = otel.Tracer("travel-booking/usecase")

// TripGateway is the Trip service as seen by the booking core. Errors other
// than a definite not-found must never be read as an answer.
type TripGateway interface {
	Capacity(ctx context.Context, tripID int64) (int64, error)
	Exists(ctx context.Context, tripID int64) (bool, error)
}

// EventPublisher emits booking lifecycle events after commit.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Booking lifecycle routing keys
const (
	EventBookingCreated       = "booking.created"
	EventBookingAmountUpdated = "booking.amount_updated"
	EventBookingCancelled     = "booking.cancelled"
)

type BookingEvent struct {
	BookingID  int64     `json:"booking_id"`
	Username   string    `json:"username,omitempty"`
	TripID     int64     `json:"trip_id,omitempty"`
	Amount     int32     `json:"amount,omitempty"`
	Cancelled  bool      `json:"cancelled"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type noopPublisher struct{}

func (noopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// publishEvent is best-effort: the state change is already committed.
func publishEvent(ctx context.Context, pub EventPublisher, log *zap.Logger, key string, event BookingEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := pub.PublishJSON(ctx, key, event); err != nil {
		log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("routing_key", key),
			zap.Int64("booking_id", event.BookingID),
		)
	}
}

type Service struct {
	Booking   BookingService
	Cache     EntityCache
	Reconcile ReconcileService
}

func NewService(repo *repository.Repository, trips TripGateway, pub EventPublisher, log *zap.Logger) *Service {
	return newService(repo, repo, trips, pub, log)
}

func newService(txm repository.TxManager, repo *repository.Repository, trips TripGateway, pub EventPublisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = noopPublisher{}
	}

	ledger := NewCapacityLedger(trips, log)
	cache := NewEntityCache(txm, repo, trips, pub, log)

	return &Service{
		Booking:   NewBookingService(txm, repo, ledger, cache, pub, log),
		Cache:     cache,
		Reconcile: NewReconcileService(repo, cache, trips, log),
	}
}
