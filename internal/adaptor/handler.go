package adaptor

import (
	"context"
	"time"

	"travel-booking/internal/usecase"

	"go.uber.org/zap"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater exposes the Trip service circuit breaker state.
type BreakerStater interface {
	BreakerState() string
}

// ReconcileReporter exposes the outcome of the latest trip reconciliation.
type ReconcileReporter interface {
	LastRun() (time.Time, usecase.ReconcileReport, error)
}

// Reconciler triggers an out-of-schedule trip reconciliation.
type Reconciler interface {
	ReconcileReporter
	RunNow(ctx context.Context) (usecase.ReconcileReport, error)
}

type Handler struct {
	Booking *BookingHandler
	Health  *HealthHandler
	Admin   *AdminHandler
}

func NewHandler(service *usecase.Service, db Pinger, breaker BreakerStater, reconciler Reconciler, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		Health:  NewHealthHandler(db, breaker, reconciler, log),
		Admin:   NewAdminHandler(reconciler, log),
	}
}
