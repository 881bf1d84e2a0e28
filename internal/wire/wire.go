// internal/wire/wire.go
package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/internal/client"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/usecase"
	"travel-booking/internal/worker"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router    *chi.Mux
	Service   *usecase.Service
	Scheduler *worker.ReconcileScheduler
}

// Wiring menginisialisasi semua dependencies
func Wiring(
	repo *repository.Repository,
	db adaptor.Pinger,
	trips *client.TripClient,
	pub usecase.EventPublisher,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	// Initialize services, scheduler dan handlers
	service := usecase.NewService(repo, trips, pub, logger)
	scheduler := worker.NewReconcileScheduler(config.Trip.ReconcileCron, service.Reconcile, logger)
	handler := adaptor.NewHandler(service, db, trips, scheduler, logger)

	// Setup router
	router := setupRouter(handler, config, logger)

	return &App{
		Router:    router,
		Service:   service,
		Scheduler: scheduler,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// Apply routes
	wireBooking(r, handler.Booking, config, logger)
	wireAdmin(r, handler.Admin, config, logger)

	// Health check endpoint
	r.Get("/health", handler.Health.Health)

	return r
}
