package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// All booking routes require a bearer token from the Auth service
	r.Route(usecase.BookingsPath, func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// POST /api/v1/booking/bookings - Create booking for the caller
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/v1/booking/bookings - Caller's bookings, keyset paginated
		r.Get("/", bookingHandler.ListBookings)

		// GET /api/v1/booking/bookings/{id} - Owner or admin
		r.Get("/{id}", bookingHandler.GetBooking)

		// PATCH /api/v1/booking/bookings/{id} - CANCEL or UPDATE_AMOUNT
		r.Patch("/{id}", bookingHandler.PatchBooking)
	})
}
