package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(
	r chi.Router,
	adminHandler *adaptor.AdminHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== ADMIN ROUTES ====================
	r.Route("/api/v1/booking/admin", func(r chi.Router) {
		// Require both authentication AND admin role
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))
		r.Use(middleware.RequireAdmin(log))

		// POST /api/v1/booking/admin/reconcile - Run trip reconciliation now
		r.Post("/reconcile", adminHandler.ReconcileTrips)
	})
}
