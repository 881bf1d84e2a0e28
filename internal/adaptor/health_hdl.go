package adaptor

import (
	"context"
	"net/http"
	"time"

	"travel-booking/pkg/database"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type HealthHandler struct {
	db         Pinger
	breaker    BreakerStater
	reconciles ReconcileReporter
	log        *zap.Logger
}

func NewHealthHandler(db Pinger, breaker BreakerStater, reconciles ReconcileReporter, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		breaker:    breaker,
		reconciles: reconciles,
		log:        log.With(zap.String("handler", "health")),
	}
}

type healthStatus struct {
	Database    string              `json:"database"`
	TripBreaker string              `json:"trip_breaker"`
	Pool        *database.PoolStats `json:"pool,omitempty"`
	Reconcile   *reconcileStatus    `json:"reconcile,omitempty"`
}

type reconcileStatus struct {
	LastRun time.Time       `json:"last_run"`
	Report  reconcileResult `json:"report"`
	Error   string          `json:"error,omitempty"`
}

type poolStater interface {
	PoolStats() database.PoolStats
}

// Health handles GET /health. An open breaker degrades but does not fail the
// check; an unreachable database does.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{Database: "up", TripBreaker: "unknown"}
	if h.breaker != nil {
		status.TripBreaker = h.breaker.BreakerState()
	}
	if ps, ok := h.db.(poolStater); ok {
		stats := ps.PoolStats()
		status.Pool = &stats
	}
	if h.reconciles != nil {
		status.Reconcile = lastReconcile(h.reconciles)
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("Database ping failed", zap.Error(err))
		status.Database = "down"
		utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "unhealthy", status, nil)
		return
	}

	utils.ResponseSuccess(w, "ok", status)
}

// lastReconcile is nil until the reconciler has run once.
func lastReconcile(r ReconcileReporter) *reconcileStatus {
	at, report, err := r.LastRun()
	if at.IsZero() {
		return nil
	}
	rs := &reconcileStatus{LastRun: at, Report: newReconcileResult(report)}
	if err != nil {
		rs.Error = err.Error()
	}
	return rs
}
