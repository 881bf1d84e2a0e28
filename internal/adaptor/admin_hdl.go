package adaptor

import (
	"net/http"

	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type AdminHandler struct {
	reconciler Reconciler
	log        *zap.Logger
}

func NewAdminHandler(reconciler Reconciler, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reconciler: reconciler,
		log:        log.With(zap.String("handler", "admin")),
	}
}

type reconcileResult struct {
	Checked   int `json:"checked"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
}

func newReconcileResult(report usecase.ReconcileReport) reconcileResult {
	return reconcileResult{
		Checked:   report.Checked,
		Cancelled: report.Cancelled,
		Skipped:   report.Skipped,
	}
}

// ReconcileTrips handles POST /api/v1/booking/admin/reconcile (admin only)
func (h *AdminHandler) ReconcileTrips(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.RunNow(r.Context())
	if err != nil {
		h.log.Error("Manual trip reconciliation failed", zap.Error(err))
		utils.ResponseInternalError(w, "Reconciliation failed")
		return
	}

	utils.ResponseSuccess(w, "Reconciliation finished", newReconcileResult(report))
}
