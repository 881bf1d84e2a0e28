package adaptor

import (
	"encoding/json"
	"fmt"
	"net/http"

	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/v1/booking/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	username, ok := utils.GetUsernameFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	// bookings are only ever made for yourself
	if req.Username != username {
		h.log.Warn("Booking for another user rejected",
			zap.String("caller", username),
			zap.String("username", req.Username),
		)
		utils.ResponseForbidden(w, "Cannot create a booking for another user")
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), req.Username, *req.TripID, *req.Amount)
	if err != nil {
		h.handleServiceError(w, err, "create booking")
		return
	}

	location := fmt.Sprintf("%s/%d", usecase.BookingsPath, booking.ID)
	utils.ResponseCreated(w, location, "Booking created", booking)
}

// GetBooking handles GET /api/v1/booking/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, ok := h.loadOwned(w, r, bookingID, "get booking")
	if !ok {
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ListBookings handles GET /api/v1/booking/bookings?keyset_id=&amount=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	username, ok := utils.GetUsernameFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	keysetID, err := utils.ParseOptionalInt64(query.Get("keyset_id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid keyset_id", nil)
		return
	}
	size, err := utils.ParseInt(query.Get("amount"), utils.DefaultPageSize)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid amount", nil)
		return
	}

	req := &request.KeysetRequest{KeysetID: keysetID, Amount: size}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	page, err := h.service.GetNextPage(r.Context(), username, req)
	if err != nil {
		h.handleServiceError(w, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", page)
}

// PatchBooking handles PATCH /api/v1/booking/bookings/{id}
func (h *BookingHandler) PatchBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	var req request.PatchBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}
	if req.Command == request.CommandUpdateAmount && req.NewAmount == nil {
		utils.ResponseBadRequest(w, "Validation failed", map[string]string{
			"new_amount": "This field is required",
		})
		return
	}

	if _, ok := h.loadOwned(w, r, bookingID, "patch booking"); !ok {
		return
	}

	switch req.Command {
	case request.CommandCancel:
		cancelled, err := h.service.CancelBooking(r.Context(), bookingID)
		if err != nil {
			h.handleServiceError(w, err, "cancel booking")
			return
		}
		if !cancelled {
			utils.ResponseNotFound(w, fmt.Sprintf("booking %d not found", bookingID))
			return
		}

	case request.CommandUpdateAmount:
		if err := h.service.UpdateAmount(r.Context(), bookingID, *req.NewAmount); err != nil {
			h.handleServiceError(w, err, "update booking amount")
			return
		}
	}

	utils.ResponseNoContent(w)
}

// loadOwned fetches the booking and writes the error response itself when the
// caller may not see it.
func (h *BookingHandler) loadOwned(w http.ResponseWriter, r *http.Request, bookingID int64, operation string) (*response.BookingResponse, bool) {
	username, ok := utils.GetUsernameFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return nil, false
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, operation)
		return nil, false
	}

	if booking.Username != username && !utils.IsAdmin(r.Context()) {
		h.handleServiceError(w, usecase.ErrForbidden, operation)
		return nil, false
	}

	return booking, true
}

// handleServiceError maps usecase errors to HTTP responses
func (h *BookingHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	e, ok := usecase.AsError(err)
	if !ok {
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	switch e.Kind {
	case usecase.KindInvalid:
		h.log.Warn(operation+" rejected",
			zap.Error(err),
			zap.String("code", e.Code))
		utils.ResponseError(w, http.StatusBadRequest, e.Code, e.Message)

	case usecase.KindForbidden:
		h.log.Warn(operation+" failed - forbidden",
			zap.String("operation", operation))
		utils.ResponseError(w, http.StatusForbidden, e.Code, "Not allowed to access this booking")

	case usecase.KindNotFound:
		h.log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseError(w, http.StatusNotFound, e.Code, e.Message)

	case usecase.KindUnavailable:
		h.log.Error(operation+" failed - dependency unavailable",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseError(w, http.StatusServiceUnavailable, e.Code, e.Message)

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
