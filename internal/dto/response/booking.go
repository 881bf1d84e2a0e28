package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type BookingResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	TripID    int64     `json:"trip_id"`
	Amount    int32     `json:"amount"`
	Cancelled bool      `json:"cancelled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBookingResponse(b *entity.Booking) *BookingResponse {
	return &BookingResponse{
		ID:        b.ID,
		Username:  b.Username,
		TripID:    b.TripID,
		Amount:    b.Amount,
		Cancelled: b.Cancelled,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
