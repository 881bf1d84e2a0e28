package request

const (
	CommandCancel       = "CANCEL"
	CommandUpdateAmount = "UPDATE_AMOUNT"
)

// CreateBookingRequest carries optional pointers so that absent and zero can
// be told apart. id and cancelled are server-assigned and must not be sent.
type CreateBookingRequest struct {
	ID        *int64 `json:"id" validate:"isdefault"`
	Username  string `json:"username" validate:"required"`
	TripID    *int64 `json:"trip_id" validate:"required,min=1"`
	Amount    *int64 `json:"amount" validate:"required"`
	Cancelled *bool  `json:"cancelled" validate:"isdefault"`
}

type PatchBookingRequest struct {
	Command   string `json:"command" validate:"required,oneof=CANCEL UPDATE_AMOUNT"`
	NewAmount *int64 `json:"new_amount"`
}
