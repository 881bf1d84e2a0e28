package request

// KeysetRequest is the cursor for the bookings listing. Amount is the page size.
type KeysetRequest struct {
	KeysetID *int64 `json:"keyset_id"`
	Amount   int    `json:"amount" validate:"min=1,max=1000"`
}

// AfterID returns the id the page starts strictly after. Booking ids start at
// 1, so 0 means from the beginning.
func (k KeysetRequest) AfterID() int64 {
	if k.KeysetID == nil {
		return 0
	}
	return *k.KeysetID
}
