package entity

import "math"

const (
	MinBookingAmount = 1
	MaxBookingAmount = math.MaxInt32
)

type Booking struct {
	ID        int64  `db:"id"`
	Username  string `db:"username"`
	TripID    int64  `db:"trip_id"`
	Amount    int32  `db:"amount"`
	Cancelled bool   `db:"cancelled"`
	Timestamps
}

// Active reports whether the booking still holds capacity on its trip.
func (b *Booking) Active() bool {
	return !b.Cancelled
}
