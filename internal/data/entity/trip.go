package entity

// Trip is the local mirror of a Trip service record. Cancelled only ever
// moves from false to true.
type Trip struct {
	ID        int64 `db:"id"`
	Cancelled bool  `db:"cancelled"`
	Timestamps
}
