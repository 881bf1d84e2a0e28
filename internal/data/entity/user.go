package entity

import "time"

// User is the local mirror of an Auth service account. Its only identity is
// the username.
type User struct {
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}
