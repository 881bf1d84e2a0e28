package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges and routing keys shared with the Auth and Trip services.
const (
	AuthExchange    = "travel-agency.auth.dx"
	TripExchange    = "travel-agency.trip.dx"
	BookingExchange = "travel-agency.booking.dx"

	CreateUserKey = "create_user"
	CreateTripKey = "create_trip"
	DeleteTripKey = "delete_trip"
)

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}
