package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"travel-booking/internal/usecase"
	"travel-booking/pkg/mq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EntityConsumer applies user and trip events from the Auth and Trip services
// to the local entity cache.
type EntityConsumer struct {
	cache usecase.EntityCache
	log   *zap.Logger
}

func NewEntityConsumer(cache usecase.EntityCache, log *zap.Logger) *EntityConsumer {
	return &EntityConsumer{
		cache: cache,
		log:   log.With(zap.String("consumer", "entity")),
	}
}

// Handle is an mq.HandlerFunc. Unparseable bodies are reported as
// mq.ErrMalformed so they are dropped rather than redelivered forever.
func (c *EntityConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case mq.CreateUserKey:
		username, err := ParseUsername(d.Body)
		if err != nil {
			return err
		}
		return c.cache.OnUserCreated(ctx, username)

	case mq.CreateTripKey:
		tripID, err := ParseTripID(d.Body)
		if err != nil {
			return err
		}
		return c.cache.OnTripCreated(ctx, tripID)

	case mq.DeleteTripKey:
		tripID, err := ParseTripID(d.Body)
		if err != nil {
			return err
		}
		return c.cache.OnTripCancelled(ctx, tripID)

	default:
		c.log.Debug("Ignoring message", zap.String("routing_key", d.RoutingKey))
		return nil
	}
}

// payload accepts a plain text body or a JSON scalar.
func payload(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err == nil {
			return s
		}
	}
	return string(body)
}

func ParseUsername(body []byte) (string, error) {
	username := strings.TrimSpace(payload(body))
	if username == "" {
		return "", fmt.Errorf("%w: empty username", mq.ErrMalformed)
	}
	return username, nil
}

func ParseTripID(body []byte) (int64, error) {
	raw := payload(body)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid trip id %q", mq.ErrMalformed, raw)
	}
	return id, nil
}
