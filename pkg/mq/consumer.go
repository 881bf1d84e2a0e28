package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrMalformed marks a delivery that can never be processed; it is dropped
// instead of being requeued.
var ErrMalformed = errors.New("malformed message")

// HandlerFunc processes a single delivery. A nil error acks it.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

type ConsumerConfig struct {
	Exchange     string
	ExchangeKind string
	Queue        string
	Keys         []string
	Prefetch     int
}

type Consumer struct {
	ch    *amqp.Channel
	cfg   ConsumerConfig
	queue string
	log   *zap.Logger
}

func NewConsumer(conn *amqp.Connection, cfg ConsumerConfig, log *zap.Logger) (*Consumer, error) {
	if cfg.ExchangeKind == "" {
		cfg.ExchangeKind = "direct"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, cfg.ExchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range cfg.Keys {
		if err := ch.QueueBind(q.Name, rk, cfg.Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		ch:    ch,
		cfg:   cfg,
		queue: q.Name,
		log:   log.With(zap.String("queue", q.Name)),
	}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.log.Info("Consumer started", zap.Strings("keys", c.cfg.Keys))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("consume %s: delivery channel closed", c.queue)
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle HandlerFunc) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, tableCarrier(d.Headers))
	ctx, span := tracer.Start(ctx, "consume "+d.RoutingKey,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", c.queue)),
	)
	defer span.End()

	err := handle(ctx, d)
	if err != nil {
		span.RecordError(err)
	}
	switch {
	case err == nil:
		c.settle(d, "ack", d.Ack(false))
	case errors.Is(err, ErrMalformed):
		c.log.Warn("Dropping malformed message",
			zap.String("routing_key", d.RoutingKey),
			zap.ByteString("body", d.Body),
			zap.Error(err))
		c.settle(d, "nack", d.Nack(false, false))
	default:
		c.log.Error("Handle message failed, requeueing",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err))
		c.settle(d, "requeue", d.Nack(false, true))
	}
}

// settle logs a failed ack or nack; the broker redelivers unacked messages
// once the channel is gone.
func (c *Consumer) settle(d amqp.Delivery, action string, err error) {
	if err == nil {
		return
	}
	c.log.Warn("Settle delivery failed",
		zap.String("action", action),
		zap.String("routing_key", d.RoutingKey),
		zap.Uint64("delivery_tag", d.DeliveryTag),
		zap.Error(err))
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		return c.ch.Close()
	}
	return nil
}
