// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"travel-booking/cmd"
	"travel-booking/internal/client"
	"travel-booking/internal/consumer"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/wire"
	"travel-booking/pkg/database"
	"travel-booking/pkg/mq"
	"travel-booking/pkg/obs"
	"travel-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op without an OTLP endpoint)
	shutdownTracer, err := obs.InitTracer(ctx, config.App.Name, config.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Fatal("Failed to init tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.CreateSchema(ctx, db); err != nil {
		logger.Fatal("Failed to create schema", zap.Error(err))
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Trip service client (circuit breaker protected)
	trips := client.NewTripClient(config.Trip, logger)

	// RabbitMQ
	conn, err := mq.Dial(config.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	publisher, err := mq.NewPublisher(conn, mq.BookingExchange)
	if err != nil {
		logger.Fatal("Failed to create publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Wire all dependencies
	app := wire.Wiring(repos, db, trips, publisher, config, logger)

	consumers, err := newEntityConsumers(conn, logger)
	if err != nil {
		logger.Fatal("Failed to create consumers", zap.Error(err))
	}
	handler := consumer.NewEntityConsumer(app.Service.Cache, logger)

	if err := app.Scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start reconciler", zap.Error(err))
	}
	defer app.Scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return cmd.APIServer(gctx, app.Router, config.App.Port, logger)
	})
	for _, c := range consumers {
		g.Go(func() error {
			defer c.Close()
			return c.Run(gctx, handler.Handle)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}
	logger.Info("Application stopped")
}

// newEntityConsumers declares one durable queue per upstream event.
func newEntityConsumers(conn *amqp.Connection, logger *zap.Logger) ([]*mq.Consumer, error) {
	configs := []mq.ConsumerConfig{
		{Exchange: mq.AuthExchange, Queue: "booking." + mq.CreateUserKey, Keys: []string{mq.CreateUserKey}},
		{Exchange: mq.TripExchange, Queue: "booking." + mq.CreateTripKey, Keys: []string{mq.CreateTripKey}},
		{Exchange: mq.TripExchange, Queue: "booking." + mq.DeleteTripKey, Keys: []string{mq.DeleteTripKey}},
	}

	consumers := make([]*mq.Consumer, 0, len(configs))
	for _, cfg := range configs {
		c, err := mq.NewConsumer(conn, cfg, logger)
		if err != nil {
			for _, opened := range consumers {
				_ = opened.Close()
			}
			return nil, err
		}
		consumers = append(consumers, c)
	}
	return consumers, nil
}
