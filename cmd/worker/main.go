package main

import (
	"context"
	"errors"
	"os"

	"github.com/angelmondragon/homequote-backend/internal/notifications"
	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/instance"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/registry"
)

func main() {
	rt := bootstrap.Load("worker")
	ctx, stop := rt.SignalContext()
	defer stop()
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)
	pubsubClient := rt.PubSub(ctx)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	rt.Must(ctx, "event registry", err)

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL, instance.GetID())
	rt.Must(ctx, "idempotency manager", err)

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repository:   notifications.NewRepository(dbClient.DB()),
		Subscription: pubsubClient.NotificationSubscription(),
		Decoder:      eventRegistry,
		Idempotency:  claims,
		Cache:        redisClient,
		Logger:       logg,
	})
	rt.Must(ctx, "notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger: logg,
		Checks: []Check{
			{Name: "database", Ping: dbClient.Ping},
			{Name: "redis", Ping: redisClient.Ping},
			{Name: "notification subscription", Ping: func(ctx context.Context) error {
				return pubsubClient.EnsureSubscription(ctx, cfg.PubSub.NotificationSubscription)
			}},
		},
		Consumer: consumer,
	})
	rt.Must(ctx, "worker service", err)

	logg.Info(ctx, "worker.starting")
	runErr := service.Run(ctx)
	_ = rt.Close(context.WithoutCancel(ctx))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
	logg.Info(ctx, "worker.stopped")
}
