package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/registry"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/relay"
)

func main() {
	rt := bootstrap.Load("outbox-publisher")
	ctx, stop := rt.SignalContext()
	defer stop()
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	pubsubClient := rt.PubSub(ctx)
	rt.Must(ctx, "lifecycle topic", pubsubClient.EnsureTopic(ctx, cfg.PubSub.LifecycleTopic))

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	rt.Must(ctx, "event registry", err)

	sender := relay.NewTopicSender(pubsubClient.Publisher)
	rt.OnClose("publishers", func() error {
		sender.Stop()
		return nil
	})

	outboxRelay, err := relay.New(relay.Params{
		DB:          dbClient,
		Store:       outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Resolver:    eventRegistry,
		Sender:      sender,
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
		Options: relay.Options{
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
			PollInterval: time.Duration(cfg.Outbox.PollIntervalMS) * time.Millisecond,
		},
	})
	rt.Must(ctx, "outbox relay", err)

	metricsServer := metrics.NewServer(cfg.Outbox.MetricsPort, nil)
	metricsServer.Start(func(err error) { logg.Error(ctx, "metrics.server_stopped", err) })
	rt.OnClose("metrics server", metricsServer.Shutdown)

	logg.Info(ctx, "outbox_publisher.starting")
	runErr := outboxRelay.Run(ctx)
	_ = rt.Close(context.WithoutCancel(ctx))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox_publisher.failed", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox_publisher.stopped")
}
