package main

import (
	"context"
	"errors"
	"os"

	"github.com/angelmondragon/homequote-backend/internal/analytics/router"
	"github.com/angelmondragon/homequote-backend/internal/analytics/worker"
	"github.com/angelmondragon/homequote-backend/internal/analytics/writer"
	"github.com/angelmondragon/homequote-backend/pkg/bigquery"
	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/instance"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/idempotency"
)

func main() {
	rt := bootstrap.Load("analytics-worker")
	ctx, stop := rt.SignalContext()
	defer stop()
	cfg, logg := rt.Config, rt.Logger

	redisClient := rt.Redis(ctx)
	pubsubClient := rt.PubSub(ctx)
	rt.Must(ctx, "analytics subscription", pubsubClient.EnsureSubscription(ctx, cfg.PubSub.AnalyticsSubscription))

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	rt.Must(ctx, "bigquery", err)
	rt.OnClose("bigquery", bqClient.Close)

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL, instance.GetID())
	rt.Must(ctx, "idempotency manager", err)

	sink, err := writer.New(bqClient, writer.Config{Table: cfg.BigQuery.MarketplaceEventsTable})
	rt.Must(ctx, "bigquery writer", err)

	handler, err := router.NewRouter(sink, logg)
	rt.Must(ctx, "analytics router", err)

	service, err := worker.NewService(pubsubClient.AnalyticsSubscription(), handler, claims, logg)
	rt.Must(ctx, "analytics worker", err)

	logg.Info(logg.WithField(ctx, "table", cfg.BigQuery.MarketplaceEventsTable), "analytics_worker.starting")
	runErr := service.Run(ctx)
	_ = rt.Close(context.WithoutCancel(ctx))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "analytics_worker.failed", runErr)
		os.Exit(1)
	}
}
