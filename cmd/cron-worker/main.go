package main

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/homequote-backend/internal/cron"
	"github.com/angelmondragon/homequote-backend/internal/notifications"
	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
)

func main() {
	rt := bootstrap.Load("cron-worker")
	ctx, stop := rt.SignalContext()
	defer stop()
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	rt.Must(ctx, "cron lock", err)

	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    notifications.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Cron.NotificationRetentionDays,
	})
	rt.Must(ctx, "notification cleanup job", err)

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Cron.OutboxRetentionDays,
		MinAttempts:   cfg.Outbox.MaxAttempts,
	})
	rt.Must(ctx, "outbox retention job", err)

	jobs, err := cron.NewRegistry(notificationCleanup, outboxRetention)
	rt.Must(ctx, "cron registry", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	rt.Must(ctx, "cron service", err)

	metricsServer := metrics.NewServer(cfg.Cron.MetricsPort, nil)
	metricsServer.Start(func(err error) { logg.Error(ctx, "metrics.server_stopped", err) })
	rt.OnClose("metrics server", metricsServer.Shutdown)

	logg.Info(logg.WithField(ctx, "jobs", jobs.Len()), "cron_worker.starting")
	runErr := service.Run(ctx)
	_ = rt.Close(context.WithoutCancel(ctx))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "cron_worker.failed", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "cron_worker.stopped")
}

// lockName scopes the cycle lock per environment so staging and prod can
// share a Redis without blocking each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
