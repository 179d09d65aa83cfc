package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/homequote-backend/api/controllers"
	"github.com/angelmondragon/homequote-backend/api/routes"
	"github.com/angelmondragon/homequote-backend/internal/analytics"
	"github.com/angelmondragon/homequote-backend/internal/auth"
	"github.com/angelmondragon/homequote-backend/internal/categorize"
	"github.com/angelmondragon/homequote-backend/internal/media"
	"github.com/angelmondragon/homequote-backend/internal/notifications"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	"github.com/angelmondragon/homequote-backend/internal/updates"
	"github.com/angelmondragon/homequote-backend/internal/users"
	"github.com/angelmondragon/homequote-backend/pkg/auth/session"
	"github.com/angelmondragon/homequote-backend/pkg/bigquery"
	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/dynamo"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/storage/gcs"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	rt := bootstrap.Load(serviceName)
	ctx, stop := rt.SignalContext()
	defer stop()
	cfg, logg := rt.Config, rt.Logger

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	rt.Must(ctx, "gcs", err)
	rt.OnClose("gcs", gcsClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	rt.Must(ctx, "session manager", err)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	lifecycleMetrics := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	rt.Must(ctx, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
	})
	rt.Must(ctx, "register service", err)

	adminRegisterService, err := auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
	})
	rt.Must(ctx, "admin register service", err)

	profileService, err := users.NewProfileService(userRepo)
	rt.Must(ctx, "profile service", err)

	limits, err := requirements.LimitsFromConfig(cfg.Marketplace)
	rt.Must(ctx, "marketplace limits", err)

	requirementsService, err := requirements.NewService(requirements.ServiceParams{
		Repo:           requirements.NewRepository(dbClient.DB()),
		Users:          userRepo,
		Tx:             dbClient,
		Outbox:         outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:        lifecycleMetrics,
		Limits:         limits,
		AdminCanAccept: cfg.FeatureFlags.AdminCanAccept,
	})
	rt.Must(ctx, "requirements service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), redisClient)
	rt.Must(ctx, "notifications service", err)

	mediaService, err := media.NewService(media.ServiceParams{
		GCS:            gcsClient,
		Bucket:         cfg.GCS.BucketName,
		UploadTTL:      cfg.GCS.UploadURLExpiry,
		MaxUploadBytes: cfg.Media.MaxUploadBytes(),
	})
	rt.Must(ctx, "media service", err)

	categorizeParams := categorize.ServiceParams{
		Timeout: cfg.GenAI.Timeout,
		Logger:  logg,
	}
	if classifier := buildClassifier(ctx, cfg, logg); classifier != nil {
		categorizeParams.Model = classifier
	}
	categorizeService := categorize.NewService(categorizeParams)

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	var updatesService updates.Service
	if cfg.FeatureFlags.UpdatesFeed {
		dynamoClient, err := dynamo.NewClient(ctx, cfg.DynamoDB, logg)
		rt.Must(ctx, "dynamodb", err)
		updatesRepo, err := updates.NewRepositoryFromClient(dynamoClient)
		rt.Must(ctx, "updates repository", err)
		updatesService, err = updates.NewService(updatesRepo, nil)
		rt.Must(ctx, "updates service", err)
		readiness["dynamodb"] = dynamoClient
	}

	var analyticsService analytics.Service
	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "bigquery unavailable, admin analytics disabled")
	} else {
		rt.OnClose("bigquery", bqClient.Close)
		analyticsService, err = analytics.NewService(bqClient, cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.MarketplaceEventsTable, redisClient, logg)
		rt.Must(ctx, "analytics service", err)
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Redis:         redisClient,
		Sessions:      sessionManager,
		Readiness:     readiness,
		Gatherer:      prometheus.DefaultGatherer,
		HTTPMetrics:   httpMetrics,
		Auth:          authService,
		Register:      registerService,
		AdminRegister: adminRegisterService,
		Profiles:      profileService,
		Requirements:  requirementsService,
		Categorize:    categorizeService,
		Notifications: notificationsService,
		Media:         mediaService,
		Updates:       updatesService,
		Analytics:     analyticsService,
		DeadLetters:   outbox.NewDLQRepository(dbClient.DB()),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	logg.Info(logg.WithField(ctx, "addr", server.Addr), "api.listening")

	exitCode := 0
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api.serve_failed", err)
			exitCode = 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api.shutdown_failed", err)
		}
		cancel()
	}
	_ = rt.Close(context.WithoutCancel(ctx))
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	logg.Info(ctx, "api.stopped")
}

// buildClassifier returns the hosted model when configured. Failures leave
// categorization on keywords only.
func buildClassifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) *categorize.GenAIClassifier {
	if !cfg.GenAI.Enabled() {
		return nil
	}
	classifier, err := categorize.NewGenAIClassifier(ctx, cfg.GenAI)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "genai client unavailable, using keyword categorization")
		return nil
	}
	return classifier
}
