package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/homequote-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/homequote-backend/api/controllers/analytics"
	"github.com/angelmondragon/homequote-backend/api/middleware"
	"github.com/angelmondragon/homequote-backend/internal/analytics"
	"github.com/angelmondragon/homequote-backend/internal/auth"
	"github.com/angelmondragon/homequote-backend/internal/categorize"
	"github.com/angelmondragon/homequote-backend/internal/media"
	"github.com/angelmondragon/homequote-backend/internal/notifications"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	"github.com/angelmondragon/homequote-backend/internal/updates"
	"github.com/angelmondragon/homequote-backend/internal/users"
	"github.com/angelmondragon/homequote-backend/pkg/auth/session"
	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, uuid.UUID, string) (string, string, error)
	Revoke(context.Context, string) error
}

type redisStore interface {
	middleware.ReplayStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

type dlqLister interface {
	List(ctx context.Context, eventType enums.OutboxEventType, limit int) ([]models.OutboxDLQ, error)
}

// Dependencies lists everything the API router hands to its controllers.
type Dependencies struct {
	Redis         redisStore
	Sessions      sessionManager
	Readiness     map[string]controllers.Pinger
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.AdminRegisterService
	Profiles      users.ProfileService
	Requirements  requirements.Service
	Categorize    categorize.Service
	Notifications notifications.Service
	Media         media.Service
	Updates       updates.Service
	Analytics     analytics.Service
	DeadLetters   dlqLister
}

// NewRouter builds the HTTP surface of the marketplace API.
func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	loginLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		middleware.PerIP(cfg.AuthRateLimit.LoginIPLimit),
		middleware.PerEmail(cfg.AuthRateLimit.LoginEmailLimit),
	), deps.Redis, logg)
	registerLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		middleware.PerIP(cfg.AuthRateLimit.RegisterIPLimit),
		middleware.PerEmail(cfg.AuthRateLimit.RegisterEmailLimit),
	), deps.Redis, logg)
	requirementLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"requirements",
		cfg.WriteLimit.Window,
		middleware.PerUser(cfg.WriteLimit.RequirementsPerWindow),
	), deps.Redis, logg)
	quotationLimit := middleware.RateLimit(middleware.NewRateLimitPolicy(
		"quotations",
		cfg.WriteLimit.Window,
		middleware.PerUser(cfg.WriteLimit.QuotationsPerWindow),
	), deps.Redis, logg)

	replay := middleware.Idempotent(deps.Redis, middleware.ReplayTTL, logg)
	acceptReplay := middleware.Idempotent(deps.Redis, middleware.AcceptReplayTTL, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimit).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(
			registerLimit,
			replay,
		).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
	})

	if !cfg.App.IsProd() {
		r.With(registerLimit).
			Post("/api/admin/v1/auth/register", controllers.AdminAuthRegister(deps.AdminRegister, deps.Auth, cfg, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		homeowner := middleware.RequireRole(logg, enums.RoleHomeowner)
		shopOwner := middleware.RequireRole(logg, enums.RoleShopOwner)
		acceptor := middleware.RequireRole(logg, enums.RoleHomeowner, enums.RoleAdmin)
		admin := middleware.RequireRole(logg, enums.RoleAdmin)

		r.Get("/me", controllers.GetMe(deps.Profiles, logg))
		r.Patch("/me", controllers.UpdateMe(deps.Profiles, logg))

		r.Route("/requirements", func(r chi.Router) {
			r.With(homeowner, requirementLimit, replay).Post("/", controllers.CreateRequirement(deps.Requirements, logg))
			r.Get("/", controllers.ListOpenRequirements(deps.Requirements, logg))
			r.With(homeowner).Get("/mine", controllers.ListMyRequirements(deps.Requirements, logg))
			r.Route("/{requirementId}", func(r chi.Router) {
				r.Get("/", controllers.GetRequirement(deps.Requirements, logg))
				r.Get("/quotations", controllers.ListRequirementQuotations(deps.Requirements, logg))
				r.With(shopOwner, quotationLimit, replay).Post("/quotations", controllers.SubmitQuotation(deps.Requirements, logg))
				r.With(acceptor, acceptReplay).Post("/accept", controllers.AcceptQuotation(deps.Requirements, logg))
				r.Get("/contact", controllers.RequirementContact(deps.Requirements, logg))
			})
		})

		r.Route("/quotations", func(r chi.Router) {
			r.Use(shopOwner)
			r.Get("/mine", controllers.ListMyQuotations(deps.Requirements, logg))
			r.Post("/categorize", controllers.CategorizeTerms(deps.Categorize, logg))
			r.With(quotationLimit, replay).Patch("/{quotationId}", controllers.EditQuotation(deps.Requirements, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.With(replay).Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.With(replay).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.With(replay).Post("/media/presign", controllers.MediaPresign(deps.Media, logg))

		r.Route("/updates", func(r chi.Router) {
			r.Get("/", controllers.ListUpdates(deps.Updates, logg))
			r.With(replay).Post("/", controllers.CreateUpdate(deps.Updates, logg))
			r.Delete("/{updateId}", controllers.DeleteUpdate(deps.Updates, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/overview", controllers.AdminOverview(deps.Requirements, logg))
			r.Get("/outbox/dlq", controllers.AdminListDLQ(deps.DeadLetters, logg))
			r.Get("/analytics/marketplace", analyticscontrollers.MarketplaceAnalytics(deps.Analytics, logg))
		})
	})

	return r
}
