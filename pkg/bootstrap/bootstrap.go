// Package bootstrap holds the startup sequence every binary shares: load
// .env and config, build the logger, open the backing services and close
// them again in reverse order.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/db"
	"github.com/angelmondragon/homequote-backend/pkg/instance"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/migrate"
	"github.com/angelmondragon/homequote-backend/pkg/pubsub"
	"github.com/angelmondragon/homequote-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime is what a main function works with after startup.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []closer
	exit    func(int)
}

// Load reads .env (optional) and the environment. It exits the process
// when the configuration is invalid.
func Load(service string) *Runtime {
	ctx := context.Background()
	rt := &Runtime{Service: service, Logger: logger.New(logger.Options{ServiceName: service}), exit: os.Exit}

	if err := godotenv.Load(); err != nil {
		rt.Logger.Debug(ctx, "no .env file, using process environment")
	}
	cfg, err := config.Load()
	rt.Must(ctx, "config", err)
	cfg.Service.Kind = service
	rt.Config = cfg

	rt.Logger = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return rt
}

// Must stops the process when a required resource failed to come up.
// Everything opened so far is closed first.
func (rt *Runtime) Must(ctx context.Context, resource string, err error) {
	if err == nil {
		return
	}
	rt.Logger.Error(rt.Logger.WithField(ctx, "resource", resource), "startup.failed", err)
	_ = rt.Close(ctx)
	rt.exit(1)
}

// OnClose registers fn to run on Close. Closers run last-in first-out.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs every registered closer once and returns their combined error.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(ctx, "resource", c.name), "shutdown.close_failed", err)
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errs
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the
// service, env and instance fields for every log line.
func (rt *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Service,
		"instance":    instance.GetID(),
	}), stop
}

// Database opens Postgres (or SQLite in tests) and applies migrations when
// the environment allows it.
func (rt *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	rt.Must(ctx, "database", err)
	rt.OnClose("database", client.Close)
	rt.Must(ctx, "migrations", migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client))
	return client
}

func (rt *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	rt.Must(ctx, "redis", err)
	rt.OnClose("redis", client.Close)
	return client
}

func (rt *Runtime) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	rt.Must(ctx, "pubsub", err)
	rt.OnClose("pubsub", client.Close)
	return client
}
