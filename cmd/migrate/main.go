package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/homequote-backend/pkg/bootstrap"
	"github.com/angelmondragon/homequote-backend/pkg/db"
	"github.com/angelmondragon/homequote-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up | down | status | version | create | validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// File-only commands never touch the database.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("-name is required")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	case "up", "down", "status":
	case "version":
		if opts.version == "" {
			return errors.New("-version is required")
		}
	default:
		return fmt.Errorf("unknown command %q", opts.cmd)
	}

	rt := bootstrap.Load("migrate")
	cfg, logg := rt.Config, rt.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    opts.cmd,
		"dir":    opts.dir,
		"driver": cfg.DB.Driver,
	})
	defer func() { _ = rt.Close(ctx) }()

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	rt.OnClose("database", client.Close)
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate.running")
	if opts.cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, cfg.DB.Driver, opts.dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, cfg.DB.Driver, opts.dir, opts.cmd)
}
