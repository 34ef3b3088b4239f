package main

import (
	"context"
	"errors"
	"fmt"
	"procurement/account"
	"procurement/common"
	"procurement/config"
	"procurement/domain"
	"procurement/idgen"
	"procurement/infra/tracing"
	"procurement/persistence"
	"procurement/requests"
	"procurement/servehttp"
	"procurement/session"
	"procurement/tables"
	"procurement/tables/postgrest"
	"procurement/tables/redisfeed"
	"procurement/tables/sqltable"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// runtime holds what the commands share: the table client, the session slot and
// everything that must be released on exit.
type runtime struct {
	cfg    *config.Config
	client tables.Client
	slot   session.Slot
	ds     *persistence.DataSourceManager

	closers []func() error
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logrus.WithError(err).Warn("failed to release resource")
		}
	}
}

func bootstrap() (*runtime, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	r := &runtime{cfg: cfg}

	logCloser, err := common.SetupLogging(common.LogOptions{
		Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB, MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	r.closers = append(r.closers, logCloser.Close)

	tracingCloser, err := tracing.Setup(common.ServiceName, cfg.Tracing.Agent, cfg.Tracing.Enabled)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	r.closers = append(r.closers, tracingCloser.Close)

	if err := r.openBackend(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *runtime) openBackend() error {
	cfg := r.cfg

	var rdb redis.UniversalClient
	if cfg.Feed.Kind == config.FeedRedis || cfg.Session.Kind == config.SessionRedis {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Username: cfg.Redis.Username, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		r.closers = append(r.closers, client.Close)
		rdb = client
	}

	var feed tables.Feed = tables.NewLocalFeed()
	if cfg.Feed.Kind == config.FeedRedis {
		feed = redisfeed.NewWithClient(rdb, cfg.Redis.Prefix)
	}

	switch cfg.Session.Kind {
	case config.SessionRedis:
		r.slot = &session.RedisSlot{Client: rdb}
	default:
		r.slot = &session.FileSlot{Dir: cfg.Session.Dir}
	}

	switch cfg.Backend.Kind {
	case config.BackendSQL:
		dbConfig := &persistence.DatabaseConfig{DriverType: cfg.Database.Driver, DriverArgs: cfg.Database.DSN}
		if dbConfig.DriverType == "mysql" {
			if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
				return fmt.Errorf("failed to prepare database: %w", err)
			}
		}
		r.ds = &persistence.DataSourceManager{DatabaseConfig: dbConfig}
		if err := r.ds.Start(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		r.closers = append(r.closers, func() error { r.ds.Stop(); return nil })
		r.client = sqltable.New(r.ds, feed)
	case config.BackendPostgrest:
		r.client = postgrest.New(postgrest.Config{URL: cfg.Postgrest.URL, APIKey: cfg.Postgrest.APIKey, Timeout: cfg.Postgrest.Timeout}, feed)
	default:
		logrus.Warn("memory backend in use, data is lost on exit")
		r.client = tables.NewMemoryClient(feed, domain.TableUsers, domain.TableSectors,
			domain.TableRequests, domain.TableFormFields, domain.TableStatuses)
	}
	logrus.WithField("backend", cfg.Backend.Kind).WithField("feed", cfg.Feed.Kind).Info("backend ready")
	return nil
}

func (r *runtime) services(ctx context.Context, seedRequests bool) (*account.Service, *requests.Service, error) {
	ids, err := idgen.NewGenerator(0)
	if err != nil {
		return nil, nil, err
	}
	accounts := account.NewService(ctx, r.client, r.slot, account.Options{IDs: ids, Seed: r.cfg.Seed.Enabled})
	reqs := requests.NewService(r.client, requests.Options{IDs: ids, Seed: r.cfg.Seed.Enabled, SeedRequests: seedRequests})
	return accounts, reqs, nil
}

func runServe(ctx context.Context) error {
	r, err := bootstrap()
	if err != nil {
		return err
	}
	defer r.Close()

	accounts, reqs, err := r.services(ctx, r.cfg.Seed.Requests)
	if err != nil {
		return err
	}
	defer accounts.Close()
	defer reqs.Close()

	// the API stays up while the backend is unreachable or not set up, /v1/status reports why
	if err := accounts.Start(ctx); err != nil {
		logrus.WithError(err).Warn("users and sectors are not loaded")
	}
	if err := reqs.Start(ctx); err != nil {
		logrus.WithError(err).Warn("requests and configuration are not loaded")
	}

	if !config.IsLoopback(r.cfg.Server.Addr) {
		logrus.WithField("addr", r.cfg.Server.Addr).
			Warn("API is reachable from other hosts and every caller shares the signed-in session")
	}
	return servehttp.StartHTTPServer(r.cfg.Server.Addr, servehttp.NewEngine(accounts, reqs))
}

func runMigrate(ctx context.Context) error {
	r, err := bootstrap()
	if err != nil {
		return err
	}
	defer r.Close()

	if r.ds == nil {
		return errors.New("migrate needs backend.kind sql, the other backends manage their own schema")
	}
	if err := r.ds.Migrate(ctx); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logrus.WithField("dialect", r.ds.Dialect()).Info("database migrated")
	return nil
}

func runSeed(ctx context.Context, withRequests bool) error {
	r, err := bootstrap()
	if err != nil {
		return err
	}
	defer r.Close()
	r.cfg.Seed.Enabled = true

	accounts, reqs, err := r.services(ctx, withRequests)
	if err != nil {
		return err
	}
	defer accounts.Close()
	defer reqs.Close()

	return errors.Join(accounts.Load(ctx), reqs.Load(ctx))
}
