// Package app wires every component this module owns — config,
// logging, infrastructure clients, the schema registry, the record
// pipeline, the tenant manager, the pattern cache, and the HTTP server
// — into a single runnable process. Grounded on the teacher's
// internal/app.Run (env load → logger → db/redis → global migrations →
// metrics registry → mode dispatch), trimmed of the on-call product's
// session/OIDC/PAT auth stack and its Slack/Mattermost/Twilio
// integrations, which have no counterpart here (see DESIGN.md).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ianzepp/monk-api/internal/config"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/internal/httpapi"
	"github.com/ianzepp/monk-api/internal/platform"
	"github.com/ianzepp/monk-api/internal/seed"
	"github.com/ianzepp/monk-api/internal/telemetry"
	"github.com/ianzepp/monk-api/pkg/querycache"
	"github.com/ianzepp/monk-api/pkg/record"
	"github.com/ianzepp/monk-api/pkg/schema"
	"github.com/ianzepp/monk-api/pkg/tenant"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// infra bundles every component Run and Seed both need: infrastructure
// clients plus the assembled domain layer (schema registry, pattern
// cache, record pipeline, tenant manager).
type infra struct {
	logger     *slog.Logger
	db         *pgxpool.Pool
	rdb        *redis.Client
	metricsReg *prometheus.Registry

	registry       *schema.Registry
	pipeline       *record.Pipeline
	manager        *tenant.Manager
	postgres       *dbadapter.PostgresFactory
	sqlite         *dbadapter.SQLiteFactory
	adapterTimeout time.Duration
}

// bootstrap connects to infrastructure, runs global migrations, and
// assembles the domain layer shared by every run mode.
func bootstrap(ctx context.Context, cfg *config.Config) (*infra, error) {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	schemaCacheTTL, err := time.ParseDuration(cfg.SchemaCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("parsing schema cache ttl %q: %w", cfg.SchemaCacheTTL, err)
	}
	patternCacheTTL, err := time.ParseDuration(cfg.PatternCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("parsing pattern cache ttl %q: %w", cfg.PatternCacheTTL, err)
	}
	adapterTimeout, err := time.ParseDuration(cfg.AdapterTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing adapter timeout %q: %w", cfg.AdapterTimeout, err)
	}

	registry := schema.NewRegistry(schemaCacheTTL, cfg.ModelNameReuseAllowed)

	patternCache, err := querycache.New(cfg.PatternCacheMaxEntries, patternCacheTTL, rdb, logger)
	if err != nil {
		return nil, fmt.Errorf("building pattern cache: %w", err)
	}

	observers := record.NewObserverRegistry()
	observers.Register("*", record.PhaseCreatePost, record.NewHistoryObserver())
	observers.Register("*", record.PhaseUpdatePost, record.NewHistoryObserver())
	observers.Register("*", record.PhaseDeletePost, record.NewHistoryObserver())
	invalidation := record.NewInvalidationObserver(registry, patternCache)
	observers.Register("*", record.PhaseCreatePost, invalidation)
	observers.Register("*", record.PhaseUpdatePost, invalidation)
	observers.Register("*", record.PhaseDeletePost, invalidation)

	pipeline := record.NewPipeline(registry, observers, logger)

	postgresFactory := dbadapter.NewPostgresFactory(db)
	sqliteFactory := dbadapter.NewSQLiteFactory(cfg.TenantSQLiteDir)

	manager := tenant.NewManager(db, cfg.DatabaseURL, cfg.MigrationsTenantDir, cfg.TenantSQLiteDir, logger)
	if err := manager.Initialize(cfg.DatabaseURL, cfg.MigrationsGlobalDir); err != nil {
		return nil, fmt.Errorf("initializing tenant manager: %w", err)
	}
	logger.Info("global migrations applied")

	return &infra{
		logger: logger, db: db, rdb: rdb, metricsReg: metricsReg,
		registry: registry, pipeline: pipeline, manager: manager,
		postgres: postgresFactory, sqlite: sqliteFactory, adapterTimeout: adapterTimeout,
	}, nil
}

func (i *infra) Close() {
	if err := i.rdb.Close(); err != nil {
		i.logger.Error("closing redis", "error", err)
	}
	i.db.Close()
}

// Run is the process entry point: given a loaded config, connect to
// infrastructure, assemble the domain components, and serve HTTP until
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	i, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer i.Close()
	i.logger.Info("starting monk-api", "listen", cfg.ListenAddr())

	srv := httpapi.NewServer(httpapi.Deps{
		Config:         cfg,
		Logger:         i.logger,
		DB:             i.db,
		Redis:          i.rdb,
		MetricsReg:     i.metricsReg,
		Postgres:       i.postgres,
		SQLite:         i.sqlite,
		Registry:       i.registry,
		Pipeline:       i.pipeline,
		Manager:        i.manager,
		AdapterTimeout: i.adapterTimeout,
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		i.logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		i.logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Seed provisions the development tenant and its demo data (internal/seed)
// using the same infrastructure bootstrap as Run, then exits.
func Seed(ctx context.Context, cfg *config.Config) error {
	i, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer i.Close()
	return seed.Run(ctx, i.manager, i.postgres, i.logger)
}
