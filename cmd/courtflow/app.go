package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/courtflow/config"
	"github.com/BaSui01/courtflow/court"
	"github.com/BaSui01/courtflow/internal/cache"
	"github.com/BaSui01/courtflow/internal/database"
	"github.com/BaSui01/courtflow/internal/metrics"
	"github.com/BaSui01/courtflow/internal/migration"
	"github.com/BaSui01/courtflow/internal/telemetry"
	"github.com/BaSui01/courtflow/persistence"
)

// app holds everything one command invocation opens.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	service   *court.Service
	runs      persistence.RunStore
	pool      *database.PoolManager
	cache     *cache.Manager
	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers
}

// newApp wires the service from cfg. Optional collaborators that fail to
// come up (cache, telemetry) are logged and skipped; the audit store is
// required.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	providers, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, a.registry, logger)
	}

	if cfg.Cache.Enabled {
		manager, err := cache.NewManager(cacheConfig(cfg.Cache), logger)
		if err != nil {
			logger.Warn("research cache not available", zap.Error(err))
		} else {
			a.cache = manager
		}
	}

	if err := a.openRunStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	opts := []court.Option{
		court.WithLogger(logger),
		court.WithRunStore(a.runs),
	}
	if a.cache != nil {
		opts = append(opts, court.WithCache(a.cache))
	}
	if a.collector != nil {
		opts = append(opts, court.WithMetrics(a.collector))
	}

	a.service, err = court.NewService(cfg, opts...)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) openRunStore(ctx context.Context) error {
	storeCfg := auditStoreConfig(a.cfg.Audit)

	if storeCfg.Type != persistence.StoreTypeSQL {
		store, err := persistence.NewRunStore(ctx, storeCfg, nil)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		a.runs = store
		return nil
	}

	dbCfg := a.cfg.Database
	if a.cfg.Audit.AutoMigrate {
		if err := migrateUp(ctx, dbCfg, a.logger); err != nil {
			return err
		}
	}

	db, err := database.Open(dbCfg.Driver, dbCfg.DSN(), a.logger)
	if err != nil {
		return err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfig{
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
	}, a.logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return fmt.Errorf("failed to configure database pool: %w", err)
	}
	a.pool = pool
	a.logger.Info("database connected", zap.String("driver", dbCfg.Driver))

	store, err := persistence.NewRunStore(ctx, storeCfg, pool.DB())
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	a.runs = store
	return nil
}

func migrateUp(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	migrator, err := migration.NewMigratorFromDatabaseConfig(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return nil
}

// Close flushes metrics and telemetry and releases every connection.
func (a *app) Close(ctx context.Context) error {
	var errs []error

	if a.pool != nil && a.collector != nil {
		stats := a.pool.GetStats()
		a.collector.RecordDBConnections(a.cfg.Database.Driver, stats.OpenConnections, stats.Idle)
	}
	if a.registry != nil && a.cfg.Metrics.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Metrics.TextfilePath, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}

	if a.runs != nil {
		errs = append(errs, a.runs.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	if a.cache != nil {
		a.logCacheStats(ctx)
		errs = append(errs, a.cache.Close())
	}
	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		errs = append(errs, a.telemetry.Shutdown(shutdownCtx))
	}
	return errors.Join(errs...)
}

func (a *app) logCacheStats(ctx context.Context) {
	stats, err := a.cache.GetStats(ctx)
	if err != nil {
		a.logger.Warn("research cache stats unavailable", zap.Error(err))
		return
	}
	a.logger.Info("research cache stats",
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Int64("keys", stats.Keys),
		zap.Float64("hit_rate", stats.HitRate()),
	)
}

func cacheConfig(cfg config.CacheConfig) cache.Config {
	c := cache.DefaultConfig()
	c.Addr = cfg.Addr
	c.Password = cfg.Password
	c.DB = cfg.DB
	c.KeyPrefix = cfg.KeyPrefix
	c.TLSEnabled = cfg.TLSEnabled
	if cfg.PoolSize > 0 {
		c.PoolSize = cfg.PoolSize
	}
	if cfg.TTL > 0 {
		c.DefaultTTL = cfg.TTL
	}
	// one-shot process
	c.HealthCheckInterval = 0
	return c
}

func auditStoreConfig(cfg config.AuditConfig) persistence.StoreConfig {
	return persistence.StoreConfig{
		Type:    persistence.StoreType(cfg.Type),
		BaseDir: cfg.BaseDir,
		Redis: persistence.RedisStoreConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			KeyPrefix:  cfg.Redis.KeyPrefix,
			TLSEnabled: cfg.Redis.TLSEnabled,
		},
		Mongo: persistence.MongoStoreConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Mongo.Timeout,
		},
	}
}
