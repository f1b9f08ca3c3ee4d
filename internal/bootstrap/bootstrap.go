// Package bootstrap wires configuration into the concrete component graph.
// The three binaries (apiserver, worker, folira) share this assembly so their
// dependency wiring cannot drift apart.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/folira/folira/internal/application/engine"
	"github.com/folira/folira/internal/application/rebalance"
	"github.com/folira/folira/internal/config"
	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/database/postgres"
	"github.com/folira/folira/internal/infrastructure/database/postgres/repositories"
	"github.com/folira/folira/internal/infrastructure/database/redis"
	"github.com/folira/folira/internal/infrastructure/marketdata"
	"github.com/folira/folira/internal/infrastructure/messaging/kafka"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/internal/infrastructure/monitoring/prometheus"
	"github.com/folira/folira/internal/interfaces/http/handlers"
)

// App is the assembled component graph.
type App struct {
	Config *config.Config
	Logger logging.Logger

	Postgres *postgres.Connection
	Redis    *redis.Client
	Notifier *kafka.Notifier

	Portfolios portfolio.Repository
	Profiles   portfolio.ProfileReader

	Provider  marketdata.Provider
	Engine    *engine.Service
	Scheduler *rebalance.Scheduler

	Metrics prometheus.Collector
}

// New builds the full graph from a validated config.  Components are brought
// up in dependency order; the first failure tears down what already started.
func New(cfg *config.Config) (*App, error) {
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	app := &App{Config: cfg, Logger: logger}

	app.Metrics, err = prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            "folira",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: metrics: %w", err)
	}

	app.Postgres, err = postgres.NewConnection(postgresConfig(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: postgres: %w", err)
	}

	app.Redis, err = redis.NewClient(redisConfig(cfg.Redis), logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: redis: %w", err)
	}

	app.Notifier, err = kafka.NewNotifier(kafka.NotifierConfig{
		Brokers:      cfg.Kafka.Brokers,
		TopicPrefix:  cfg.Kafka.TopicPrefix,
		MaxRetries:   cfg.Kafka.ProducerRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: kafka: %w", err)
	}

	app.Portfolios = repositories.NewPortfolioRepo(app.Postgres, logger)
	app.Profiles = repositories.NewProfileRepo(app.Postgres, logger)

	cache := redis.NewCache(app.Redis, logger,
		redis.WithPrefix(cfg.Redis.KeyPrefix),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
	)
	app.Provider = marketdata.NewFMPProvider(marketdata.Config{
		BaseURL:          cfg.MarketData.BaseURL,
		APIKey:           cfg.MarketData.APIKey,
		RequestTimeout:   cfg.MarketData.RequestTimeout,
		MaxRetries:       cfg.MarketData.MaxRetries,
		RetryBackoff:     cfg.MarketData.RetryBackoff,
		CacheTTL:         cfg.MarketData.CacheTTL,
		MinDailyVolume:   cfg.MarketData.MinDailyVolume,
		MaxUniverseSize:  cfg.MarketData.MaxUniverseSize,
		MinLiquidSymbols: cfg.MarketData.MinLiquidSymbols,
	}, cache, prometheus.NewMarketDataMetrics(app.Metrics), logger)

	app.Engine = engine.NewService(app.Provider, engineConfig(cfg.Engine),
		prometheus.NewEngineMetrics(app.Metrics), logger)

	app.Scheduler = rebalance.NewScheduler(
		app.Portfolios, app.Profiles, app.Notifier, app.Engine, app.Provider,
		rebalance.Config{
			RebalanceInterval: cfg.Scheduler.RebalanceInterval,
			DrawdownThreshold: cfg.Scheduler.DrawdownThreshold,
			Concurrency:       cfg.Scheduler.Concurrency,
			ScanInterval:      cfg.Scheduler.ScanInterval,
		},
		prometheus.NewSchedulerMetrics(app.Metrics), logger)

	return app, nil
}

// MigrateUp applies pending schema migrations.
func (a *App) MigrateUp() error {
	cfg := postgresConfig(a.Config.Database)
	if cfg.MigrationPath == "" {
		return nil
	}
	return postgres.RunMigrations(postgres.BuildDSN(cfg), cfg.MigrationPath)
}

// Close releases every component that was brought up, in reverse order.
func (a *App) Close() {
	if a.Notifier != nil {
		if err := a.Notifier.Close(); err != nil {
			a.Logger.Warn("closing kafka notifier", logging.Err(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("closing redis client", logging.Err(err))
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.Logger.Warn("closing postgres pool", logging.Err(err))
		}
	}
}

// HealthCheckers returns readiness probes for the wired dependencies.
func (a *App) HealthCheckers() []handlers.HealthChecker {
	return []handlers.HealthChecker{
		namedChecker{name: "postgres", check: a.Postgres.HealthCheck},
		namedChecker{name: "redis", check: a.Redis.Ping},
	}
}

type namedChecker struct {
	name  string
	check func(ctx context.Context) error
}

func (c namedChecker) Name() string                    { return c.name }
func (c namedChecker) Check(ctx context.Context) error { return c.check(ctx) }

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		MigrationPath:   c.MigrationPath,
	}
}

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func engineConfig(c config.EngineConfig) engine.Config {
	return engine.Config{
		MinSeriesPoints:   c.MinSeriesPoints,
		MinEligibleAssets: c.MinEligibleAssets,
		LookbackYears:     c.LookbackYears,
		Allocation: allocation.Config{
			MinWeight:          c.MinWeight,
			MaxWeight:          c.MaxWeight,
			TargetReturnFactor: c.TargetReturnFactor,
			RiskFreeRate:       c.RiskFreeRate,
			MaxConstraintPass:  c.MaxConstraintPass,
		},
	}
}
