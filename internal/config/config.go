// Package config defines all configuration structures for the Folira portfolio
// engine.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the market-data cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer parameters for the notification sink.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
}

// MarketDataConfig holds parameters for the external price provider.
type MarketDataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	// MinDailyVolume is the liquidity filter threshold applied to the
	// candidate universe.
	MinDailyVolume float64 `mapstructure:"min_daily_volume"`
	// MaxUniverseSize caps how many liquid symbols a pipeline run considers.
	MaxUniverseSize int `mapstructure:"max_universe_size"`
	// MinLiquidSymbols is the floor below which the provider falls back to
	// the static universe.
	MinLiquidSymbols int `mapstructure:"min_liquid_symbols"`
}

// EngineConfig holds the allocation algorithm parameters.  The defaults mirror
// the production policy; changing them changes every portfolio built after the
// change, so treat overrides as product decisions, not tuning knobs.
type EngineConfig struct {
	MinWeight          float64 `mapstructure:"min_weight"`
	MaxWeight          float64 `mapstructure:"max_weight"`
	TargetReturnFactor float64 `mapstructure:"target_return_factor"`
	RiskFreeRate       float64 `mapstructure:"risk_free_rate"`
	MinSeriesPoints    int     `mapstructure:"min_series_points"`
	MinEligibleAssets  int     `mapstructure:"min_eligible_assets"`
	MaxConstraintPass  int     `mapstructure:"max_constraint_passes"`
	// LookbackYears is the price-history window fed to the estimator.
	LookbackYears int `mapstructure:"lookback_years"`
}

// SchedulerConfig holds rebalance-worker parameters.
type SchedulerConfig struct {
	// RebalanceInterval is how far in the future the next rebalance date is
	// set after a successful rebalance.
	RebalanceInterval time.Duration `mapstructure:"rebalance_interval"`
	// DrawdownThreshold is the fractional loss (e.g. 0.15) that triggers a
	// drawdown alert.
	DrawdownThreshold float64 `mapstructure:"drawdown_threshold"`
	// Concurrency bounds how many portfolios are processed in parallel per
	// batch run.
	Concurrency int `mapstructure:"concurrency"`
	// ScanInterval is how often the worker polls for due portfolios.
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Config is the root configuration structure for the engine.  Every
// infrastructure component and application service reads its settings from the
// relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Log        LogConfig        `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host must not be empty")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr must not be empty")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must not be empty")
	}

	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("config: market_data.base_url must not be empty")
	}
	if c.MarketData.MaxRetries < 1 {
		return fmt.Errorf("config: market_data.max_retries must be at least 1")
	}

	if c.Engine.MinWeight <= 0 || c.Engine.MinWeight >= 1 {
		return fmt.Errorf("config: engine.min_weight %.4f must be in (0, 1)", c.Engine.MinWeight)
	}
	if c.Engine.MaxWeight <= c.Engine.MinWeight || c.Engine.MaxWeight > 1 {
		return fmt.Errorf("config: engine.max_weight %.4f must be in (min_weight, 1]", c.Engine.MaxWeight)
	}
	if c.Engine.TargetReturnFactor <= 0 || c.Engine.TargetReturnFactor > 1 {
		return fmt.Errorf("config: engine.target_return_factor %.4f must be in (0, 1]", c.Engine.TargetReturnFactor)
	}
	if c.Engine.MinSeriesPoints < 2 {
		return fmt.Errorf("config: engine.min_series_points must be at least 2")
	}
	if c.Engine.MinEligibleAssets < 1 {
		return fmt.Errorf("config: engine.min_eligible_assets must be at least 1")
	}
	if c.Engine.MaxConstraintPass < 1 {
		return fmt.Errorf("config: engine.max_constraint_passes must be at least 1")
	}
	// An allocation is infeasible when every asset at MaxWeight cannot reach
	// a total of 1.
	if float64(c.Engine.MinEligibleAssets)*c.Engine.MaxWeight < 1 {
		return fmt.Errorf("config: engine.min_eligible_assets × max_weight = %.2f < 1; constraints are unsatisfiable",
			float64(c.Engine.MinEligibleAssets)*c.Engine.MaxWeight)
	}

	if c.Scheduler.DrawdownThreshold <= 0 || c.Scheduler.DrawdownThreshold >= 1 {
		return fmt.Errorf("config: scheduler.drawdown_threshold %.4f must be in (0, 1)", c.Scheduler.DrawdownThreshold)
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("config: scheduler.concurrency must be at least 1")
	}
	if c.Scheduler.RebalanceInterval <= 0 {
		return fmt.Errorf("config: scheduler.rebalance_interval must be positive")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid", c.Log.Level)
	}

	return nil
}
