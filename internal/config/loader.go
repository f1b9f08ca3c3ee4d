// Package config provides configuration loading, defaults, and validation for
// the Folira portfolio engine.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "FOLIRA"

// envBoundKeys lists every configuration key that may be supplied through the
// environment.  Viper only surfaces env-backed values through Unmarshal when
// the key is explicitly bound, so each entry here is bound in newViper.
var envBoundKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password", "database.db_name",
	"database.ssl_mode", "database.max_open_conns", "database.max_idle_conns", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.default_ttl", "redis.key_prefix",
	"kafka.brokers", "kafka.topic_prefix", "kafka.producer_retries",
	"market_data.base_url", "market_data.api_key", "market_data.request_timeout",
	"market_data.max_retries", "market_data.retry_backoff", "market_data.cache_ttl",
	"market_data.min_daily_volume", "market_data.max_universe_size", "market_data.min_liquid_symbols",
	"engine.min_weight", "engine.max_weight", "engine.target_return_factor", "engine.risk_free_rate",
	"engine.min_series_points", "engine.min_eligible_assets", "engine.max_constraint_passes",
	"engine.lookback_years",
	"scheduler.rebalance_interval", "scheduler.drawdown_threshold", "scheduler.concurrency",
	"scheduler.scan_interval",
	"log.level", "log.format",
}

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, FOLIRA_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "database.host"
// resolve to "FOLIRA_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envBoundKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges any FOLIRA_* environment
// variable overrides, applies engine defaults for unset fields, and validates
// the result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FOLIRA_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	FOLIRA_<SECTION>_<FIELD>   e.g.  FOLIRA_DATABASE_HOST, FOLIRA_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file — rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and scan interval;
// callers are responsible for applying only the safe subset of changes at
// runtime.  Allocation-policy fields (EngineConfig) must never be hot-reloaded
// mid-pipeline.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is NOT called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read — errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}
