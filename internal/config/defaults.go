package config

import "time"

// Default value constants.  Engine defaults reproduce the production
// allocation policy exactly; see EngineConfig for the caveat on overriding.
const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost         = "localhost"
	DefaultDBPort         = 5432
	DefaultDBName         = "folira"
	DefaultDBSSLMode      = "disable"
	DefaultDBMaxOpenConns = 25
	DefaultDBMaxIdleConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "folira:"
	DefaultRedisTTL       = 15 * time.Minute

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaTopicPrefix = "portfolio"

	DefaultMarketDataBaseURL  = "https://financialmodelingprep.com/api/v3"
	DefaultMarketDataTimeout  = 10 * time.Second
	DefaultMarketDataRetries  = 3
	DefaultMarketDataBackoff  = time.Second
	DefaultMarketDataCacheTTL = 15 * time.Minute
	DefaultMinDailyVolume     = 10_000_000
	DefaultMaxUniverseSize    = 80
	DefaultMinLiquidSymbols   = 10

	DefaultMinWeight          = 0.05
	DefaultMaxWeight          = 0.30
	DefaultTargetReturnFactor = 0.8
	DefaultRiskFreeRate       = 0.02
	DefaultMinSeriesPoints    = 30
	DefaultMinEligibleAssets  = 5
	DefaultMaxConstraintPass  = 10
	DefaultLookbackYears      = 5

	DefaultRebalanceInterval = 6 * 30 * 24 * time.Hour // six months, calendar-agnostic
	DefaultDrawdownThreshold = 0.15
	DefaultSchedulerWorkers  = 8
	DefaultScanInterval      = time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5 * time.Minute
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultKafkaTopicPrefix
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.MarketData.BaseURL == "" {
		cfg.MarketData.BaseURL = DefaultMarketDataBaseURL
	}
	if cfg.MarketData.RequestTimeout == 0 {
		cfg.MarketData.RequestTimeout = DefaultMarketDataTimeout
	}
	if cfg.MarketData.MaxRetries == 0 {
		cfg.MarketData.MaxRetries = DefaultMarketDataRetries
	}
	if cfg.MarketData.RetryBackoff == 0 {
		cfg.MarketData.RetryBackoff = DefaultMarketDataBackoff
	}
	if cfg.MarketData.CacheTTL == 0 {
		cfg.MarketData.CacheTTL = DefaultMarketDataCacheTTL
	}
	if cfg.MarketData.MinDailyVolume == 0 {
		cfg.MarketData.MinDailyVolume = DefaultMinDailyVolume
	}
	if cfg.MarketData.MaxUniverseSize == 0 {
		cfg.MarketData.MaxUniverseSize = DefaultMaxUniverseSize
	}
	if cfg.MarketData.MinLiquidSymbols == 0 {
		cfg.MarketData.MinLiquidSymbols = DefaultMinLiquidSymbols
	}

	if cfg.Engine.MinWeight == 0 {
		cfg.Engine.MinWeight = DefaultMinWeight
	}
	if cfg.Engine.MaxWeight == 0 {
		cfg.Engine.MaxWeight = DefaultMaxWeight
	}
	if cfg.Engine.TargetReturnFactor == 0 {
		cfg.Engine.TargetReturnFactor = DefaultTargetReturnFactor
	}
	if cfg.Engine.RiskFreeRate == 0 {
		cfg.Engine.RiskFreeRate = DefaultRiskFreeRate
	}
	if cfg.Engine.MinSeriesPoints == 0 {
		cfg.Engine.MinSeriesPoints = DefaultMinSeriesPoints
	}
	if cfg.Engine.MinEligibleAssets == 0 {
		cfg.Engine.MinEligibleAssets = DefaultMinEligibleAssets
	}
	if cfg.Engine.MaxConstraintPass == 0 {
		cfg.Engine.MaxConstraintPass = DefaultMaxConstraintPass
	}
	if cfg.Engine.LookbackYears == 0 {
		cfg.Engine.LookbackYears = DefaultLookbackYears
	}

	if cfg.Scheduler.RebalanceInterval == 0 {
		cfg.Scheduler.RebalanceInterval = DefaultRebalanceInterval
	}
	if cfg.Scheduler.DrawdownThreshold == 0 {
		cfg.Scheduler.DrawdownThreshold = DefaultDrawdownThreshold
	}
	if cfg.Scheduler.Concurrency == 0 {
		cfg.Scheduler.Concurrency = DefaultSchedulerWorkers
	}
	if cfg.Scheduler.ScanInterval == 0 {
		cfg.Scheduler.ScanInterval = DefaultScanInterval
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
