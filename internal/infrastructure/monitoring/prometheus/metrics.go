package prometheus

import (
	"strconv"
	"time"
)

// Optimization runs complete in well under a second when the cache is warm;
// the tail buckets cover cold runs that fetch full histories.
var optimizeDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// MarketDataMetrics counts provider cache and retry activity per endpoint.
// It implements marketdata.MetricsCollector.
type MarketDataMetrics struct {
	retries     CounterVec
	cacheHits   CounterVec
	cacheMisses CounterVec
	fallbacks   CounterVec
}

func NewMarketDataMetrics(c Collector) *MarketDataMetrics {
	return &MarketDataMetrics{
		retries: c.RegisterCounter("marketdata_retries_total",
			"Provider request retries by endpoint.", "endpoint"),
		cacheHits: c.RegisterCounter("marketdata_cache_hits_total",
			"Provider cache hits by endpoint.", "endpoint"),
		cacheMisses: c.RegisterCounter("marketdata_cache_misses_total",
			"Provider cache misses by endpoint.", "endpoint"),
		fallbacks: c.RegisterCounter("marketdata_fallbacks_total",
			"Requests served from the static fallback data by endpoint.", "endpoint"),
	}
}

func (m *MarketDataMetrics) IncRetry(endpoint string)    { m.retries.WithLabelValues(endpoint).Inc() }
func (m *MarketDataMetrics) IncCacheHit(endpoint string) { m.cacheHits.WithLabelValues(endpoint).Inc() }
func (m *MarketDataMetrics) IncCacheMiss(endpoint string) {
	m.cacheMisses.WithLabelValues(endpoint).Inc()
}
func (m *MarketDataMetrics) IncFallback(endpoint string) { m.fallbacks.WithLabelValues(endpoint).Inc() }

// EngineMetrics tracks optimization pipeline runs.  It implements
// engine.MetricsCollector.
type EngineMetrics struct {
	optimizeDuration HistogramVec
	symbolsSkipped   CounterVec
}

func NewEngineMetrics(c Collector) *EngineMetrics {
	return &EngineMetrics{
		optimizeDuration: c.RegisterHistogram("engine_optimize_duration_seconds",
			"Time spent on one optimization run, labeled by whether it fell back.",
			optimizeDurationBuckets, "fallback"),
		symbolsSkipped: c.RegisterCounter("engine_symbols_skipped_total",
			"Symbols dropped from a run before allocation, by reason.", "reason"),
	}
}

func (m *EngineMetrics) ObserveOptimizeDuration(d time.Duration, fallback bool) {
	m.optimizeDuration.WithLabelValues(strconv.FormatBool(fallback)).Observe(d.Seconds())
}

func (m *EngineMetrics) IncSymbolSkipped(reason string) {
	m.symbolsSkipped.WithLabelValues(reason).Inc()
}

// SchedulerMetrics tracks the two rebalance paths.  It implements
// rebalance.MetricsCollector.
type SchedulerMetrics struct {
	rebalances    CounterVec
	drawdownScans CounterVec
}

func NewSchedulerMetrics(c Collector) *SchedulerMetrics {
	return &SchedulerMetrics{
		rebalances: c.RegisterCounter("scheduler_rebalances_total",
			"Scheduled rebalance attempts by outcome.", "outcome"),
		drawdownScans: c.RegisterCounter("scheduler_drawdown_scans_total",
			"Drawdown scan results by outcome.", "outcome"),
	}
}

func (m *SchedulerMetrics) IncRebalance(outcome string) {
	m.rebalances.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) IncDrawdownScan(outcome string) {
	m.drawdownScans.WithLabelValues(outcome).Inc()
}
