// Package marketdata implements the external price-data boundary: an
// FMP-style REST client with bounded retries, an injected TTL cache, and the
// liquidity screen that produces the investable ETF universe.
package marketdata

import (
	"context"
	"time"

	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/pkg/types/common"
)

// ETF is one listing from the provider's instrument catalogue.
type ETF struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Exchange string  `json:"exchangeShortName"`
}

// Quote is a delayed market quote for one symbol.
type Quote struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	Volume            float64 `json:"volume"`
}

// Provider is the market-data boundary the engine and scheduler depend on.
type Provider interface {
	// HistoricalPrices returns the chronological daily closes for symbol in
	// [from, to].
	HistoricalPrices(ctx context.Context, symbol string, from, to common.Date) (*asset.Series, error)
	// LiquidUniverse returns the investable ETF set after the liquidity
	// screen, at most the configured universe cap.
	LiquidUniverse(ctx context.Context) ([]ETF, error)
	// Quotes returns current quotes keyed by symbol.  Symbols the provider
	// cannot price fall back to the static quote table.
	Quotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// Cache is the injected quote/price cache.  The redis adapter implements it;
// tests substitute an in-memory map.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports whether
	// the key was present and fresh.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NopCache satisfies Cache without storing anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

// MetricsCollector receives provider-level counters.  The prometheus adapter
// implements it; a nop is used when monitoring is off.
type MetricsCollector interface {
	IncRetry(endpoint string)
	IncCacheHit(endpoint string)
	IncCacheMiss(endpoint string)
	IncFallback(endpoint string)
}

type nopMetrics struct{}

func (nopMetrics) IncRetry(string)     {}
func (nopMetrics) IncCacheHit(string)  {}
func (nopMetrics) IncCacheMiss(string) {}
func (nopMetrics) IncFallback(string)  {}
