package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

func testProviderConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		APIKey:           "test-key",
		RequestTimeout:   2 * time.Second,
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
		CacheTTL:         time.Minute,
		MinDailyVolume:   10_000_000,
		MaxUniverseSize:  80,
		MinLiquidSymbols: 2,
	}
}

// memoryCache is a map-backed Cache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func TestHistoricalPricesSortsChronologically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		// Newest-first, as the real API responds.
		w.Write([]byte(`{"symbol":"VTI","historical":[
			{"date":"2026-01-03","close":103},
			{"date":"2026-01-02","close":102},
			{"date":"2026-01-01","close":101}]}`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	series, err := p.HistoricalPrices(context.Background(), "VTI",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.NoError(t, err)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, asset.DomicileTaxable, series.Domicile)
	assert.Equal(t, []float64{101, 102, 103}, series.Closes())
}

func TestHistoricalPricesInfersUCITSDomicile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"symbol":"VUSA-IE","historical":[{"date":"2026-01-02","close":88}]}`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	series, err := p.HistoricalPrices(context.Background(), "VUSA-IE",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, asset.DomicileTaxAdvantaged, series.Domicile)
}

func TestHistoricalPricesEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"symbol":"VTI","historical":[]}`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	_, err := p.HistoricalPrices(context.Background(), "VTI",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInsufficientData))
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"symbol":"VTI","historical":[{"date":"2026-01-02","close":100}]}`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	_, err := p.HistoricalPrices(context.Background(), "VTI",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterCap(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	_, err := p.HistoricalPrices(context.Background(), "VTI",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMarketDataUnavailable))
	assert.Equal(t, 3, calls)
}

func TestNonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	_, err := p.HistoricalPrices(context.Background(), "VTI",
		common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHistoricalPricesServedFromCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"symbol":"VTI","historical":[{"date":"2026-01-02","close":100}]}`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), newMemoryCache(), nil, nil)
	ctx := context.Background()
	from, to := common.NewDate(2026, 1, 1), common.NewDate(2026, 1, 31)

	_, err := p.HistoricalPrices(ctx, "VTI", from, to)
	require.NoError(t, err)
	second, err := p.HistoricalPrices(ctx, "VTI", from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, second.Len())
}

func TestQuotesFillsMissingSymbolsFromFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"symbol":"VTI","price":250,"volume":30000000}]`))
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	quotes, err := p.Quotes(context.Background(), []string{"VTI", "SPY"})
	require.NoError(t, err)

	require.Len(t, quotes, 2)
	assert.InDelta(t, 250.0, quotes["VTI"].Price, 1e-9)
	assert.InDelta(t, fallbackPrices["SPY"], quotes["SPY"].Price, 1e-9)
}

func TestQuotesFallsBackWhenProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	quotes, err := p.Quotes(context.Background(), []string{"VTI", "UNKNOWN"})
	require.NoError(t, err)

	assert.InDelta(t, fallbackPrices["VTI"], quotes["VTI"].Price, 1e-9)
	assert.InDelta(t, fallbackDefaultPrice, quotes["UNKNOWN"].Price, 1e-9)
	// Deterministic: a second call returns identical values.
	again, err := p.Quotes(context.Background(), []string{"VTI", "UNKNOWN"})
	require.NoError(t, err)
	assert.Equal(t, quotes, again)
}

func TestLiquidUniverseFiltersByVolume(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/etf/list", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"symbol":"AAA","name":"A","price":10},
			{"symbol":"BBB","name":"B","price":20},
			{"symbol":"CCC","name":"C","price":30}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"symbol":"AAA","price":10,"volume":50000000},
			{"symbol":"BBB","price":20,"volume":5000000},
			{"symbol":"CCC","price":30,"volume":20000000}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	universe, err := p.LiquidUniverse(context.Background())
	require.NoError(t, err)

	symbols := make([]string, len(universe))
	for i, e := range universe {
		symbols[i] = e.Symbol
	}
	assert.Equal(t, []string{"AAA", "CCC"}, symbols)
}

func TestLiquidUniverseFallsBackWhenTooFewLiquid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/etf/list", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"symbol":"AAA","name":"A","price":10}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"symbol":"AAA","price":10,"volume":1000}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	universe, err := p.LiquidUniverse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackUniverse(), universe)
}

func TestLiquidUniverseFallsBackWhenListingDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewFMPProvider(testProviderConfig(srv.URL), nil, nil, nil)
	universe, err := p.LiquidUniverse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackUniverse(), universe)
}
