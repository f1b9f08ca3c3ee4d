package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/infrastructure/marketdata"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

type stubProvider struct {
	series      map[string]*asset.Series
	universe    []marketdata.ETF
	universeErr error
}

func (s *stubProvider) HistoricalPrices(_ context.Context, symbol string, _, _ common.Date) (*asset.Series, error) {
	series, ok := s.series[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no data for %s", symbol)
	}
	return series, nil
}

func (s *stubProvider) LiquidUniverse(context.Context) ([]marketdata.ETF, error) {
	if s.universeErr != nil {
		return nil, s.universeErr
	}
	return s.universe, nil
}

func (s *stubProvider) Quotes(_ context.Context, symbols []string) (map[string]marketdata.Quote, error) {
	return marketdata.FallbackQuotes(symbols), nil
}

// risingSeries builds n chronological points growing drift% per day.
func risingSeries(symbol string, n int, drift float64) *asset.Series {
	s := &asset.Series{Symbol: symbol, Domicile: asset.DomicileForSymbol(symbol)}
	price := 100.0
	day := common.NewDate(2021, 1, 1)
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, asset.PricePoint{Date: day, Close: price})
		price *= 1 + drift
		day = common.NewDate(2021, time.Month(1+i/28), 1+i%28)
	}
	return s
}

func testEngineConfig() Config {
	return Config{
		MinSeriesPoints:   30,
		MinEligibleAssets: 5,
		LookbackYears:     5,
		Allocation: allocation.Config{
			MinWeight:          0.05,
			MaxWeight:          0.30,
			TargetReturnFactor: 0.8,
			RiskFreeRate:       0.02,
			MaxConstraintPass:  10,
		},
	}
}

func sixSymbolProvider() *stubProvider {
	p := &stubProvider{series: map[string]*asset.Series{}}
	drifts := []float64{0.0010, 0.0008, 0.0006, 0.0004, 0.0012, 0.0002}
	for i, sym := range []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"} {
		p.series[sym] = risingSeries(sym, 60, drifts[i])
		p.universe = append(p.universe, marketdata.ETF{Symbol: sym})
	}
	return p
}

func TestOptimizeProducesRealAllocation(t *testing.T) {
	p := sixSymbolProvider()
	svc := NewService(p, testEngineConfig(), nil, nil)

	out, err := svc.Optimize(context.Background(),
		[]string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"},
		allocation.RiskBalanced,
		common.NewDate(2021, 1, 1), common.NewDate(2026, 1, 1))
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	assert.Equal(t, 6, out.Eligible)
	assert.InDelta(t, 1.0, out.Weights.Sum(), 1e-3)
}

func TestOptimizeTooFewSymbolsFallsBack(t *testing.T) {
	p := sixSymbolProvider()
	svc := NewService(p, testEngineConfig(), nil, nil)

	out, err := svc.Optimize(context.Background(),
		[]string{"AAA", "BBB", "CCC"},
		allocation.RiskBalanced,
		common.NewDate(2021, 1, 1), common.NewDate(2026, 1, 1))
	require.NoError(t, err)

	assert.True(t, out.Fallback)
	assert.Equal(t, 3, out.Eligible)
	assert.InDelta(t, 0.20, out.Weights["VTI"], 1e-9)
	assert.InDelta(t, 0.07, out.Metrics.ExpectedReturn, 1e-9)
	assert.InDelta(t, 0.15, out.Metrics.Volatility, 1e-9)
	assert.InDelta(t, 0.33, out.Metrics.SharpeRatio, 1e-9)
}

func TestOptimizeSkipsFailingSymbols(t *testing.T) {
	p := sixSymbolProvider()
	delete(p.series, "EEE")
	p.series["FFF"] = risingSeries("FFF", 10, 0.001) // below minimum points
	svc := NewService(p, testEngineConfig(), nil, nil)

	out, err := svc.Optimize(context.Background(),
		[]string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"},
		allocation.RiskBalanced,
		common.NewDate(2021, 1, 1), common.NewDate(2026, 1, 1))
	require.NoError(t, err)

	// Four survivors is below the five-asset minimum.
	assert.True(t, out.Fallback)
	assert.Equal(t, 4, out.Eligible)
}

func TestOptimizeInvalidRiskScoreFailsHard(t *testing.T) {
	svc := NewService(sixSymbolProvider(), testEngineConfig(), nil, nil)

	_, err := svc.Optimize(context.Background(),
		[]string{"AAA"}, 7,
		common.NewDate(2021, 1, 1), common.NewDate(2026, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRiskScore))
}

func TestOptimizeUniverse(t *testing.T) {
	p := sixSymbolProvider()
	svc := NewService(p, testEngineConfig(), nil, nil)

	out, err := svc.OptimizeUniverse(context.Background(), allocation.RiskAggressive)
	require.NoError(t, err)
	assert.False(t, out.Fallback)
	assert.InDelta(t, 1.0, out.Weights.Sum(), 1e-3)
}

func TestOptimizeUniverseProviderFailureFallsBack(t *testing.T) {
	p := &stubProvider{universeErr: errors.New(errors.ErrCodeMarketDataUnavailable, "down")}
	svc := NewService(p, testEngineConfig(), nil, nil)

	out, err := svc.OptimizeUniverse(context.Background(), allocation.RiskBalanced)
	require.NoError(t, err)
	assert.True(t, out.Fallback)
}

func TestOptimizeDeterministic(t *testing.T) {
	p := sixSymbolProvider()
	svc := NewService(p, testEngineConfig(), nil, nil)
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	from, to := common.NewDate(2021, 1, 1), common.NewDate(2026, 1, 1)

	first, err := svc.Optimize(context.Background(), symbols, allocation.RiskMostAggressive, from, to)
	require.NoError(t, err)
	second, err := svc.Optimize(context.Background(), symbols, allocation.RiskMostAggressive, from, to)
	require.NoError(t, err)
	assert.Equal(t, first.Weights, second.Weights)
}
