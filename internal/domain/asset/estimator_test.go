package asset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// seriesFromCloses builds a Series with sequential dates from raw closes.
func seriesFromCloses(symbol string, closes []float64) Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]PricePoint, len(closes))
	for i, c := range closes {
		points[i] = PricePoint{Date: common.DateOf(start.AddDate(0, 0, i)), Close: c}
	}
	return Series{Symbol: symbol, Domicile: DomicileTaxable, Points: points}
}

// flatCloses returns n identical closes.
func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestDailyReturns(t *testing.T) {
	s := seriesFromCloses("VTI", []float64{100, 101, 99.99, 99.99})
	returns, err := s.DailyReturns()
	require.NoError(t, err)
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.01, returns[0], 1e-12)
	assert.InDelta(t, 99.99/101-1, returns[1], 1e-12)
	assert.InDelta(t, 0, returns[2], 1e-12)
}

func TestDailyReturns_TooShort(t *testing.T) {
	s := seriesFromCloses("VTI", []float64{100})
	_, err := s.DailyReturns()
	assert.True(t, errors.IsCode(err, errors.ErrCodeInsufficientData))
}

func TestDailyReturns_NonPositiveClose(t *testing.T) {
	s := seriesFromCloses("VTI", []float64{100, 0, 50})
	_, err := s.DailyReturns()
	assert.True(t, errors.IsCode(err, errors.ErrCodeDegenerateSeries))
}

func TestEstimate_MinPointsEnforced(t *testing.T) {
	e := NewEstimator(30)
	_, err := e.Estimate(seriesFromCloses("VTI", flatCloses(29, 100)))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInsufficientData))

	stats, err := e.Estimate(seriesFromCloses("VTI", flatCloses(30, 100)))
	require.NoError(t, err)
	assert.Len(t, stats.Returns, 29)
}

func TestEstimate_ConstantSeriesHasZeroVolatility(t *testing.T) {
	e := NewEstimator(30)
	stats, err := e.Estimate(seriesFromCloses("BND", flatCloses(60, 72.40)))
	require.NoError(t, err)
	assert.Zero(t, stats.AnnualizedReturn)
	assert.Zero(t, stats.Volatility)
}

func TestAnnualizedReturn_SteadyGrowth(t *testing.T) {
	// 0.1% per day for 252 days compounds to (1.001)^252 − 1 annualized,
	// and with N = 252 the annualization exponent is exactly 1.
	returns := make([]float64, TradingDaysPerYear)
	for i := range returns {
		returns[i] = 0.001
	}
	want := math.Pow(1.001, 252) - 1
	assert.InDelta(t, want, AnnualizedReturn(returns), 1e-9)
}

func TestAnnualizedReturn_ShortWindowExtrapolates(t *testing.T) {
	// A 1% gain over a single day annualizes to (1.01)^252 − 1.
	got := AnnualizedReturn([]float64{0.01})
	assert.InDelta(t, math.Pow(1.01, 252)-1, got, 1e-9)
}

func TestAnnualizedReturn_Empty(t *testing.T) {
	assert.Zero(t, AnnualizedReturn(nil))
}

func TestAnnualizedVolatility(t *testing.T) {
	// Alternating ±1% around a 0 mean: population stddev is exactly 0.01.
	returns := []float64{0.01, -0.01, 0.01, -0.01}
	want := 0.01 * math.Sqrt(252)
	assert.InDelta(t, want, AnnualizedVolatility(returns), 1e-12)
}

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator(30)
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	a, err := e.Estimate(seriesFromCloses("VOO", closes))
	require.NoError(t, err)
	b, err := e.Estimate(seriesFromCloses("VOO", closes))
	require.NoError(t, err)
	assert.Equal(t, a.AnnualizedReturn, b.AnnualizedReturn)
	assert.Equal(t, a.Volatility, b.Volatility)
	assert.Equal(t, a.Returns, b.Returns)
}
