package allocation

import (
	"math"

	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/domain/risk"
)

// Metrics summarizes the risk/return profile of an allocation.  All figures
// are annualized.
type Metrics struct {
	// ExpectedReturn is the weighted sum of the assets' annualized returns.
	ExpectedReturn float64 `json:"expected_return"`
	// Volatility is sqrt(wᵀΣw) using the annualized covariance matrix.
	Volatility float64 `json:"volatility"`
	// SharpeRatio is (ExpectedReturn − riskFree) / Volatility, or 0 when the
	// portfolio volatility is zero.
	SharpeRatio float64 `json:"sharpe_ratio"`
}

// ComputeMetrics evaluates the allocation against the asset statistics and
// covariance matrix.  weights must be positionally aligned with stats.
// Substituted tickers deliberately do not participate here: metrics describe
// the underlying exposures, which a domicile swap does not change.
func ComputeMetrics(weights []float64, stats []*asset.Stats, cov *risk.Matrix, riskFree float64) Metrics {
	expected := 0.0
	for i, s := range stats {
		expected += weights[i] * s.AnnualizedReturn
	}

	variance := cov.PortfolioVariance(weights)
	if variance < 0 {
		// Numerical noise on near-singular matrices can push the quadratic
		// form below zero by a hair.
		variance = 0
	}
	volatility := math.Sqrt(variance)

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (expected - riskFree) / volatility
	}

	return Metrics{
		ExpectedReturn: expected,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
	}
}
