// Package risk implements the pairwise annualized covariance estimate across
// an asset set.
package risk

import (
	"github.com/folira/folira/internal/domain/asset"
)

// Matrix is the symmetric annualized covariance matrix over an asset set.
// Rows and columns follow the order of the Stats slice it was estimated from;
// Index maps symbols back to positions.  The matrix must be re-estimated
// whenever the asset set changes.
type Matrix struct {
	Symbols []string
	Index   map[string]int
	Data    [][]float64
}

// EstimateCovariance builds the covariance matrix for the given asset
// statistics.
//
// Diagonal entries are volatility² so that portfolio variance computed from
// the matrix is consistent with the per-asset volatility estimate.
// Off-diagonal entries are the sample covariance of the two mean-centered
// daily-return sequences over their overlapping range (truncated to the
// shorter series), annualized by ×252.
func EstimateCovariance(stats []*asset.Stats) *Matrix {
	n := len(stats)
	m := &Matrix{
		Symbols: make([]string, n),
		Index:   make(map[string]int, n),
		Data:    make([][]float64, n),
	}
	for i, s := range stats {
		m.Symbols[i] = s.Symbol
		m.Index[s.Symbol] = i
		m.Data[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		m.Data[i][i] = stats[i].Volatility * stats[i].Volatility
		for j := i + 1; j < n; j++ {
			cov := pairCovariance(stats[i].Returns, stats[j].Returns)
			m.Data[i][j] = cov
			m.Data[j][i] = cov
		}
	}
	return m
}

// pairCovariance is the annualized sample covariance of two daily-return
// sequences over their common prefix.
func pairCovariance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	meanA, meanB := 0.0, 0.0
	for k := 0; k < n; k++ {
		meanA += a[k]
		meanB += b[k]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	cov := 0.0
	for k := 0; k < n; k++ {
		cov += (a[k] - meanA) * (b[k] - meanB)
	}
	cov /= float64(n)

	return cov * asset.TradingDaysPerYear
}

// At returns the covariance between two symbols.  Unknown symbols yield 0;
// callers are expected to query only symbols the matrix was estimated over.
func (m *Matrix) At(sym1, sym2 string) float64 {
	i, ok1 := m.Index[sym1]
	j, ok2 := m.Index[sym2]
	if !ok1 || !ok2 {
		return 0
	}
	return m.Data[i][j]
}

// Size returns the number of assets the matrix covers.
func (m *Matrix) Size() int { return len(m.Symbols) }

// PortfolioVariance computes wᵀΣw for a positional weight vector aligned with
// the matrix's symbol order.
func (m *Matrix) PortfolioVariance(weights []float64) float64 {
	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * m.Data[i][j]
		}
	}
	return variance
}
