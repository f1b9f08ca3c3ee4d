package asset

import (
	"math"

	"github.com/folira/folira/pkg/errors"
)

// TradingDaysPerYear is the annualization factor for daily figures.
const TradingDaysPerYear = 252

// Stats carries the derived per-asset figures the optimizer consumes.  Returns
// keeps the full daily-return sequence because the covariance estimator needs
// the overlapping windows, not just the scalars.
type Stats struct {
	Symbol           string
	Domicile         Domicile
	Returns          []float64
	AnnualizedReturn float64
	Volatility       float64
}

// Estimator derives annualized return and volatility from a price series.
// MinPoints guards against statistically meaningless estimates from short
// histories; the production policy is 30.
type Estimator struct {
	MinPoints int
}

// NewEstimator constructs an Estimator with the given minimum series length.
func NewEstimator(minPoints int) *Estimator {
	if minPoints < 2 {
		minPoints = 2
	}
	return &Estimator{MinPoints: minPoints}
}

// Estimate computes the derived statistics for one series.  It fails with
// ErrCodeInsufficientData when the series is shorter than MinPoints.
func (e *Estimator) Estimate(s Series) (*Stats, error) {
	if s.Len() < e.MinPoints {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"series %s has %d points; minimum is %d", s.Symbol, s.Len(), e.MinPoints)
	}

	returns, err := s.DailyReturns()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Symbol:           s.Symbol,
		Domicile:         s.Domicile,
		Returns:          returns,
		AnnualizedReturn: AnnualizedReturn(returns),
		Volatility:       AnnualizedVolatility(returns),
	}, nil
}

// AnnualizedReturn compounds the daily returns geometrically into the
// total-period return T and annualizes as (1+T)^(252/N) − 1, where N is the
// number of daily returns.
func AnnualizedReturn(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range dailyReturns {
		total = (1+total)*(1+r) - 1
	}
	return math.Pow(1+total, TradingDaysPerYear/float64(len(dailyReturns))) - 1
}

// AnnualizedVolatility is the standard deviation of the daily returns scaled
// by √252.  The variance divisor is N, matching the covariance estimator so
// the matrix diagonal equals volatility² exactly.
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	m := mean(dailyReturns)
	variance := 0.0
	for _, r := range dailyReturns {
		d := r - m
		variance += d * d
	}
	variance /= float64(len(dailyReturns))
	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
