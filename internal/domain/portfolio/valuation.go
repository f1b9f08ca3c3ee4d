package portfolio

import (
	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/pkg/errors"
)

// Valuation is the relative value of a portfolio version against its
// creation, with Value 1.0 meaning unchanged.
type Valuation struct {
	// Value is Σ wᵢ × (currentᵢ / baseᵢ) over the holdings priced in both
	// snapshots, renormalized over the covered weight.
	Value float64
	// Drawdown is the fractional loss since creation, 0 when the portfolio
	// is flat or up.
	Drawdown float64
	// Coverage is the share of total weight that could be priced.  Callers
	// should treat low-coverage valuations as unreliable.
	Coverage float64
}

// ComputeValuation revalues the weights using per-symbol prices at creation
// (base) and now (current).  Holdings missing from either snapshot are
// excluded and the remaining weights renormalized.  It fails when nothing
// can be priced or a base price is non-positive.
func ComputeValuation(weights allocation.WeightVector, base, current map[string]float64) (*Valuation, error) {
	covered := 0.0
	value := 0.0
	for sym, w := range weights {
		b, okB := base[sym]
		c, okC := current[sym]
		if !okB || !okC {
			continue
		}
		if b <= 0 {
			return nil, errors.Newf(errors.ErrCodeDegenerateSeries, "non-positive base price %.4f for %s", b, sym)
		}
		covered += w
		value += w * (c / b)
	}
	if covered == 0 {
		return nil, errors.New(errors.ErrCodeMarketDataUnavailable, "no holdings could be priced for valuation")
	}
	value /= covered

	drawdown := 0.0
	if value < 1 {
		drawdown = 1 - value
	}
	return &Valuation{Value: value, Drawdown: drawdown, Coverage: covered}, nil
}
