// Package allocation implements the risk-tilted heuristic weight allocation:
// equal-weight initialization, deterministic rank-based tilt by risk profile,
// bounded constraint enforcement, tax-domicile substitution, and portfolio
// metrics.
package allocation

import (
	"math"
	"sort"

	"github.com/folira/folira/pkg/errors"
)

// SumEpsilon is the tolerance within which a weight vector must sum to 1.
const SumEpsilon = 1e-4

// RiskProfile is the investor's ordinal risk tolerance, 1 (most conservative)
// to 5 (most aggressive).
type RiskProfile int

const (
	RiskMostConservative RiskProfile = 1
	RiskConservative     RiskProfile = 2
	RiskBalanced         RiskProfile = 3
	RiskAggressive       RiskProfile = 4
	RiskMostAggressive   RiskProfile = 5
)

// Validate rejects scores outside 1..5.
func (r RiskProfile) Validate() error {
	if r < RiskMostConservative || r > RiskMostAggressive {
		return errors.Newf(errors.ErrCodeInvalidRiskScore, "risk score %d is out of range [1, 5]", int(r))
	}
	return nil
}

// Conservative reports whether the profile triggers the low-volatility tilt
// and the tax-domicile substitution.
func (r RiskProfile) Conservative() bool { return r <= RiskConservative }

// Aggressive reports whether the profile triggers the high-return tilt.
func (r RiskProfile) Aggressive() bool { return r >= RiskAggressive }

// WeightVector maps symbols to portfolio weights.  Invariants after the full
// pipeline: entries are non-negative, nonzero entries lie in
// [MinWeight, MaxWeight], and the total is 1 within SumEpsilon.
type WeightVector map[string]float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Symbols returns the held symbols in deterministic (sorted) order.
func (w WeightVector) Symbols() []string {
	out := make([]string, 0, len(w))
	for s := range w {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks the post-pipeline invariants against the given bounds.
func (w WeightVector) Validate(minWeight, maxWeight float64) error {
	if len(w) == 0 {
		return errors.New(errors.ErrCodeValidation, "weight vector is empty")
	}
	for sym, v := range w {
		if v < 0 {
			return errors.Newf(errors.ErrCodeValidation, "weight for %s is negative: %.6f", sym, v)
		}
		if v > 0 && (v < minWeight-SumEpsilon || v > maxWeight+SumEpsilon) {
			return errors.Newf(errors.ErrCodeValidation,
				"weight for %s is %.6f, outside [%.2f, %.2f]", sym, v, minWeight, maxWeight)
		}
	}
	if total := w.Sum(); math.Abs(total-1) > SumEpsilon {
		return errors.Newf(errors.ErrCodeValidation, "weights sum to %.6f, expected 1", total)
	}
	return nil
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// roundTo4 truncates a weight to 4 decimal places for presentation-stable
// output.  Rounding happens only on the final map, never mid-pipeline.
func roundTo4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// reconcileRounding folds the per-entry rounding drift into the largest
// holding so the rounded vector still sums to exactly 1.  Ties break on the
// lexicographically smallest symbol for determinism.
func reconcileRounding(w WeightVector) {
	if len(w) == 0 {
		return
	}
	largest := ""
	for _, sym := range w.Symbols() {
		if largest == "" || w[sym] > w[largest] {
			largest = sym
		}
	}
	w[largest] = roundTo4(w[largest] + (1 - w.Sum()))
}
