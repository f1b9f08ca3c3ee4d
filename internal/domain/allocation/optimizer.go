package allocation

import (
	"sort"

	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/domain/risk"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
)

// Config carries the allocation policy parameters.  Values mirror
// config.EngineConfig; the domain package takes a plain struct so it stays
// free of the configuration machinery.
type Config struct {
	MinWeight          float64
	MaxWeight          float64
	TargetReturnFactor float64
	RiskFreeRate       float64
	MaxConstraintPass  int
}

// Optimizer produces a constrained, risk-tilted weight allocation over an
// asset set.  The algorithm is a deterministic heuristic, not a
// mean-variance solver: identical inputs always yield identical weights.
type Optimizer struct {
	cfg Config
	log logging.Logger
}

// NewOptimizer constructs an Optimizer with the given policy.
func NewOptimizer(cfg Config, log logging.Logger) *Optimizer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Optimizer{cfg: cfg, log: log.Named("optimizer")}
}

// Result is the outcome of one allocation run.
type Result struct {
	Weights WeightVector
	Metrics Metrics
	// TargetReturn is the sizing reference derived from the top performers.
	// It is reported for observability; the heuristic does not constrain on it.
	TargetReturn float64
}

// Allocate runs the tilt → constraints → substitution → metrics sequence over
// the estimated asset set and returns the final weights and metrics.
//
// The positional weight slice stays aligned with stats throughout; the
// symbol-keyed map is built only at the end so the tax substitution can swap
// keys without disturbing the metrics computation, which uses the original
// asset statistics.
func (o *Optimizer) Allocate(stats []*asset.Stats, cov *risk.Matrix, profile RiskProfile) (*Result, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	n := len(stats)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}

	o.applyTilt(weights, stats, profile)
	normalize(weights)

	residual := o.enforceConstraints(weights)
	if residual {
		o.log.Warn("accepting best-effort weights",
			logging.Err(errors.Newf(errors.ErrCodeConstraintResidual,
				"bound violations remain after %d constraint passes", o.cfg.MaxConstraintPass)),
			logging.Float64("max_violation", o.maxViolation(weights)))
	}

	metrics := ComputeMetrics(weights, stats, cov, o.cfg.RiskFreeRate)

	final := make(WeightVector, n)
	substituted := profile.Conservative()
	var held map[string]bool
	if substituted {
		held = make(map[string]bool, n)
		for i, s := range stats {
			if weights[i] > 0 {
				held[s.Symbol] = true
			}
		}
	}
	for i, s := range stats {
		if weights[i] <= 0 {
			continue
		}
		symbol := s.Symbol
		if substituted {
			// A taxable asset keeps its own ticker when its tax-advantaged
			// twin is itself held: writing both positions under one key
			// merges them past MaxWeight.
			if twin, ok := TaxAdvantagedEquivalent(s.Symbol, s.Domicile); ok && !held[twin] {
				symbol = twin
			}
		}
		final[symbol] = roundTo4(weights[i])
	}
	reconcileRounding(final)

	return &Result{
		Weights:      final,
		Metrics:      metrics,
		TargetReturn: o.targetReturn(stats),
	}, nil
}

// applyTilt biases the uniform weights by risk profile using a deterministic
// rank-based boost.  Rank position k (0-indexed) of N assets gets its weight
// multiplied by (1 + (1 − k/N)): the top-ranked asset nearly doubles, decaying
// linearly to no boost at the bottom.
//
// Conservative profiles rank ascending by volatility; aggressive profiles
// rank descending by annualized return; the balanced profile is left uniform.
func (o *Optimizer) applyTilt(weights []float64, stats []*asset.Stats, profile RiskProfile) {
	n := len(stats)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	switch {
	case profile.Conservative():
		sort.SliceStable(order, func(a, b int) bool {
			return stats[order[a]].Volatility < stats[order[b]].Volatility
		})
	case profile.Aggressive():
		sort.SliceStable(order, func(a, b int) bool {
			return stats[order[a]].AnnualizedReturn > stats[order[b]].AnnualizedReturn
		})
	default:
		return
	}

	for rank, idx := range order {
		factor := 1 - float64(rank)/float64(n)
		weights[idx] *= 1 + factor
	}
}

// targetReturn is 0.8 × the mean annualized return of the top-10 (or fewer)
// assets by annualized return.  The current heuristic uses it only as a
// sizing reference.
func (o *Optimizer) targetReturn(stats []*asset.Stats) float64 {
	if len(stats) == 0 {
		return 0
	}
	returns := make([]float64, len(stats))
	for i, s := range stats {
		returns[i] = s.AnnualizedReturn
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(returns)))

	topN := len(returns)
	if topN > 10 {
		topN = 10
	}
	sum := 0.0
	for _, r := range returns[:topN] {
		sum += r
	}
	return o.cfg.TargetReturnFactor * sum / float64(topN)
}

// normalize scales weights in place to sum to 1.  A zero total leaves the
// slice untouched; the constraint enforcer handles that case explicitly.
func normalize(weights []float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return
	}
	for i := range weights {
		weights[i] /= total
	}
}

func (o *Optimizer) maxViolation(weights []float64) float64 {
	max := 0.0
	for _, w := range weights {
		if w > o.cfg.MaxWeight && w-o.cfg.MaxWeight > max {
			max = w - o.cfg.MaxWeight
		}
		if w > 0 && w < o.cfg.MinWeight && o.cfg.MinWeight-w > max {
			max = o.cfg.MinWeight - w
		}
	}
	return max
}
