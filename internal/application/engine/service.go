// Package engine runs the full optimization pipeline: universe resolution,
// per-symbol estimation, covariance, risk-tilted allocation, and the soft
// fallback policy when market data cannot support a real optimization.
package engine

import (
	"context"
	"time"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/domain/risk"
	"github.com/folira/folira/internal/infrastructure/marketdata"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// Config carries the pipeline policy knobs.  Values mirror
// config.EngineConfig.
type Config struct {
	MinSeriesPoints   int
	MinEligibleAssets int
	LookbackYears     int
	Allocation        allocation.Config
}

// MetricsCollector receives pipeline-level observations.  The prometheus
// adapter implements it.
type MetricsCollector interface {
	ObserveOptimizeDuration(d time.Duration, fallback bool)
	IncSymbolSkipped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOptimizeDuration(time.Duration, bool) {}
func (nopMetrics) IncSymbolSkipped(string)                     {}

// Output is the result of one pipeline run.
type Output struct {
	Weights allocation.WeightVector
	Metrics allocation.Metrics
	// Fallback is set when the static allocation was served instead of a
	// real optimization.
	Fallback bool
	// Eligible is the number of assets that survived estimation.
	Eligible int
}

// Result adapts the output for portfolio construction.
func (o *Output) Result() *allocation.Result {
	return &allocation.Result{Weights: o.Weights, Metrics: o.Metrics}
}

// Fixed allocation served when the universe cannot support an optimization.
// Metrics are the static figures published for this mix.
var (
	fallbackWeights = allocation.WeightVector{
		"VTI": 0.20, "VOO": 0.20, "QQQ": 0.20, "BND": 0.20, "VEA": 0.20,
	}
	fallbackMetrics = allocation.Metrics{
		ExpectedReturn: 0.07,
		Volatility:     0.15,
		SharpeRatio:    0.33,
	}
)

// FallbackOutput returns the static allocation.  Exposed so the scheduler can
// identify fallback results in logs and events.
func FallbackOutput() *Output {
	return &Output{
		Weights:  fallbackWeights.Clone(),
		Metrics:  fallbackMetrics,
		Fallback: true,
	}
}

// Service wires the pipeline stages together.
type Service struct {
	provider  marketdata.Provider
	estimator *asset.Estimator
	optimizer *allocation.Optimizer
	cfg       Config
	metrics   MetricsCollector
	logger    logging.Logger
	// now is injectable for tests.
	now func() time.Time
}

// NewService constructs the pipeline.  metrics and logger may be nil.
func NewService(provider marketdata.Provider, cfg Config, metrics MetricsCollector, logger logging.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		provider:  provider,
		estimator: asset.NewEstimator(cfg.MinSeriesPoints),
		optimizer: allocation.NewOptimizer(cfg.Allocation, logger),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.Named("engine"),
		now:       time.Now,
	}
}

// Optimize runs the pipeline over an explicit symbol list and lookback
// window.  Per-symbol data failures are skipped; when fewer than the minimum
// eligible assets survive, the static fallback allocation is returned with
// Fallback set instead of an error.  Only an invalid risk score fails hard.
func (s *Service) Optimize(ctx context.Context, symbols []string, profile allocation.RiskProfile, from, to common.Date) (*Output, error) {
	start := s.now()
	out, err := s.optimize(ctx, symbols, profile, from, to)
	if err == nil {
		s.metrics.ObserveOptimizeDuration(s.now().Sub(start), out.Fallback)
	}
	return out, err
}

// OptimizeUniverse resolves the liquid universe and runs Optimize over it
// with the configured lookback window ending today.
func (s *Service) OptimizeUniverse(ctx context.Context, profile allocation.RiskProfile) (*Output, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	universe, err := s.provider.LiquidUniverse(ctx)
	if err != nil {
		s.logger.Warn("universe resolution failed, serving fallback allocation", logging.Err(err))
		return FallbackOutput(), nil
	}
	symbols := make([]string, len(universe))
	for i, e := range universe {
		symbols[i] = e.Symbol
	}

	today := common.DateOf(s.now())
	return s.Optimize(ctx, symbols, profile, today.AddYears(-s.cfg.LookbackYears), today)
}

func (s *Service) optimize(ctx context.Context, symbols []string, profile allocation.RiskProfile, from, to common.Date) (*Output, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	stats := make([]*asset.Stats, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "optimization aborted")
		}

		series, err := s.provider.HistoricalPrices(ctx, sym, from, to)
		if err != nil {
			s.skip(sym, "fetch", err)
			continue
		}
		st, err := s.estimator.Estimate(*series)
		if err != nil {
			s.skip(sym, "estimate", err)
			continue
		}
		stats = append(stats, st)
	}

	if len(stats) < s.cfg.MinEligibleAssets {
		s.logger.Warn("too few eligible assets, serving fallback allocation",
			logging.Int("eligible", len(stats)),
			logging.Int("minimum", s.cfg.MinEligibleAssets))
		out := FallbackOutput()
		out.Eligible = len(stats)
		return out, nil
	}

	cov := risk.EstimateCovariance(stats)
	res, err := s.optimizer.Allocate(stats, cov, profile)
	if err != nil {
		return nil, err
	}

	return &Output{
		Weights:  res.Weights,
		Metrics:  res.Metrics,
		Eligible: len(stats),
	}, nil
}

func (s *Service) skip(symbol, reason string, err error) {
	s.metrics.IncSymbolSkipped(reason)
	s.logger.Debug("skipping symbol",
		logging.String("symbol", symbol),
		logging.String("reason", reason),
		logging.Err(err))
}
