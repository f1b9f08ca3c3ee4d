// Package rebalance implements the scheduler that drives portfolio version
// creation: the scheduled path (due portfolios are re-optimized) and the
// drawdown path (portfolios that lost more than the threshold since creation
// get a one-shot alert).
package rebalance

import (
	"context"
	"sync"
	"time"

	"github.com/folira/folira/internal/application/engine"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/marketdata"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// Config carries the scheduler policy.  Values mirror config.SchedulerConfig.
type Config struct {
	RebalanceInterval time.Duration
	DrawdownThreshold float64
	Concurrency       int
	ScanInterval      time.Duration
	// BatchLimit caps how many portfolios one pass pulls from the repository.
	BatchLimit int
}

// Outcome labels for the rebalance counter.
const (
	OutcomeRebalanced  = "rebalanced"
	OutcomeNotifyOnly  = "notify_only"
	OutcomeFallback    = "fallback"
	OutcomeFailed      = "failed"
	OutcomeDrawdown    = "drawdown"
	OutcomeValueStable = "stable"
)

// MetricsCollector receives scheduler observations.  The prometheus adapter
// implements it.
type MetricsCollector interface {
	IncRebalance(outcome string)
	IncDrawdownScan(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) IncRebalance(string)    {}
func (nopMetrics) IncDrawdownScan(string) {}

// Scheduler orchestrates the two rebalance paths.  It is not idempotent by
// design: the external trigger (cron, worker loop) owns run deduplication.
type Scheduler struct {
	repo     portfolio.Repository
	profiles portfolio.ProfileReader
	notifier portfolio.Notifier
	engine   *engine.Service
	provider marketdata.Provider
	cfg      Config
	metrics  MetricsCollector
	logger   logging.Logger
	// now is injectable for tests.
	now func() time.Time
}

// NewScheduler wires the scheduler.  metrics and logger may be nil.
func NewScheduler(
	repo portfolio.Repository,
	profiles portfolio.ProfileReader,
	notifier portfolio.Notifier,
	eng *engine.Service,
	provider marketdata.Provider,
	cfg Config,
	metrics MetricsCollector,
	logger logging.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 100
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scheduler{
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		engine:   eng,
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("rebalance"),
		now:      time.Now,
	}
}

// Run executes both paths on every tick until the context is cancelled.
// Intended for the worker process.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		if err := s.RunScheduled(ctx); err != nil {
			s.logger.Error("scheduled pass failed", logging.Err(err))
		}
		if err := s.RunDrawdownScan(ctx); err != nil {
			s.logger.Error("drawdown scan failed", logging.Err(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunScheduled processes every portfolio whose rebalance date has arrived.
// Portfolios are handled concurrently under a bounded worker pool; one
// portfolio's failure never aborts the batch.
func (s *Scheduler) RunScheduled(ctx context.Context) error {
	due, err := s.repo.ListDue(ctx, s.now(), s.cfg.BatchLimit)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "listing due portfolios")
	}
	if len(due) == 0 {
		return nil
	}
	s.logger.Info("scheduled pass starting", logging.Int("due", len(due)))

	s.forEach(ctx, due, func(p *portfolio.Portfolio) {
		if err := s.rebalanceOne(ctx, p); err != nil {
			s.metrics.IncRebalance(OutcomeFailed)
			s.logger.Error("rebalance failed",
				logging.String("portfolio_id", p.ID.String()),
				logging.String("owner_id", p.OwnerID.String()),
				logging.Err(err))
		}
	})
	return nil
}

// RunDrawdownScan evaluates every unnotified portfolio's valuation against
// the drawdown threshold and fires at most one alert per version.
func (s *Scheduler) RunDrawdownScan(ctx context.Context) error {
	candidates, err := s.repo.ListUnnotifiedDrawdown(ctx, s.cfg.BatchLimit)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "listing drawdown candidates")
	}
	if len(candidates) == 0 {
		return nil
	}

	s.forEach(ctx, candidates, func(p *portfolio.Portfolio) {
		if err := s.scanOne(ctx, p); err != nil {
			s.metrics.IncDrawdownScan(OutcomeFailed)
			s.logger.Warn("drawdown evaluation failed",
				logging.String("portfolio_id", p.ID.String()),
				logging.Err(err))
		}
	})
	return nil
}

func (s *Scheduler) rebalanceOne(ctx context.Context, p *portfolio.Portfolio) error {
	risk, err := s.profiles.RiskScore(ctx, p.OwnerID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProfileNotFound, "looking up risk score")
	}
	entitled, err := s.profiles.Entitled(ctx, p.OwnerID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProfileNotFound, "looking up entitlement")
	}

	if !entitled {
		s.metrics.IncRebalance(OutcomeNotifyOnly)
		s.notify(ctx, p.OwnerID, portfolio.NotificationAdvisory, p.ID)
		return nil
	}

	out, err := s.engine.OptimizeUniverse(ctx, risk)
	if err != nil {
		return err
	}

	next, err := p.NewVersion(risk, out.Result(), s.now(), s.cfg.RebalanceInterval)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		// A persistence failure after a successful optimization must surface
		// distinctly; it is never folded into the fallback path.
		return errors.Wrap(err, errors.ErrCodePortfolioSaveFailed, "saving new version")
	}

	if out.Fallback {
		s.metrics.IncRebalance(OutcomeFallback)
	} else {
		s.metrics.IncRebalance(OutcomeRebalanced)
	}
	s.logger.Info("portfolio rebalanced",
		logging.String("owner_id", p.OwnerID.String()),
		logging.String("previous_id", p.ID.String()),
		logging.String("portfolio_id", next.ID.String()),
		logging.Bool("fallback", out.Fallback))

	s.notify(ctx, p.OwnerID, portfolio.NotificationRebalanced, next.ID)
	return nil
}

func (s *Scheduler) scanOne(ctx context.Context, p *portfolio.Portfolio) error {
	valuation, err := s.valuate(ctx, p)
	if err != nil {
		return err
	}

	if valuation.Drawdown <= s.cfg.DrawdownThreshold {
		s.metrics.IncDrawdownScan(OutcomeValueStable)
		return nil
	}

	// Flag first, notify second: the alert is at-most-once per version even
	// if the process dies between the two steps.
	if err := s.repo.SetDrawdownNotified(ctx, p.ID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting drawdown flag")
	}
	p.MarkDrawdownNotified()
	s.metrics.IncDrawdownScan(OutcomeDrawdown)
	s.logger.Warn("drawdown threshold breached",
		logging.String("portfolio_id", p.ID.String()),
		logging.String("owner_id", p.OwnerID.String()),
		logging.Float64("drawdown", valuation.Drawdown),
		logging.Float64("coverage", valuation.Coverage))

	s.notify(ctx, p.OwnerID, portfolio.NotificationDrawdown, p.ID)
	return nil
}

// valuate prices the portfolio's holdings at creation and now.
func (s *Scheduler) valuate(ctx context.Context, p *portfolio.Portfolio) (*portfolio.Valuation, error) {
	symbols := p.Weights.Symbols()

	quotes, err := s.provider.Quotes(ctx, symbols)
	if err != nil {
		return nil, err
	}
	current := make(map[string]float64, len(quotes))
	for sym, q := range quotes {
		current[sym] = q.Price
	}

	// Base price per holding: the first close on or after the version's
	// creation day.  Holdings that cannot be priced are skipped; the
	// valuation renormalizes over what remains.
	created := common.DateOf(p.CreatedAt)
	window := common.DateOf(p.CreatedAt.AddDate(0, 0, 7))
	base := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		series, err := s.provider.HistoricalPrices(ctx, sym, created, window)
		if err != nil || series.Len() == 0 {
			s.logger.Debug("no base price for holding",
				logging.String("symbol", sym), logging.Err(err))
			continue
		}
		base[sym] = series.Points[0].Close
	}

	return portfolio.ComputeValuation(p.Weights, base, current)
}

// forEach fans the batch out over a bounded pool of workers.
func (s *Scheduler) forEach(ctx context.Context, batch []*portfolio.Portfolio, fn func(*portfolio.Portfolio)) {
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, p := range batch {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p *portfolio.Portfolio) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(p)
		}(p)
	}
	wg.Wait()
}

func (s *Scheduler) notify(ctx context.Context, owner common.OwnerID, kind portfolio.NotificationKind, id common.ID) {
	if err := s.notifier.Notify(ctx, owner, kind, id); err != nil {
		s.logger.Error("notification delivery failed",
			logging.String("owner_id", owner.String()),
			logging.String("kind", string(kind)),
			logging.Err(err))
	}
}
