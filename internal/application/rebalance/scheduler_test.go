package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folira/folira/internal/application/engine"
	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/marketdata"
	"github.com/folira/folira/internal/testutil"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

type stubProvider struct {
	series map[string]*asset.Series
	quotes map[string]marketdata.Quote
}

func (s *stubProvider) HistoricalPrices(_ context.Context, symbol string, _, _ common.Date) (*asset.Series, error) {
	series, ok := s.series[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no data for %s", symbol)
	}
	return series, nil
}

func (s *stubProvider) LiquidUniverse(context.Context) ([]marketdata.ETF, error) {
	out := make([]marketdata.ETF, 0, len(s.series))
	for sym := range s.series {
		out = append(out, marketdata.ETF{Symbol: sym})
	}
	return out, nil
}

func (s *stubProvider) Quotes(_ context.Context, symbols []string) (map[string]marketdata.Quote, error) {
	out := make(map[string]marketdata.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

func flatSeries(symbol string, n int, close float64) *asset.Series {
	s := &asset.Series{Symbol: symbol, Domicile: asset.DomicileForSymbol(symbol)}
	day := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, asset.PricePoint{Date: common.DateOf(day), Close: close})
		close *= 1.0005
		day = day.AddDate(0, 0, 1)
	}
	return s
}

var schedulerNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo      *testutil.MemoryPortfolioRepo
	profiles  *testutil.StaticProfiles
	notifier  *testutil.RecordingNotifier
	provider  *stubProvider
	scheduler *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	provider := &stubProvider{
		series: map[string]*asset.Series{},
		quotes: map[string]marketdata.Quote{},
	}
	for _, sym := range []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"} {
		provider.series[sym] = flatSeries(sym, 60, 100)
		provider.quotes[sym] = marketdata.Quote{Symbol: sym, Price: 100, Volume: 20_000_000}
	}

	engineCfg := engine.Config{
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
	eng := engine.NewService(provider, engineCfg, nil, nil)

	repo := testutil.NewMemoryPortfolioRepo()
	profiles := &testutil.StaticProfiles{
		Scores:      map[common.OwnerID]allocation.RiskProfile{},
		Entitlement: map[common.OwnerID]bool{},
	}
	notifier := &testutil.RecordingNotifier{}

	scheduler := NewScheduler(repo, profiles, notifier, eng, provider, Config{
		RebalanceInterval: 6 * 30 * 24 * time.Hour,
		DrawdownThreshold: 0.15,
		Concurrency:       2,
		ScanInterval:      time.Minute,
		BatchLimit:        50,
	}, nil, nil)
	scheduler.now = func() time.Time { return schedulerNow }

	return &fixture{
		repo:      repo,
		profiles:  profiles,
		notifier:  notifier,
		provider:  provider,
		scheduler: scheduler,
	}
}

// seedPortfolio stores a version created in the past, already due.
func (f *fixture) seedPortfolio(t *testing.T, owner common.OwnerID, weights allocation.WeightVector) *portfolio.Portfolio {
	t.Helper()
	created := schedulerNow.AddDate(0, -7, 0)
	p, err := portfolio.NewPortfolio(owner, allocation.RiskBalanced, &allocation.Result{
		Weights: weights,
		Metrics: allocation.Metrics{ExpectedReturn: 0.07, Volatility: 0.15, SharpeRatio: 0.33},
	}, created, 6*30*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), p))
	return p
}

func defaultWeights() allocation.WeightVector {
	return allocation.WeightVector{"AAA": 0.30, "BBB": 0.30, "CCC": 0.25, "DDD": 0.15}
}

func TestRunScheduledCreatesNewVersion(t *testing.T) {
	f := newFixture(t)
	f.profiles.Scores["owner-1"] = allocation.RiskAggressive
	f.profiles.Entitlement["owner-1"] = true
	seed := f.seedPortfolio(t, "owner-1", defaultWeights())

	require.NoError(t, f.scheduler.RunScheduled(context.Background()))

	assert.Equal(t, 2, f.repo.Count())
	current, err := f.repo.FindCurrentByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.NotNil(t, current.PreviousID)
	assert.Equal(t, seed.ID, *current.PreviousID)
	assert.Equal(t, allocation.RiskAggressive, current.RiskScore)
	assert.Equal(t, schedulerNow.Add(6*30*24*time.Hour), current.RebalanceAt)

	sent := f.notifier.SentOfKind(portfolio.NotificationRebalanced)
	require.Len(t, sent, 1)
	assert.Equal(t, current.ID, sent[0].PortfolioID)
}

func TestRunScheduledNotEntitledNotifiesOnly(t *testing.T) {
	f := newFixture(t)
	f.profiles.Scores["owner-1"] = allocation.RiskBalanced
	f.profiles.Entitlement["owner-1"] = false
	seed := f.seedPortfolio(t, "owner-1", defaultWeights())

	require.NoError(t, f.scheduler.RunScheduled(context.Background()))

	assert.Equal(t, 1, f.repo.Count())
	sent := f.notifier.SentOfKind(portfolio.NotificationAdvisory)
	require.Len(t, sent, 1)
	assert.Equal(t, seed.ID, sent[0].PortfolioID)
	assert.Empty(t, f.notifier.SentOfKind(portfolio.NotificationRebalanced))
}

func TestRunScheduledSkipsPortfoliosNotYetDue(t *testing.T) {
	f := newFixture(t)
	f.profiles.Scores["owner-1"] = allocation.RiskBalanced
	f.profiles.Entitlement["owner-1"] = true

	created := schedulerNow.AddDate(0, -1, 0) // one month old, due in five
	p, err := portfolio.NewPortfolio("owner-1", allocation.RiskBalanced, &allocation.Result{
		Weights: defaultWeights(),
		Metrics: allocation.Metrics{},
	}, created, 6*30*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), p))

	require.NoError(t, f.scheduler.RunScheduled(context.Background()))
	assert.Equal(t, 1, f.repo.Count())
	assert.Empty(t, f.notifier.Sent())
}

func TestRunScheduledIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	// owner-1 has no profile entry; owner-2 is healthy.
	f.profiles.Scores["owner-2"] = allocation.RiskBalanced
	f.profiles.Entitlement["owner-2"] = true
	f.seedPortfolio(t, "owner-1", defaultWeights())
	f.seedPortfolio(t, "owner-2", defaultWeights())

	require.NoError(t, f.scheduler.RunScheduled(context.Background()))

	// owner-2's rebalance went through despite owner-1's failure.
	current, err := f.repo.FindCurrentByOwner(context.Background(), "owner-2")
	require.NoError(t, err)
	assert.NotNil(t, current.PreviousID)
	require.Len(t, f.notifier.SentOfKind(portfolio.NotificationRebalanced), 1)
}

func TestRunScheduledSaveFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.profiles.Scores["owner-1"] = allocation.RiskBalanced
	f.profiles.Entitlement["owner-1"] = true
	f.seedPortfolio(t, "owner-1", defaultWeights())
	f.repo.SaveErr = errors.New(errors.ErrCodeDatabaseError, "connection lost")

	require.NoError(t, f.scheduler.RunScheduled(context.Background()))

	// No success notification when persistence failed.
	assert.Empty(t, f.notifier.SentOfKind(portfolio.NotificationRebalanced))
}

func TestDrawdownScanFiresAlert(t *testing.T) {
	f := newFixture(t)
	p := f.seedPortfolio(t, "owner-1", allocation.WeightVector{"AAA": 0.5, "BBB": 0.5})
	// Holdings fell 20% against their base price of 100.
	f.provider.quotes["AAA"] = marketdata.Quote{Symbol: "AAA", Price: 80}
	f.provider.quotes["BBB"] = marketdata.Quote{Symbol: "BBB", Price: 80}

	require.NoError(t, f.scheduler.RunDrawdownScan(context.Background()))

	sent := f.notifier.SentOfKind(portfolio.NotificationDrawdown)
	require.Len(t, sent, 1)
	assert.Equal(t, p.ID, sent[0].PortfolioID)

	stored, err := f.repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, stored.DrawdownNotified)
}

func TestDrawdownScanIsOneShot(t *testing.T) {
	f := newFixture(t)
	f.seedPortfolio(t, "owner-1", allocation.WeightVector{"AAA": 0.5, "BBB": 0.5})
	f.provider.quotes["AAA"] = marketdata.Quote{Symbol: "AAA", Price: 70}
	f.provider.quotes["BBB"] = marketdata.Quote{Symbol: "BBB", Price: 70}

	require.NoError(t, f.scheduler.RunDrawdownScan(context.Background()))
	require.NoError(t, f.scheduler.RunDrawdownScan(context.Background()))

	assert.Len(t, f.notifier.SentOfKind(portfolio.NotificationDrawdown), 1)
}

func TestDrawdownScanStableValueNoAlert(t *testing.T) {
	f := newFixture(t)
	p := f.seedPortfolio(t, "owner-1", allocation.WeightVector{"AAA": 0.5, "BBB": 0.5})
	// Down 5%: under the 15% threshold.
	f.provider.quotes["AAA"] = marketdata.Quote{Symbol: "AAA", Price: 95}
	f.provider.quotes["BBB"] = marketdata.Quote{Symbol: "BBB", Price: 95}

	require.NoError(t, f.scheduler.RunDrawdownScan(context.Background()))

	assert.Empty(t, f.notifier.SentOfKind(portfolio.NotificationDrawdown))
	stored, err := f.repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, stored.DrawdownNotified)
}
