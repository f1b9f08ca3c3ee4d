package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/folira/folira/internal/domain/asset"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// Config holds the FMP client settings.  Values mirror
// config.MarketDataConfig.
type Config struct {
	BaseURL          string
	APIKey           string
	RequestTimeout   time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	CacheTTL         time.Duration
	MinDailyVolume   float64
	MaxUniverseSize  int
	MinLiquidSymbols int
}

type fmpProvider struct {
	cfg        Config
	httpClient *http.Client
	cache      Cache
	metrics    MetricsCollector
	logger     logging.Logger
	group      singleflight.Group
}

// NewFMPProvider constructs the REST-backed Provider.  cache and metrics may
// be nil; nop implementations are substituted.
func NewFMPProvider(cfg Config, cache Cache, metrics MetricsCollector, logger logging.Logger) Provider {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cache == nil {
		cache = NopCache{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &fmpProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cache:      cache,
		metrics:    metrics,
		logger:     logger.Named("marketdata.fmp"),
	}
}

type historicalResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"historical"`
}

func (p *fmpProvider) HistoricalPrices(ctx context.Context, symbol string, from, to common.Date) (*asset.Series, error) {
	endpoint := fmt.Sprintf("historical-price-full/%s", url.PathEscape(symbol))
	query := url.Values{"from": {from.String()}, "to": {to.String()}}
	cacheKey := fmt.Sprintf("historical:%s:%s:%s", symbol, from, to)

	var resp historicalResponse
	if err := p.fetchJSON(ctx, endpoint, query, cacheKey, &resp); err != nil {
		return nil, err
	}
	if len(resp.Historical) == 0 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"no historical prices for %s in [%s, %s]", symbol, from, to)
	}

	series := &asset.Series{
		Symbol:   symbol,
		Domicile: asset.DomicileForSymbol(symbol),
		Points:   make([]asset.PricePoint, 0, len(resp.Historical)),
	}
	for _, h := range resp.Historical {
		d, err := common.ParseDate(h.Date)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMarketDataParseError,
				"unparseable date in historical response for "+symbol)
		}
		series.Points = append(series.Points, asset.PricePoint{Date: d, Close: h.Close})
	}
	// The API returns newest-first; the estimators need chronological order.
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})
	return series, nil
}

func (p *fmpProvider) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	joined := strings.Join(symbols, ",")
	endpoint := "quote/" + url.PathEscape(joined)
	cacheKey := "quotes:" + joined

	var quotes []Quote
	if err := p.fetchJSON(ctx, endpoint, nil, cacheKey, &quotes); err != nil || len(quotes) == 0 {
		if err != nil {
			p.logger.Warn("quote fetch failed, serving fallback quotes",
				logging.Int("symbols", len(symbols)), logging.Err(err))
		}
		p.metrics.IncFallback("quotes")
		return FallbackQuotes(symbols), nil
	}

	out := make(map[string]Quote, len(quotes))
	for _, q := range quotes {
		out[q.Symbol] = q
	}
	// Symbols the API omitted still get a deterministic fallback quote.
	missing := make([]string, 0)
	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		p.metrics.IncFallback("quotes")
		for sym, q := range FallbackQuotes(missing) {
			out[sym] = q
		}
	}
	return out, nil
}

func (p *fmpProvider) LiquidUniverse(ctx context.Context) ([]ETF, error) {
	var listing []ETF
	if err := p.fetchJSON(ctx, "etf/list", nil, "etf:list", &listing); err != nil || len(listing) == 0 {
		if err != nil {
			p.logger.Warn("etf listing fetch failed, serving fallback universe", logging.Err(err))
		}
		p.metrics.IncFallback("universe")
		return FallbackUniverse(), nil
	}

	// Quote at most 100 symbols per screen to keep the request bounded.
	maxQuery := 100
	if len(listing) > maxQuery {
		listing = listing[:maxQuery]
	}
	symbols := make([]string, len(listing))
	bySymbol := make(map[string]ETF, len(listing))
	for i, e := range listing {
		symbols[i] = e.Symbol
		bySymbol[e.Symbol] = e
	}

	quotes, err := p.Quotes(ctx, symbols)
	if err != nil {
		p.metrics.IncFallback("universe")
		return FallbackUniverse(), nil
	}

	liquid := make([]ETF, 0, len(listing))
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok || q.Volume <= p.cfg.MinDailyVolume {
			continue
		}
		liquid = append(liquid, bySymbol[sym])
	}

	if len(liquid) < p.cfg.MinLiquidSymbols {
		p.logger.Warn("too few liquid symbols after screen, serving fallback universe",
			logging.Int("liquid", len(liquid)),
			logging.Int("minimum", p.cfg.MinLiquidSymbols))
		p.metrics.IncFallback("universe")
		return FallbackUniverse(), nil
	}
	if len(liquid) > p.cfg.MaxUniverseSize {
		liquid = liquid[:p.cfg.MaxUniverseSize]
	}
	return liquid, nil
}

// fetchJSON resolves an endpoint through cache, singleflight, and the retry
// loop, decoding the body into dest and caching the raw payload on success.
func (p *fmpProvider) fetchJSON(ctx context.Context, endpoint string, query url.Values, cacheKey string, dest interface{}) error {
	hit, err := p.cache.Get(ctx, cacheKey, dest)
	if err != nil {
		p.logger.Debug("cache read failed", logging.String("key", cacheKey), logging.Err(err))
	}
	if hit {
		p.metrics.IncCacheHit(endpoint)
		return nil
	}
	p.metrics.IncCacheMiss(endpoint)

	body, err, _ := p.group.Do(cacheKey, func() (interface{}, error) {
		return p.doWithRetry(ctx, endpoint, query)
	})
	if err != nil {
		return err
	}

	raw := body.([]byte)
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeMarketDataParseError, "decoding "+endpoint)
	}
	if err := p.cache.Set(ctx, cacheKey, dest, p.cfg.CacheTTL); err != nil {
		p.logger.Debug("cache write failed", logging.String("key", cacheKey), logging.Err(err))
	}
	return nil
}

// doWithRetry performs up to MaxRetries attempts with linear backoff and a
// per-attempt timeout.  5xx responses and transport errors retry; 429 is
// surfaced as rate-limited; other non-200 statuses fail immediately.
func (p *fmpProvider) doWithRetry(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	reqURL := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/" + endpoint
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("apikey", p.cfg.APIKey)
	reqURL += "?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			p.metrics.IncRetry(endpoint)
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeMarketDataUnavailable, "aborted while waiting to retry "+endpoint)
			case <-time.After(p.cfg.RetryBackoff * time.Duration(attempt-1)):
			}
		}

		body, retryable, err := p.attempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		p.logger.Debug("market data attempt failed",
			logging.String("endpoint", endpoint),
			logging.Int("attempt", attempt),
			logging.Err(err))
	}
	return nil, errors.Wrap(lastErr, errors.ErrCodeMarketDataUnavailable,
		fmt.Sprintf("%s failed after %d attempts", endpoint, p.cfg.MaxRetries))
}

func (p *fmpProvider) attempt(ctx context.Context, reqURL string) (body []byte, retryable bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeInternal, "building market data request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeMarketDataUnavailable, "market data request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errors.New(errors.ErrCodeMarketDataRateLimited, "market data provider rate limit")
	case resp.StatusCode >= 500:
		return nil, true, errors.Newf(errors.ErrCodeMarketDataUnavailable, "market data provider returned %d", resp.StatusCode)
	default:
		return nil, false, errors.Newf(errors.ErrCodeMarketDataUnavailable, "market data provider returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeMarketDataUnavailable, "reading market data response")
	}
	return raw, false, nil
}
