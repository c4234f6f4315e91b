package provider

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mkurzov/marketd/internal/cache"
	"github.com/mkurzov/marketd/internal/exchange"
	"github.com/mkurzov/marketd/internal/metrics"
	"github.com/mkurzov/marketd/internal/model"
)

const (
	// DefaultOHLCVLimit applies when a query asks for no particular number
	// of candles.
	DefaultOHLCVLimit = 100
	// MaxOHLCVLimit caps the number of candles a single query may request.
	MaxOHLCVLimit = 1000
	// DefaultTimeframe applies when a query names no timeframe.
	DefaultTimeframe = "1d"

	defaultTickerTTL = 10 * time.Second
)

// Upstream operation labels for metrics.
const (
	opTicker  = "ticker"
	opOHLCV   = "ohlcv"
	opMarkets = "markets"
)

// Config tunes a Provider.
type Config struct {
	TickerTTL         time.Duration // ticker cache lifetime, 0 = 10s
	CacheMaxSize      int           // ticker cache entry bound, <= 0 = unbounded
	DefaultOHLCVLimit int           // candles served when a query has no limit
	MaxOHLCVLimit     int           // hard cap on candles per query
}

// Provider answers market data requests, caching tickers and delegating
// misses to the exchange drivers.
type Provider struct {
	tickers  *cache.Cache[model.Ticker]
	registry *exchange.Registry
	cfg      Config
	logger   *slog.Logger
}

// New creates a Provider. Zero Config limits fall back to the package
// defaults; a nil logger falls back to slog.Default().
func New(cfg Config, registry *exchange.Registry, logger *slog.Logger) *Provider {
	if cfg.TickerTTL == 0 {
		cfg.TickerTTL = defaultTickerTTL
	}
	if cfg.DefaultOHLCVLimit <= 0 {
		cfg.DefaultOHLCVLimit = DefaultOHLCVLimit
	}
	if cfg.MaxOHLCVLimit <= 0 {
		cfg.MaxOHLCVLimit = MaxOHLCVLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		tickers:  cache.New[model.Ticker](cfg.TickerTTL, cfg.CacheMaxSize),
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// GetTicker returns the current ticker for symbol on an exchange, served
// from cache when a live entry exists.
func (p *Provider) GetTicker(ctx context.Context, exchangeID, symbol string) (model.Ticker, error) {
	if err := p.validate(exchangeID, symbol); err != nil {
		return model.Ticker{}, err
	}

	key := tickerKey(exchangeID, symbol)
	if tick, ok := p.tickers.Get(key); ok {
		p.logger.Debug("ticker served from cache",
			"exchange", exchangeID,
			"symbol", symbol,
		)
		return tick, nil
	}

	client, err := p.registry.Client(exchangeID)
	if err != nil {
		return model.Ticker{}, normalize(err)
	}

	start := time.Now()
	tick, err := client.FetchTicker(ctx, symbol)
	metrics.ObserveUpstream(exchangeID, opTicker, time.Since(start), err)
	if err != nil {
		perr := normalize(err)
		p.logger.Warn("ticker fetch failed",
			"exchange", exchangeID,
			"symbol", symbol,
			"kind", string(perr.Kind),
			"error", err,
		)
		return model.Ticker{}, perr
	}

	p.tickers.Set(key, tick)
	return tick, nil
}

// GetOHLCV returns candles for symbol on an exchange, oldest first. Results
// are never cached: the (timeframe, since, limit) space is unbounded. A
// query without a timeframe gets DefaultTimeframe; a query without a limit
// gets the configured default, and any limit is clamped to the configured
// maximum.
func (p *Provider) GetOHLCV(ctx context.Context, exchangeID, symbol string, query model.OHLCVQuery) ([]model.Candle, error) {
	if err := p.validate(exchangeID, symbol); err != nil {
		return nil, err
	}

	if query.Timeframe == "" {
		query.Timeframe = DefaultTimeframe
	}
	if query.Limit <= 0 {
		query.Limit = p.cfg.DefaultOHLCVLimit
	}
	if query.Limit > p.cfg.MaxOHLCVLimit {
		query.Limit = p.cfg.MaxOHLCVLimit
	}

	client, err := p.registry.Client(exchangeID)
	if err != nil {
		return nil, normalize(err)
	}

	start := time.Now()
	candles, err := client.FetchOHLCV(ctx, symbol, query)
	metrics.ObserveUpstream(exchangeID, opOHLCV, time.Since(start), err)
	if err != nil {
		perr := normalize(err)
		p.logger.Warn("ohlcv fetch failed",
			"exchange", exchangeID,
			"symbol", symbol,
			"timeframe", query.Timeframe,
			"kind", string(perr.Kind),
			"error", err,
		)
		return nil, perr
	}
	return candles, nil
}

// ListExchanges returns descriptors for every registered exchange, sorted
// by id.
func (p *Provider) ListExchanges() []model.ExchangeInfo {
	return p.registry.Infos()
}

// ListMarkets returns the symbols currently tradable on one exchange.
func (p *Provider) ListMarkets(ctx context.Context, exchangeID string) ([]string, error) {
	if !p.registry.Supported(exchangeID) {
		return nil, errUnsupportedExchange(exchangeID)
	}

	client, err := p.registry.Client(exchangeID)
	if err != nil {
		return nil, normalize(err)
	}

	start := time.Now()
	symbols, err := client.ListMarkets(ctx)
	metrics.ObserveUpstream(exchangeID, opMarkets, time.Since(start), err)
	if err != nil {
		perr := normalize(err)
		p.logger.Warn("market list failed",
			"exchange", exchangeID,
			"kind", string(perr.Kind),
			"error", err,
		)
		return nil, perr
	}
	return symbols, nil
}

// CacheStats returns the ticker cache counters.
func (p *Provider) CacheStats() cache.Stats {
	return p.tickers.Stats()
}

// ClearCaches drops all cached tickers.
func (p *Provider) ClearCaches() {
	p.tickers.Clear()
	p.logger.Info("caches cleared")
}

// validate checks the exchange before the symbol: an unknown exchange wins
// even when the symbol is also bad.
func (p *Provider) validate(exchangeID, symbol string) error {
	if !p.registry.Supported(exchangeID) {
		return errUnsupportedExchange(exchangeID)
	}
	if !validSymbol(symbol) {
		return errInvalidSymbol(symbol)
	}
	return nil
}

// validSymbol reports whether symbol has the unified "BASE/QUOTE" form with
// both parts non-empty.
func validSymbol(symbol string) bool {
	base, quote, ok := strings.Cut(symbol, "/")
	return ok && base != "" && quote != ""
}

func tickerKey(exchangeID, symbol string) string {
	return exchangeID + ":" + symbol + ":ticker"
}
