package exchange

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mkurzov/marketd/internal/model"
)

const (
	coinbaseName    = "coinbase"
	coinbaseBaseURL = "https://api.exchange.coinbase.com"

	// Coinbase returns at most 300 candles per request.
	coinbaseMaxCandles = 300
)

// coinbaseTimeframes maps unified timeframes to Coinbase candle granularity
// in seconds.
var coinbaseTimeframes = map[string]int64{
	"1m": 60, "5m": 300, "15m": 900, "1h": 3600, "6h": 21600, "1d": 86400,
}

// Coinbase serves market data from the Coinbase Exchange REST API.
type Coinbase struct {
	rest
}

// NewCoinbase creates a Coinbase driver.
func NewCoinbase(opts ...Option) *Coinbase {
	return &Coinbase{rest: newRest(coinbaseBaseURL, opts...)}
}

// CoinbaseInfo describes the Coinbase driver for registry listings.
func CoinbaseInfo() model.ExchangeInfo {
	return model.ExchangeInfo{
		ID:         coinbaseName,
		Name:       "Coinbase Exchange",
		HasOHLCV:   true,
		Timeframes: sortedTimeframes(coinbaseTimeframes),
	}
}

func (c *Coinbase) Name() string { return coinbaseName }

// coinbaseTicker from GET /products/{id}/ticker
type coinbaseTicker struct {
	Price  string `json:"price"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Volume string `json:"volume"`
	Time   string `json:"time"`
}

// coinbaseStats from GET /products/{id}/stats (24h window)
type coinbaseStats struct {
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Last   string `json:"last"`
	Volume string `json:"volume"`
}

// FetchTicker combines the product ticker and 24h stats endpoints: the ticker
// alone carries no high/low.
func (c *Coinbase) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	product := coinbaseProduct(symbol)

	var tick coinbaseTicker
	if err := c.get(ctx, "/products/"+product+"/ticker", nil, &tick); err != nil {
		return model.Ticker{}, c.mapError(err)
	}
	var stats coinbaseStats
	if err := c.get(ctx, "/products/"+product+"/stats", nil, &stats); err != nil {
		return model.Ticker{}, c.mapError(err)
	}

	ts := time.Now().UnixMilli()
	if parsed, err := time.Parse(time.RFC3339Nano, tick.Time); err == nil {
		ts = parsed.UnixMilli()
	}

	p := &floatParser{}
	t := model.Ticker{
		Symbol:    symbol,
		Timestamp: ts,
		Datetime:  model.ISO8601(ts),
		High:      p.parse(stats.High),
		Low:       p.parse(stats.Low),
		Bid:       p.parse(tick.Bid),
		Ask:       p.parse(tick.Ask),
		Last:      p.parse(tick.Price),
		Volume:    p.parse(tick.Volume),
	}
	if t.Last == 0 {
		t.Last = p.parse(stats.Last)
	}
	if p.err != nil {
		return model.Ticker{}, &Error{
			Kind:     KindExchange,
			Exchange: coinbaseName,
			Message:  fmt.Sprintf("bad ticker payload: %v", p.err),
		}
	}
	return t, nil
}

// FetchOHLCV returns candles, oldest first. Coinbase rows are numeric arrays
// of [time, low, high, open, close, volume] with second timestamps, newest
// first; it also ignores start unless end is present, so both are derived
// from the query.
func (c *Coinbase) FetchOHLCV(ctx context.Context, symbol string, query model.OHLCVQuery) ([]model.Candle, error) {
	granularity, ok := coinbaseTimeframes[query.Timeframe]
	if !ok {
		return nil, unsupportedTimeframe(coinbaseName, query.Timeframe)
	}

	limit := query.Limit
	if limit <= 0 || limit > coinbaseMaxCandles {
		limit = coinbaseMaxCandles
	}

	q := url.Values{"granularity": {fmt.Sprintf("%d", granularity)}}
	if query.Since > 0 {
		start := query.Since
		end := start + int64(limit)*granularity*1000
		q.Set("start", time.UnixMilli(start).UTC().Format(time.RFC3339))
		q.Set("end", time.UnixMilli(end).UTC().Format(time.RFC3339))
	}

	var rows [][]any
	if err := c.get(ctx, "/products/"+coinbaseProduct(symbol)+"/candles", q, &rows); err != nil {
		return nil, c.mapError(err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		cd, err := rowCandle(row, 0, 3, 2, 1, 4, 5)
		if err != nil {
			return nil, &Error{
				Kind:     KindExchange,
				Exchange: coinbaseName,
				Message:  fmt.Sprintf("bad candle row: %v", err),
			}
		}
		cd.Timestamp *= 1000
		candles = append(candles, cd)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })

	if query.Limit > 0 && len(candles) > query.Limit {
		if query.Since > 0 {
			candles = candles[:query.Limit]
		} else {
			candles = candles[len(candles)-query.Limit:]
		}
	}
	return candles, nil
}

// coinbaseProducts from GET /products
type coinbaseProducts []struct {
	ID     string `json:"id"`
	Base   string `json:"base_currency"`
	Quote  string `json:"quote_currency"`
	Status string `json:"status"`
}

// ListMarkets returns all products currently online.
func (c *Coinbase) ListMarkets(ctx context.Context) ([]string, error) {
	var resp coinbaseProducts
	if err := c.get(ctx, "/products", nil, &resp); err != nil {
		return nil, c.mapError(err)
	}

	symbols := make([]string, 0, len(resp))
	for _, prod := range resp {
		if prod.Status != "online" {
			continue
		}
		symbols = append(symbols, prod.Base+"/"+prod.Quote)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (c *Coinbase) mapError(err error) error {
	return classify(coinbaseName, err, func(api *apiError) *Error {
		// Product routes 404 for unknown products.
		if api.status == 404 {
			return &Error{Kind: KindBadSymbol, Exchange: coinbaseName, Message: api.Error()}
		}
		return nil
	})
}

// coinbaseProduct converts "BTC/USD" to Coinbase's "BTC-USD" form.
func coinbaseProduct(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}
