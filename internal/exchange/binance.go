package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mkurzov/marketd/internal/model"
)

const (
	binanceName    = "binance"
	binanceBaseURL = "https://api.binance.com"
)

// binanceTimeframes maps unified timeframes to Binance kline intervals.
var binanceTimeframes = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h", "8h": "8h", "12h": "12h",
	"1d": "1d", "3d": "3d", "1w": "1w", "1M": "1M",
}

// Binance serves market data from the Binance spot REST API.
type Binance struct {
	rest
}

// NewBinance creates a Binance driver.
func NewBinance(opts ...Option) *Binance {
	return &Binance{rest: newRest(binanceBaseURL, opts...)}
}

// BinanceInfo describes the Binance driver for registry listings.
func BinanceInfo() model.ExchangeInfo {
	return model.ExchangeInfo{
		ID:         binanceName,
		Name:       "Binance",
		HasOHLCV:   true,
		Timeframes: sortedTimeframes(binanceTimeframes),
	}
}

func (b *Binance) Name() string { return binanceName }

// binanceTicker from GET /api/v3/ticker/24hr
type binanceTicker struct {
	Symbol    string `json:"symbol"`
	HighPrice string `json:"highPrice"`
	LowPrice  string `json:"lowPrice"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"`
}

// FetchTicker returns the 24h rolling ticker for a unified symbol.
func (b *Binance) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	q := url.Values{"symbol": {binanceSymbol(symbol)}}

	var resp binanceTicker
	if err := b.get(ctx, "/api/v3/ticker/24hr", q, &resp); err != nil {
		return model.Ticker{}, b.mapError(err)
	}

	p := &floatParser{}
	t := model.Ticker{
		Symbol:    symbol,
		Timestamp: resp.CloseTime,
		Datetime:  model.ISO8601(resp.CloseTime),
		High:      p.parse(resp.HighPrice),
		Low:       p.parse(resp.LowPrice),
		Bid:       p.parse(resp.BidPrice),
		Ask:       p.parse(resp.AskPrice),
		Last:      p.parse(resp.LastPrice),
		Volume:    p.parse(resp.Volume),
	}
	if p.err != nil {
		return model.Ticker{}, &Error{
			Kind:     KindExchange,
			Exchange: binanceName,
			Message:  fmt.Sprintf("bad ticker payload: %v", p.err),
		}
	}
	return t, nil
}

// FetchOHLCV returns klines, oldest first. Binance rows carry the open time
// as a millisecond number and prices as decimal strings.
func (b *Binance) FetchOHLCV(ctx context.Context, symbol string, query model.OHLCVQuery) ([]model.Candle, error) {
	interval, ok := binanceTimeframes[query.Timeframe]
	if !ok {
		return nil, unsupportedTimeframe(binanceName, query.Timeframe)
	}

	q := url.Values{
		"symbol":   {binanceSymbol(symbol)},
		"interval": {interval},
	}
	if query.Since > 0 {
		q.Set("startTime", strconv.FormatInt(query.Since, 10))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var rows [][]any
	if err := b.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, b.mapError(err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := rowCandle(row, 0, 1, 2, 3, 4, 5)
		if err != nil {
			return nil, &Error{
				Kind:     KindExchange,
				Exchange: binanceName,
				Message:  fmt.Sprintf("bad kline row: %v", err),
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// binanceExchangeInfo from GET /api/v3/exchangeInfo
type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
		Base   string `json:"baseAsset"`
		Quote  string `json:"quoteAsset"`
	} `json:"symbols"`
}

// ListMarkets returns all symbols currently open for trading.
func (b *Binance) ListMarkets(ctx context.Context) ([]string, error) {
	var resp binanceExchangeInfo
	if err := b.get(ctx, "/api/v3/exchangeInfo", nil, &resp); err != nil {
		return nil, b.mapError(err)
	}

	symbols := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, s.Base+"/"+s.Quote)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// binanceError is the error envelope: {"code":-1121,"msg":"Invalid symbol."}
type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (b *Binance) mapError(err error) error {
	return classify(binanceName, err, func(api *apiError) *Error {
		var be binanceError
		if json.Unmarshal(api.body, &be) != nil || be.Msg == "" {
			return nil
		}
		// -1121: unknown symbol; -1100/-1130: bad parameter value
		if be.Code == -1121 {
			return &Error{Kind: KindBadSymbol, Exchange: binanceName, Message: be.Msg}
		}
		if api.status < 500 && api.status != 429 && api.status != 418 {
			return &Error{Kind: KindExchange, Exchange: binanceName, Message: be.Msg}
		}
		return nil
	})
}

// binanceSymbol converts "BTC/USDT" to Binance's "BTCUSDT" form.
func binanceSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// rowCandle builds a candle from a JSON array row given per-field indices.
func rowCandle(row []any, ts, o, h, l, c, v int) (model.Candle, error) {
	maxIdx := ts
	for _, i := range []int{o, h, l, c, v} {
		if i > maxIdx {
			maxIdx = i
		}
	}
	if len(row) <= maxIdx {
		return model.Candle{}, fmt.Errorf("row has %d fields, want at least %d", len(row), maxIdx+1)
	}

	var candle model.Candle
	tsF, err := anyFloat(row[ts])
	if err != nil {
		return model.Candle{}, fmt.Errorf("timestamp: %w", err)
	}
	candle.Timestamp = int64(tsF)

	for _, f := range []struct {
		idx int
		dst *float64
	}{
		{o, &candle.Open}, {h, &candle.High}, {l, &candle.Low}, {c, &candle.Close}, {v, &candle.Volume},
	} {
		val, err := anyFloat(row[f.idx])
		if err != nil {
			return model.Candle{}, err
		}
		*f.dst = val
	}
	return candle, nil
}
