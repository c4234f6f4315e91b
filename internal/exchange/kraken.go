package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mkurzov/marketd/internal/model"
)

const (
	krakenName    = "kraken"
	krakenBaseURL = "https://api.kraken.com"
)

// krakenTimeframes maps unified timeframes to Kraken OHLC intervals in minutes.
var krakenTimeframes = map[string]int{
	"1m": 1, "5m": 5, "15m": 15, "30m": 30,
	"1h": 60, "4h": 240, "1d": 1440, "1w": 10080, "2w": 21600,
}

// krakenAliases maps unified asset codes to Kraken's legacy codes.
var krakenAliases = map[string]string{"BTC": "XBT", "DOGE": "XDG"}

// krakenAliasesBack is the reverse of krakenAliases.
var krakenAliasesBack = map[string]string{"XBT": "BTC", "XDG": "DOGE"}

// Kraken serves market data from the Kraken public REST API.
type Kraken struct {
	rest
}

// NewKraken creates a Kraken driver.
func NewKraken(opts ...Option) *Kraken {
	return &Kraken{rest: newRest(krakenBaseURL, opts...)}
}

// KrakenInfo describes the Kraken driver for registry listings.
func KrakenInfo() model.ExchangeInfo {
	return model.ExchangeInfo{
		ID:         krakenName,
		Name:       "Kraken",
		HasOHLCV:   true,
		Timeframes: sortedTimeframes(krakenTimeframes),
	}
}

func (k *Kraken) Name() string { return krakenName }

// krakenEnvelope wraps every Kraken response: errors arrive with HTTP 200.
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// call performs a GET and unwraps the Kraken envelope into result.
func (k *Kraken) call(ctx context.Context, path string, q url.Values, result any) error {
	var env krakenEnvelope
	if err := k.get(ctx, path, q, &env); err != nil {
		return k.mapError(err)
	}
	if len(env.Error) > 0 {
		return krakenError(env.Error)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return &Error{Kind: KindExchange, Exchange: krakenName, Message: "decode result: " + err.Error()}
	}
	return nil
}

// krakenTicker from GET /0/public/Ticker. Array fields follow Kraken's
// layout: a/b = [price, whole lot volume, lot volume], c = [price, lot
// volume], v/h/l = [today, last 24 hours].
type krakenTicker struct {
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
	Last   []string `json:"c"`
	Volume []string `json:"v"`
	High   []string `json:"h"`
	Low    []string `json:"l"`
}

// FetchTicker returns the current ticker. Kraken reports no server timestamp,
// so the receive time is used.
func (k *Kraken) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	q := url.Values{"pair": {krakenPair(symbol)}}

	var result map[string]krakenTicker
	if err := k.call(ctx, "/0/public/Ticker", q, &result); err != nil {
		return model.Ticker{}, err
	}

	// One pair requested, one entry back; the result key is Kraken's
	// internal pair name and not worth resolving.
	var tick krakenTicker
	found := false
	for _, v := range result {
		tick = v
		found = true
		break
	}
	if !found {
		return model.Ticker{}, &Error{Kind: KindExchange, Exchange: krakenName, Message: "empty ticker result"}
	}

	ts := time.Now().UnixMilli()
	p := &floatParser{}
	t := model.Ticker{
		Symbol:    symbol,
		Timestamp: ts,
		Datetime:  model.ISO8601(ts),
		High:      p.parse(second(tick.High)),
		Low:       p.parse(second(tick.Low)),
		Bid:       p.parse(first(tick.Bid)),
		Ask:       p.parse(first(tick.Ask)),
		Last:      p.parse(first(tick.Last)),
		Volume:    p.parse(second(tick.Volume)),
	}
	if p.err != nil {
		return model.Ticker{}, &Error{
			Kind:     KindExchange,
			Exchange: krakenName,
			Message:  fmt.Sprintf("bad ticker payload: %v", p.err),
		}
	}
	return t, nil
}

// FetchOHLCV returns candles, oldest first. Kraken rows are [time, open,
// high, low, close, vwap, volume, count] with second timestamps; the result
// object also carries a "last" cursor that is skipped. Kraken has no limit
// parameter, so the window is truncated locally.
func (k *Kraken) FetchOHLCV(ctx context.Context, symbol string, query model.OHLCVQuery) ([]model.Candle, error) {
	interval, ok := krakenTimeframes[query.Timeframe]
	if !ok {
		return nil, unsupportedTimeframe(krakenName, query.Timeframe)
	}

	q := url.Values{
		"pair":     {krakenPair(symbol)},
		"interval": {strconv.Itoa(interval)},
	}
	if query.Since > 0 {
		q.Set("since", strconv.FormatInt(query.Since/1000, 10))
	}

	var result map[string]json.RawMessage
	if err := k.call(ctx, "/0/public/OHLC", q, &result); err != nil {
		return nil, err
	}
	delete(result, "last")

	var rows [][]any
	for _, raw := range result {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, &Error{Kind: KindExchange, Exchange: krakenName, Message: "decode ohlc rows: " + err.Error()}
		}
		break
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := rowCandle(row, 0, 1, 2, 3, 4, 6)
		if err != nil {
			return nil, &Error{
				Kind:     KindExchange,
				Exchange: krakenName,
				Message:  fmt.Sprintf("bad ohlc row: %v", err),
			}
		}
		c.Timestamp *= 1000
		candles = append(candles, c)
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

// krakenPairInfo from GET /0/public/AssetPairs
type krakenPairInfo struct {
	WSName string `json:"wsname"`
	Status string `json:"status"`
}

// ListMarkets returns all pairs currently online.
func (k *Kraken) ListMarkets(ctx context.Context) ([]string, error) {
	var result map[string]krakenPairInfo
	if err := k.call(ctx, "/0/public/AssetPairs", nil, &result); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(result))
	for _, info := range result {
		if info.Status != "online" || info.WSName == "" {
			continue
		}
		base, quote, ok := strings.Cut(info.WSName, "/")
		if !ok {
			continue
		}
		if b, known := krakenAliasesBack[base]; known {
			base = b
		}
		if q, known := krakenAliasesBack[quote]; known {
			quote = q
		}
		symbols = append(symbols, base+"/"+quote)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// krakenError classifies Kraken's error strings.
func krakenError(errs []string) *Error {
	msg := strings.Join(errs, "; ")
	kind := KindExchange
	switch {
	case strings.Contains(msg, "Unknown asset pair"), strings.Contains(msg, "Unknown asset"):
		kind = KindBadSymbol
	case strings.Contains(msg, "Rate limit"), strings.Contains(msg, "Too many requests"):
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Exchange: krakenName, Message: msg}
}

func (k *Kraken) mapError(err error) error {
	return classify(krakenName, err, nil)
}

// krakenPair converts "BTC/USD" to Kraken's "XBTUSD" form.
func krakenPair(symbol string) string {
	base, quote, _ := strings.Cut(strings.ToUpper(symbol), "/")
	if a, ok := krakenAliases[base]; ok {
		base = a
	}
	if a, ok := krakenAliases[quote]; ok {
		quote = a
	}
	return base + quote
}

// first returns the first element of a Kraken array field, or "".
func first(a []string) string {
	if len(a) > 0 {
		return a[0]
	}
	return ""
}

// second returns the second element of a Kraken array field, or "".
func second(a []string) string {
	if len(a) > 1 {
		return a[1]
	}
	return ""
}
