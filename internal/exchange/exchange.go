package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/mkurzov/marketd/internal/model"
)

// Client is the market data capability one exchange driver provides.
type Client interface {
	// Name returns the registry identifier (e.g. "binance").
	Name() string

	// FetchTicker returns the current ticker for a unified symbol.
	FetchTicker(ctx context.Context, symbol string) (model.Ticker, error)

	// FetchOHLCV returns historical candles, oldest first.
	FetchOHLCV(ctx context.Context, symbol string, q model.OHLCVQuery) ([]model.Candle, error)

	// ListMarkets returns the tradeable unified symbols, sorted.
	ListMarkets(ctx context.Context) ([]string, error)
}

// Kind classifies a failed exchange operation.
type Kind string

const (
	// KindUnsupported means the exchange id is not in the registry.
	KindUnsupported Kind = "unsupported_exchange"
	// KindBadSymbol means the exchange rejected the symbol.
	KindBadSymbol Kind = "bad_symbol"
	// KindNetwork means the exchange could not be reached.
	KindNetwork Kind = "network"
	// KindExchange means the exchange answered with an error or an
	// undecodable payload.
	KindExchange Kind = "exchange"
	// KindRateLimited means the exchange throttled this client.
	KindRateLimited Kind = "rate_limited"
)

// Error describes a failed exchange operation.
type Error struct {
	Kind     Kind
	Exchange string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Exchange, e.Kind, e.Message)
}

// KindOf extracts the Kind from err, or "" when err carries no Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// unsupportedTimeframe builds the rejection for a timeframe the exchange
// cannot serve.
func unsupportedTimeframe(exchange, tf string) *Error {
	return &Error{
		Kind:     KindExchange,
		Exchange: exchange,
		Message:  fmt.Sprintf("timeframe %q not supported", tf),
	}
}

// timeframeMinutes converts a unified timeframe ("15m", "4h", "1d", ...) to
// minutes. Units: m, h, d, w, M (month = 30 days). Returns 0 when tf is not
// parseable.
func timeframeMinutes(tf string) int {
	if len(tf) < 2 {
		return 0
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0
	}
	switch tf[len(tf)-1] {
	case 'm':
		return n
	case 'h':
		return n * 60
	case 'd':
		return n * 60 * 24
	case 'w':
		return n * 60 * 24 * 7
	case 'M':
		return n * 60 * 24 * 30
	}
	return 0
}

// sortedTimeframes returns the map keys ordered from shortest to longest bar.
func sortedTimeframes[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return timeframeMinutes(keys[i]) < timeframeMinutes(keys[j])
	})
	return keys
}
