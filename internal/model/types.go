package model

import "time"

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// Ticker is a point-in-time price snapshot for one symbol on one exchange.
type Ticker struct {
	Symbol    string  `json:"symbol"`    // Unified symbol (e.g. "BTC/USDT")
	Timestamp int64   `json:"timestamp"` // Exchange timestamp (ms since epoch)
	Datetime  string  `json:"datetime"`  // Timestamp in ISO 8601 UTC
	High      float64 `json:"high"`      // 24h high
	Low       float64 `json:"low"`       // 24h low
	Bid       float64 `json:"bid"`       // Best bid
	Ask       float64 `json:"ask"`       // Best ask
	Last      float64 `json:"last"`      // Last trade price
	Volume    float64 `json:"volume"`    // 24h base asset volume
}

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // Bar open time (ms since epoch)
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// OHLCVQuery narrows a historical candle request.
type OHLCVQuery struct {
	Timeframe string // Bar size (e.g. "1m", "1h", "1d")
	Since     int64  // Earliest bar open time (ms since epoch), 0 = exchange default
	Limit     int    // Maximum bars to return, 0 = service default
}

// ExchangeInfo describes one exchange known to the service.
type ExchangeInfo struct {
	ID         string   `json:"id"`         // Registry identifier (e.g. "binance")
	Name       string   `json:"name"`       // Display name
	HasOHLCV   bool     `json:"has_ohlcv"`  // Whether historical candles are available
	Timeframes []string `json:"timeframes"` // Supported OHLCV timeframes, sorted
}

// -----------------------------------------------------------------------------
// Wire Types
// -----------------------------------------------------------------------------

// ErrorResponse is the JSON body returned for every API error, REST and
// WebSocket alike.
type ErrorResponse struct {
	Error      string `json:"error"`       // Stable error kind (e.g. "invalid_symbol")
	Detail     string `json:"detail"`      // Human-readable description
	StatusCode int    `json:"status_code"` // HTTP status the kind maps to
	Timestamp  string `json:"timestamp"`   // ISO 8601 UTC
}

// iso8601Millis is the wire layout for Datetime fields: millisecond precision,
// trailing Z in UTC.
const iso8601Millis = "2006-01-02T15:04:05.000Z07:00"

// ISO8601 renders a millisecond Unix timestamp in the wire datetime layout.
func ISO8601(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(iso8601Millis)
}

// Now returns the current time in the wire datetime layout. Used for
// ErrorResponse and health timestamps.
func Now() string {
	return time.Now().UTC().Format(iso8601Millis)
}
