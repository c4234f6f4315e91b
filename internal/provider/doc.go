// Package provider orchestrates market data acquisition across exchanges.
//
// The Provider validates requests, answers ticker reads from a TTL cache,
// and delegates misses to the exchange drivers. Every failure is normalized
// into an Error whose Kind maps onto an HTTP status, so the transport layer
// renders errors without inspecting driver internals.
//
// Tickers are cached per (exchange, symbol); OHLCV responses are never
// cached because the (timeframe, since, limit) parameter space is unbounded.
package provider
