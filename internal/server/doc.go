// Package server exposes the market data service over HTTP and WebSocket.
//
// Routes:
//   - GET  /                                  service banner
//   - GET  /health                            liveness plus cache counters
//   - GET  /exchanges                         supported exchange descriptors
//   - GET  /markets/:exchange                 tradable symbols on one exchange
//   - GET  /price/:exchange/*symbol           current ticker (rate limited)
//   - GET  /historical/:exchange/*symbol      OHLCV candles (rate limited)
//   - GET  /ws/:exchange/*symbol              streaming ticker session
//   - POST /admin/clear-cache                 drop cached tickers
//   - GET  /admin/cache-stats                 cache counters
//   - GET  /metrics                           Prometheus scrape
//
// Symbol routes use a wildcard because unified symbols contain a slash
// (/price/binance/BTC/USDT). Errors are rendered as one JSON shape with a
// machine-readable kind, a human-readable detail, the status code, and a
// UTC timestamp.
package server
