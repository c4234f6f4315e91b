// Package exchange defines the upstream market data contract and its REST drivers.
//
// Supported exchanges:
//   - binance: https://api.binance.com
//   - coinbase: https://api.exchange.coinbase.com
//   - kraken: https://api.kraken.com
//
// Drivers translate unified "BASE/QUOTE" symbols to exchange-native
// identifiers and normalize every failure into an Error carrying a Kind, so
// callers never see raw HTTP or decoding errors.
package exchange
