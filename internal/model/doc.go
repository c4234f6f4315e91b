// Package model defines shared data types used across marketd.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch (upstream exchange convention)
//   - Symbols: unified "BASE/QUOTE" form (e.g. "BTC/USDT"); exchange drivers
//     translate to native identifiers
//   - Monetary values: float64 as reported by upstream REST APIs
package model
