// Package ratelimit provides per-client token bucket rate limiting.
//
// Each client identifier owns an independent bucket, created on first use at
// full capacity. Tokens refill lazily on access at a fixed rate and a request
// is admitted when enough tokens are available; denied requests consume
// nothing. An optional janitor evicts buckets that have been idle longer than
// the configured TTL so abandoned clients do not accumulate.
package ratelimit
