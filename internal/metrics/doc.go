// Package metrics holds the Prometheus collectors shared across the service.
//
// Leaf packages (cache, ratelimit) stay metrics-free and expose Stats()
// snapshots instead; the provider, middleware, and stream sessions increment
// these collectors, and CacheCollector bridges cache snapshots into the
// registry at scrape time.
package metrics
