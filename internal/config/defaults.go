package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8000
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultTickerTTL          = 10 * time.Second
	DefaultCacheMaxSize       = 1000
	DefaultRateLimitCapacity  = 100
	DefaultRefillPerSecond    = 100.0 / 60.0 // 100 requests per minute
	DefaultBucketIdleTTL      = 10 * time.Minute
	DefaultMinPollInterval    = 1 * time.Second
	DefaultMaxPollInterval    = 60 * time.Second
	DefaultPollInterval       = 5 * time.Second
	DefaultExchangeTimeout    = 30 * time.Second
	DefaultExchangeMaxRetries = 2
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

func (c *ServiceConfig) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Cache defaults
	if c.Cache.TickerTTL == 0 {
		c.Cache.TickerTTL = DefaultTickerTTL
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = DefaultCacheMaxSize
	}

	// Rate limit defaults
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = DefaultRateLimitCapacity
	}
	if c.RateLimit.RefillPerSecond == 0 {
		c.RateLimit.RefillPerSecond = DefaultRefillPerSecond
	}
	if c.RateLimit.IdleTTL == 0 {
		c.RateLimit.IdleTTL = DefaultBucketIdleTTL
	}

	// Stream defaults
	if c.Stream.MinPollInterval == 0 {
		c.Stream.MinPollInterval = DefaultMinPollInterval
	}
	if c.Stream.MaxPollInterval == 0 {
		c.Stream.MaxPollInterval = DefaultMaxPollInterval
	}
	if c.Stream.DefaultPollInterval == 0 {
		c.Stream.DefaultPollInterval = DefaultPollInterval
	}

	// Exchange defaults
	if c.Exchanges.Timeout == 0 {
		c.Exchanges.Timeout = DefaultExchangeTimeout
	}
	if c.Exchanges.MaxRetries == 0 {
		c.Exchanges.MaxRetries = DefaultExchangeMaxRetries
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
