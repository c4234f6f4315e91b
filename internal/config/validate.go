package config

import (
	"errors"
	"fmt"
)

// Validate checks that all values are usable. Call after defaults are applied.
func (c *ServiceConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Cache.TickerTTL <= 0 {
		return errors.New("cache.ticker_ttl must be positive")
	}

	if c.RateLimit.Capacity < 1 {
		return errors.New("rate_limit.capacity must be >= 1")
	}
	if c.RateLimit.RefillPerSecond <= 0 {
		return errors.New("rate_limit.refill_per_second must be positive")
	}

	if c.Stream.MinPollInterval <= 0 {
		return errors.New("stream.min_poll_interval must be positive")
	}
	if c.Stream.MaxPollInterval < c.Stream.MinPollInterval {
		return fmt.Errorf("stream.max_poll_interval (%s) cannot be less than min_poll_interval (%s)",
			c.Stream.MaxPollInterval, c.Stream.MinPollInterval)
	}
	if c.Stream.DefaultPollInterval < c.Stream.MinPollInterval || c.Stream.DefaultPollInterval > c.Stream.MaxPollInterval {
		return fmt.Errorf("stream.default_poll_interval (%s) must be between min_poll_interval and max_poll_interval",
			c.Stream.DefaultPollInterval)
	}

	if c.Exchanges.Timeout <= 0 {
		return errors.New("exchanges.timeout must be positive")
	}
	if c.Exchanges.MaxRetries < 0 {
		return errors.New("exchanges.max_retries must be >= 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	return nil
}
