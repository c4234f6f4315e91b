package config

import (
	"net"
	"strconv"
	"time"
)

// ServiceConfig is the root configuration for a marketd instance.
type ServiceConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stream    StreamConfig    `yaml:"stream"`
	Exchanges ExchangesConfig `yaml:"exchanges"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the host:port the server binds.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CacheConfig holds ticker cache settings.
type CacheConfig struct {
	TickerTTL time.Duration `yaml:"ticker_ttl"`
	MaxSize   int           `yaml:"max_size"` // negative = unbounded
}

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	Capacity        float64       `yaml:"capacity"`          // Burst size (tokens)
	RefillPerSecond float64       `yaml:"refill_per_second"` // Sustained rate (tokens/second)
	IdleTTL         time.Duration `yaml:"idle_ttl"`          // Evict buckets idle this long; negative disables
}

// StreamConfig holds WebSocket polling session settings.
type StreamConfig struct {
	MinPollInterval     time.Duration `yaml:"min_poll_interval"`
	MaxPollInterval     time.Duration `yaml:"max_poll_interval"`
	DefaultPollInterval time.Duration `yaml:"default_poll_interval"`
}

// ExchangesConfig holds upstream exchange client settings.
type ExchangesConfig struct {
	Timeout    time.Duration  `yaml:"timeout"`
	MaxRetries int            `yaml:"max_retries"`
	Binance    EndpointConfig `yaml:"binance"`
	Coinbase   EndpointConfig `yaml:"coinbase"`
	Kraken     EndpointConfig `yaml:"kraken"`
}

// EndpointConfig overrides a single exchange endpoint. Empty fields keep the
// driver's production URL.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}
