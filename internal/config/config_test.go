package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9100
cache:
  ticker_ttl: 30s
  max_size: 500
rate_limit:
  capacity: 20
  refill_per_second: 0.5
stream:
  default_poll_interval: 10s
log:
  level: debug
  format: text
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Cache.TickerTTL != 30*time.Second {
		t.Errorf("Cache.TickerTTL = %v, want 30s", cfg.Cache.TickerTTL)
	}
	if cfg.RateLimit.RefillPerSecond != 0.5 {
		t.Errorf("RateLimit.RefillPerSecond = %v, want 0.5", cfg.RateLimit.RefillPerSecond)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_BINANCE_URL", "http://localhost:9999")

	yaml := `
exchanges:
  binance:
    base_url: ${TEST_BINANCE_URL}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Exchanges.Binance.BaseURL != "http://localhost:9999" {
		t.Errorf("Exchanges.Binance.BaseURL = %q, want %q", cfg.Exchanges.Binance.BaseURL, "http://localhost:9999")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
server:
  port: 9100
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Explicit value survives
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}

	// Check defaults were applied
	if cfg.Cache.TickerTTL != DefaultTickerTTL {
		t.Errorf("Cache.TickerTTL = %v, want default %v", cfg.Cache.TickerTTL, DefaultTickerTTL)
	}
	if cfg.Cache.MaxSize != DefaultCacheMaxSize {
		t.Errorf("Cache.MaxSize = %d, want default %d", cfg.Cache.MaxSize, DefaultCacheMaxSize)
	}
	if cfg.RateLimit.Capacity != DefaultRateLimitCapacity {
		t.Errorf("RateLimit.Capacity = %v, want default %v", cfg.RateLimit.Capacity, float64(DefaultRateLimitCapacity))
	}
	if cfg.Stream.DefaultPollInterval != DefaultPollInterval {
		t.Errorf("Stream.DefaultPollInterval = %v, want default %v", cfg.Stream.DefaultPollInterval, DefaultPollInterval)
	}
	if cfg.Exchanges.Timeout != DefaultExchangeTimeout {
		t.Errorf("Exchanges.Timeout = %v, want default %v", cfg.Exchanges.Timeout, DefaultExchangeTimeout)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestValidate(t *testing.T) {
	valid := func() ServiceConfig {
		var c ServiceConfig
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *ServiceConfig) {},
			wantErr: "",
		},
		{
			name:    "port out of range",
			mutate:  func(c *ServiceConfig) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "negative ticker ttl",
			mutate:  func(c *ServiceConfig) { c.Cache.TickerTTL = -time.Second },
			wantErr: "cache.ticker_ttl must be positive",
		},
		{
			name:    "capacity below one",
			mutate:  func(c *ServiceConfig) { c.RateLimit.Capacity = 0.5 },
			wantErr: "rate_limit.capacity must be >= 1",
		},
		{
			name:    "negative refill rate",
			mutate:  func(c *ServiceConfig) { c.RateLimit.RefillPerSecond = -1 },
			wantErr: "rate_limit.refill_per_second must be positive",
		},
		{
			name: "max poll below min poll",
			mutate: func(c *ServiceConfig) {
				c.Stream.MinPollInterval = 10 * time.Second
				c.Stream.MaxPollInterval = 5 * time.Second
			},
			wantErr: "stream.max_poll_interval (5s) cannot be less than min_poll_interval (10s)",
		},
		{
			name:    "default poll outside range",
			mutate:  func(c *ServiceConfig) { c.Stream.DefaultPollInterval = 2 * time.Minute },
			wantErr: "stream.default_poll_interval (2m0s) must be between min_poll_interval and max_poll_interval",
		},
		{
			name:    "bad log format",
			mutate:  func(c *ServiceConfig) { c.Log.Format = "xml" },
			wantErr: `log.format must be json or text, got "xml"`,
		},
		{
			name:    "bad log level",
			mutate:  func(c *ServiceConfig) { c.Log.Level = "trace" },
			wantErr: `log.level must be debug, info, warn, or error, got "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
