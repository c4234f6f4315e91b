package stream

import (
	"context"
	"time"

	"github.com/mkurzov/marketd/internal/model"
)

// Sink receives session payloads. Implementations are not required to be
// safe for concurrent use; a session writes from a single goroutine.
type Sink interface {
	// Send pushes one ticker to the client. An error means the client is
	// gone and the session should close.
	Send(model.Ticker) error
	// SendError pushes an error payload with the same kind and status code
	// the REST surface would have used.
	SendError(kind, detail string, code int) error
}

// TickerSource provides tickers to stream. *provider.Provider satisfies it.
type TickerSource interface {
	GetTicker(ctx context.Context, exchangeID, symbol string) (model.Ticker, error)
}

// TickerSourceFunc is a function adapter for TickerSource.
type TickerSourceFunc func(ctx context.Context, exchangeID, symbol string) (model.Ticker, error)

func (f TickerSourceFunc) GetTicker(ctx context.Context, exchangeID, symbol string) (model.Ticker, error) {
	return f(ctx, exchangeID, symbol)
}

// Config bounds session poll intervals.
type Config struct {
	MinInterval     time.Duration // floor for requested intervals
	MaxInterval     time.Duration // ceiling for requested intervals
	DefaultInterval time.Duration // used when the client requests nothing
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinInterval:     time.Second,
		MaxInterval:     60 * time.Second,
		DefaultInterval: 5 * time.Second,
	}
}

// Interval clamps a requested poll interval into [MinInterval, MaxInterval].
// A requested value <= 0 selects DefaultInterval.
func (c Config) Interval(requested time.Duration) time.Duration {
	c = c.withDefaults()
	if requested <= 0 {
		requested = c.DefaultInterval
	}
	if requested < c.MinInterval {
		requested = c.MinInterval
	}
	if requested > c.MaxInterval {
		requested = c.MaxInterval
	}
	return requested
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.DefaultInterval <= 0 {
		c.DefaultInterval = d.DefaultInterval
	}
	return c
}

// State is a session lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
