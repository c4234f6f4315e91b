package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Config holds token bucket parameters shared by all buckets.
type Config struct {
	Capacity        float64       // Burst size; also the fill level of new buckets
	RefillPerSecond float64       // Sustained rate; 0 means buckets never refill
	IdleTTL         time.Duration // Janitor evicts buckets idle this long; <= 0 disables
}

// Limiter tracks one token bucket per client identifier.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config
	logger  *slog.Logger

	now func() time.Time // replaced in tests

	// Stats
	allowed int64
	denied  int64
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// New creates a limiter. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether one token is available for id, consuming it if so.
func (l *Limiter) Allow(id string) bool {
	return l.AllowN(id, 1)
}

// AllowN reports whether cost tokens are available for id, consuming them if
// so. A denied call consumes nothing.
func (l *Limiter) AllowN(id string, cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[id]
	if !ok {
		b = &bucket{tokens: l.cfg.Capacity, lastRefill: now}
		l.buckets[id] = b
	} else if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = min(l.cfg.Capacity, b.tokens+elapsed.Seconds()*l.cfg.RefillPerSecond)
		b.lastRefill = now
	}
	b.lastSeen = now

	if b.tokens >= cost {
		b.tokens -= cost
		l.allowed++
		return true
	}
	l.denied++
	return false
}

// RetryAfter returns how long a fully drained bucket needs to accumulate one
// token, rounded up to whole seconds. Returns 0 when buckets never refill.
func (l *Limiter) RetryAfter() time.Duration {
	if l.cfg.RefillPerSecond <= 0 {
		return 0
	}
	secs := math.Ceil(1 / l.cfg.RefillPerSecond)
	return time.Duration(secs) * time.Second
}

// Reset drops the bucket for id. The next call from id starts a fresh bucket
// at full capacity.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, id)
}

// ResetAll drops every bucket. Counters are preserved.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*bucket)
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stats returns a snapshot of limiter counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Buckets: len(l.buckets),
		Allowed: l.allowed,
		Denied:  l.denied,
	}
}

// Stats contains limiter counters over the process lifetime.
type Stats struct {
	Buckets int   `json:"buckets"`
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// StartJanitor launches a background goroutine that periodically evicts idle
// buckets until ctx is cancelled. No-op when IdleTTL or every is not positive.
func (l *Limiter) StartJanitor(ctx context.Context, every time.Duration) {
	if l.cfg.IdleTTL <= 0 || every <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if removed := l.sweep(); removed > 0 {
					l.logger.Debug("evicted idle rate limit buckets", "removed", removed)
				}
			}
		}
	}()
}

// sweep removes buckets idle longer than IdleTTL and returns how many.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTTL)
	removed := 0
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}
