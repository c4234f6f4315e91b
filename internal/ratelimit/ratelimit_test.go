package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source for refill tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clk := newFakeClock()
	l := New(cfg, nil)
	l.now = clk.Now
	return l, clk
}

func TestAllowWithinCapacity(t *testing.T) {
	l, _ := newTestLimiter(Config{Capacity: 5, RefillPerSecond: 0})

	for i := 0; i < 5; i++ {
		if !l.Allow("client") {
			t.Fatalf("Allow() call %d denied, want allowed", i+1)
		}
	}
	// Capacity 5 with zero refill never admits a sixth request.
	if l.Allow("client") {
		t.Error("Allow() call 6 allowed, want denied")
	}
	if l.Allow("client") {
		t.Error("Allow() call 7 allowed, want denied")
	}
}

func TestRefill(t *testing.T) {
	l, clk := newTestLimiter(Config{Capacity: 10, RefillPerSecond: 1})

	for i := 0; i < 10; i++ {
		if !l.Allow("client") {
			t.Fatalf("Allow() call %d denied during burst, want allowed", i+1)
		}
	}
	if l.Allow("client") {
		t.Fatal("Allow() on drained bucket allowed, want denied")
	}

	// 5 seconds at 1 token/s accumulates exactly 5 tokens.
	clk.Advance(5 * time.Second)
	if !l.AllowN("client", 5) {
		t.Error("AllowN(5) after 5s refill denied, want allowed")
	}
	if l.Allow("client") {
		t.Error("Allow() after refill spent allowed, want denied")
	}
}

func TestTokensCappedAtCapacity(t *testing.T) {
	l, clk := newTestLimiter(Config{Capacity: 3, RefillPerSecond: 100})

	if !l.Allow("client") {
		t.Fatal("first Allow() denied")
	}

	// A long idle period must not bank more than capacity.
	clk.Advance(24 * time.Hour)
	for i := 0; i < 3; i++ {
		if !l.Allow("client") {
			t.Fatalf("Allow() call %d after idle denied, want allowed", i+1)
		}
	}
	if l.Allow("client") {
		t.Error("Allow() beyond capacity allowed, want denied")
	}
}

func TestFractionalRefill(t *testing.T) {
	l, clk := newTestLimiter(Config{Capacity: 1, RefillPerSecond: 0.5})

	if !l.Allow("client") {
		t.Fatal("first Allow() denied")
	}

	clk.Advance(time.Second) // 0.5 tokens
	if l.Allow("client") {
		t.Error("Allow() with half a token allowed, want denied")
	}

	clk.Advance(time.Second) // 1.0 tokens
	if !l.Allow("client") {
		t.Error("Allow() with a whole token denied, want allowed")
	}
}

func TestPerClientIsolation(t *testing.T) {
	l, _ := newTestLimiter(Config{Capacity: 2, RefillPerSecond: 0})

	l.Allow("a")
	l.Allow("a")
	if l.Allow("a") {
		t.Error("Allow(a) beyond capacity allowed, want denied")
	}

	// Draining a must not affect b.
	if !l.Allow("b") {
		t.Error("Allow(b) denied, want fresh bucket at capacity")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestDenyConsumesNothing(t *testing.T) {
	l, clk := newTestLimiter(Config{Capacity: 1, RefillPerSecond: 1})

	l.Allow("client")

	// Repeated denials while empty must not push tokens negative: one second
	// of refill is one whole token regardless of how many denials happened.
	for i := 0; i < 10; i++ {
		if l.Allow("client") {
			t.Fatalf("Allow() on empty bucket allowed at attempt %d", i)
		}
	}
	clk.Advance(time.Second)
	if !l.Allow("client") {
		t.Error("Allow() after 1s refill denied, want allowed")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want time.Duration
	}{
		{"two per second", 2, time.Second},
		{"one per five seconds", 0.2, 5 * time.Second},
		{"original default", 100.0 / 60.0, time.Second},
		{"no refill", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLimiter(Config{Capacity: 1, RefillPerSecond: tt.rate})
			if got := l.RetryAfter(); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(Config{Capacity: 1, RefillPerSecond: 0})

	l.Allow("client")
	if l.Allow("client") {
		t.Fatal("Allow() on drained bucket allowed")
	}

	l.Reset("client")
	if !l.Allow("client") {
		t.Error("Allow() after Reset denied, want fresh bucket")
	}

	l.ResetAll()
	if l.Len() != 0 {
		t.Errorf("Len() = %d after ResetAll, want 0", l.Len())
	}
}

func TestSweep(t *testing.T) {
	l, clk := newTestLimiter(Config{Capacity: 5, RefillPerSecond: 1, IdleTTL: time.Minute})

	l.Allow("stale")
	clk.Advance(2 * time.Minute)
	l.Allow("fresh")

	if removed := l.sweep(); removed != 1 {
		t.Errorf("sweep() removed %d buckets, want 1", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", l.Len())
	}

	// The surviving bucket keeps its state: fresh has capacity-1 tokens left.
	for i := 0; i < 4; i++ {
		if !l.Allow("fresh") {
			t.Fatalf("Allow(fresh) call %d denied, want allowed", i+2)
		}
	}
}

func TestJanitor(t *testing.T) {
	l := New(Config{Capacity: 5, RefillPerSecond: 0, IdleTTL: time.Millisecond}, nil)
	l.Allow("client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartJanitor(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for l.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.Len() != 0 {
		t.Error("janitor did not evict idle bucket within 1s")
	}
}

func TestConcurrentSameClient(t *testing.T) {
	l, _ := newTestLimiter(Config{Capacity: 100, RefillPerSecond: 0})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if l.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	// 500 concurrent attempts against capacity 100: exactly 100 succeed.
	if got := allowed.Load(); got != 100 {
		t.Errorf("allowed = %d, want exactly 100", got)
	}
}
