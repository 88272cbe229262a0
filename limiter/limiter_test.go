package limiter

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestLimiterBlocksAfterMax(t *testing.T) {
	clock := newFakeClock()
	l := New(2, time.Minute, WithClock(clock.Now))
	ip := "203.0.113.10"

	if !l.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !l.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if l.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(1, 15*time.Minute, WithClock(clock.Now))
	ip := "203.0.113.20"

	if !l.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	clock.Advance(14 * time.Minute)
	if l.Allow(ip) {
		t.Fatalf("expected attempt inside window to be blocked")
	}

	clock.Advance(time.Minute + time.Second)
	if !l.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLimiterIsPerKey(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !l.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if l.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestCheckDoesNotRecord(t *testing.T) {
	l := New(1, time.Minute)
	ip := "203.0.113.40"

	for i := 0; i < 3; i++ {
		if !l.Check(ip) {
			t.Fatalf("Check %d: expected allowed", i)
		}
	}
	l.Record(ip)
	if l.Check(ip) {
		t.Fatalf("expected Check to fail after Record")
	}
	l.Reset(ip)
	if !l.Check(ip) {
		t.Fatalf("expected Check to pass after Reset")
	}
}

func TestPruneDropsExpiredKeys(t *testing.T) {
	clock := newFakeClock()
	l := New(5, time.Minute, WithClock(clock.Now))
	l.Allow("a")
	l.Allow("b")
	clock.Advance(30 * time.Second)
	l.Allow("c")

	if n := l.Prune(); n != 3 {
		t.Fatalf("Prune() = %d keys, want 3", n)
	}
	clock.Advance(45 * time.Second)
	if n := l.Prune(); n != 1 {
		t.Fatalf("Prune() = %d keys, want 1", n)
	}
}
