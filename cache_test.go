package committee

import (
	"context"
	"testing"
	"time"
)

func TestListCacheServesUntilStale(t *testing.T) {
	loads := 0
	c := NewListCache(func(context.Context) []string {
		loads++
		return []string{"a"}
	}, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.Get(ctx)
	c.Get(ctx)
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}

	now = now.Add(2 * time.Minute)
	c.Get(ctx)
	if loads != 2 {
		t.Errorf("after ttl loads = %d, want 2", loads)
	}
}

func TestListCacheInvalidate(t *testing.T) {
	loads := 0
	c := NewListCache(func(context.Context) []int {
		loads++
		return nil
	}, time.Hour)

	got := c.Get(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("nil load should be cached as empty, got %v", got)
	}
	c.Invalidate()
	c.Get(context.Background())
	if loads != 2 {
		t.Errorf("loads = %d, want 2", loads)
	}
}

func TestListCacheDisabled(t *testing.T) {
	loads := 0
	c := NewListCache(func(context.Context) []int {
		loads++
		return []int{1}
	}, 0)
	for i := 0; i < 3; i++ {
		c.Get(context.Background())
	}
	if loads != 3 {
		t.Errorf("loads = %d, want 3 with caching disabled", loads)
	}
}
