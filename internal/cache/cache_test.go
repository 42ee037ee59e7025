package cache

import (
	"testing"
	"time"

	"sysfinance/internal/core"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) found evicted entry")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	want := Stats{Hits: 2, Misses: 1, Evictions: 1}
	if got := c.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRU[string, string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("Get() returned expired entry")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUSetRefreshesExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRU[int, int](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(1, 10)
	now = now.Add(50 * time.Second)
	c.Set(1, 11)
	now = now.Add(50 * time.Second)

	if v, ok := c.Get(1); !ok || v != 11 {
		t.Errorf("Get(1) = %d, %v; want 11, true", v, ok)
	}
}

func TestLRUDeleteFunc(t *testing.T) {
	c := NewLRU[int, string](10, time.Minute)
	for i := 1; i <= 6; i++ {
		c.Set(i, "x")
	}
	if n := c.DeleteFunc(func(k int) bool { return k%2 == 0 }); n != 3 {
		t.Errorf("DeleteFunc() = %d, want 3", n)
	}
	if _, ok := c.Get(4); ok {
		t.Error("Get(4) found a deleted entry")
	}
	if _, ok := c.Get(5); !ok {
		t.Error("Get(5) lost a kept entry")
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	c := NewSummaryCache(10, time.Minute)
	c.Set(1, core.DashboardSummary{Year: 2024, Month: 3})
	c.Set(1, core.DashboardSummary{Year: 2024, Month: 4})
	c.Set(11, core.DashboardSummary{Year: 2024, Month: 3})

	c.Invalidate(1, 2024, 3)
	if _, ok := c.Get(1, 2024, 3); ok {
		t.Error("invalidated month still cached")
	}
	if _, ok := c.Get(1, 2024, 4); !ok {
		t.Error("other month was dropped")
	}

	c.InvalidateUser(1)
	if _, ok := c.Get(1, 2024, 4); ok {
		t.Error("InvalidateUser() left an entry")
	}
	if _, ok := c.Get(11, 2024, 3); !ok {
		t.Error("InvalidateUser(1) dropped user 11")
	}
}

func TestNilSummaryCache(t *testing.T) {
	var c *SummaryCache
	c.Set(1, core.DashboardSummary{Year: 2024, Month: 1})
	c.Invalidate(1, 2024, 1)
	c.InvalidateUser(1)
	if _, ok := c.Get(1, 2024, 1); ok {
		t.Error("nil cache returned a value")
	}
	if c.Size() != 0 || c.CleanExpired() != 0 {
		t.Error("nil cache reported entries")
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	m.Register(NewSummaryCache(1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
