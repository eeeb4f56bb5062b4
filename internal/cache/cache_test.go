package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetPut_RoundTrip(t *testing.T) {
	c := New(time.Minute)

	c.Put("k1", "result")

	got, hit := c.Get("k1")
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got != "result" {
		t.Errorf("got %v, want result", got)
	}
}

func TestGet_Miss(t *testing.T) {
	c := New(time.Minute)

	if _, hit := c.Get("absent"); hit {
		t.Error("expected cache miss for absent key")
	}
}

func TestGet_ExpiredEntryRemoved(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))

	c.Put("k1", "result")
	clock.Advance(61 * time.Second)

	if _, hit := c.Get("k1"); hit {
		t.Error("expired entry must not be returned as a hit")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should have been removed, len=%d", c.Len())
	}
}

func TestGet_WithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))

	c.Put("k1", "result")
	clock.Advance(59 * time.Second)

	if _, hit := c.Get("k1"); !hit {
		t.Error("entry within TTL should hit")
	}
}

func TestClearExpired(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))

	c.Put("old", 1)
	clock.Advance(45 * time.Second)
	c.Put("fresh", 2)
	clock.Advance(30 * time.Second) // old: 75s, fresh: 30s

	removed := c.ClearExpired()
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if _, hit := c.Get("fresh"); !hit {
		t.Error("fresh entry should survive ClearExpired")
	}
}

func TestPut_MaxEntriesEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now), WithMaxEntries(2))

	c.Put("a", 1)
	clock.Advance(time.Second)
	c.Put("b", 2)
	clock.Advance(time.Second)
	c.Put("c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, hit := c.Get("a"); hit {
		t.Error("oldest entry should have been evicted")
	}
	if _, hit := c.Get("c"); !hit {
		t.Error("newest entry should be present")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%5)
			c.Put(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 5 {
		t.Errorf("expected 5 distinct keys, got %d", c.Len())
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("some text", "recipe", "1", "gpt-4o", 0.1)
	k2 := Key("some text", "recipe", "1", "gpt-4o", 0.1)
	if k1 != k2 {
		t.Error("identical requests must produce identical keys")
	}
}

func TestKey_NormalizesWhitespace(t *testing.T) {
	k1 := Key("  some text \n", "recipe", "1", "gpt-4o", 0.1)
	k2 := Key("some text", "recipe", "1", "gpt-4o", 0.1)
	if k1 != k2 {
		t.Error("leading/trailing whitespace must not change the key")
	}
}

func TestKey_SensitiveToSemanticFields(t *testing.T) {
	base := Key("text", "recipe", "1", "gpt-4o", 0.1)

	variants := []string{
		Key("other text", "recipe", "1", "gpt-4o", 0.1),
		Key("text", "job", "1", "gpt-4o", 0.1),
		Key("text", "recipe", "2", "gpt-4o", 0.1),
		Key("text", "recipe", "1", "gpt-4o-mini", 0.1),
		Key("text", "recipe", "1", "gpt-4o", 0.7),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should produce a different key", i)
		}
	}
}

func TestKey_NoFieldBoundaryCollision(t *testing.T) {
	// "ab"+"c" vs "a"+"bc" across field boundaries must differ.
	k1 := Key("ab", "c", "1", "m", 0)
	k2 := Key("a", "bc", "1", "m", 0)
	if k1 == k2 {
		t.Error("field boundaries must not be ambiguous")
	}
}
