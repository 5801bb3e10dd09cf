package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get = %q/%v, want v/true", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on missing key should report a miss")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := NewLRUCache(3, time.Minute)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Fatal("newest entry should still be present")
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := NewLRUCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted, not a")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive after being touched")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should be a miss")
	}
}

func TestDumpRestore(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	fresh := NewLRUCache(10, time.Minute)
	fresh.Restore(c.Dump())

	if got, ok := fresh.Get("a"); !ok || got != "1" {
		t.Fatalf("restored a = %q/%v, want 1/true", got, ok)
	}
	if fresh.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", fresh.Len())
	}
}

func TestRestoreSkipsExpired(t *testing.T) {
	dump := map[string]Entry{
		"live": {Value: "1", ExpiresAt: time.Now().Add(time.Minute)},
		"dead": {Value: "2", ExpiresAt: time.Now().Add(-time.Minute)},
	}
	c := NewLRUCache(10, time.Minute)
	c.Restore(dump)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("dead"); ok {
		t.Fatal("expired entry should not be restored")
	}
}
