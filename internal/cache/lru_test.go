package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache should miss")
	}

	c.Set("categories:org-1", "a")
	got, ok := c.Get("categories:org-1")
	if !ok || got != "a" {
		t.Errorf("Get() = %q, %v; want a, true", got, ok)
	}

	c.Set("categories:org-1", "b")
	if got, _ := c.Get("categories:org-1"); got != "b" {
		t.Errorf("Get() after overwrite = %q, want b", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive eviction")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}
	if n := c.Size(); n != 0 {
		t.Errorf("Size() after expired Get = %d, want 0", n)
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("categories:org-1", 1)
	c.Set("categories:org-1:page2", 2)
	c.Set("categories:org-2", 3)

	if n := c.DeletePrefix("categories:org-1"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("categories:org-2"); !ok {
		t.Error("entries outside the prefix should survive")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("fresh entry should survive cleanup")
	}
}
