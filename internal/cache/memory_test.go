package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCache_BasicOperations(t *testing.T) {
	c := New(4)

	c.Put("A.", []byte("audio-a"))

	got, ok := c.Get("A.")
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(got) != "audio-a" {
		t.Errorf("Get = %q, want %q", got, "audio-a")
	}
	if !c.Has("A.") {
		t.Error("Has returned false for existing key")
	}

	c.Delete("A.")
	if c.Has("A.") {
		t.Error("key still exists after delete")
	}

	c.Put("B.", []byte("b"))
	c.Put("C.", []byte("c"))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(3)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("s%d", i), []byte{byte(i)})
	}

	// s0 becomes most recently used; s1 is now the oldest.
	c.Get("s0")
	c.Put("s3", []byte{3})

	if c.Has("s1") {
		t.Error("s1 should have been evicted")
	}
	for _, k := range []string{"s0", "s2", "s3"} {
		if !c.Has(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestCache_HasDoesNotTouchRecency(t *testing.T) {
	c := New(2)
	c.Put("old", nil)
	c.Put("new", nil)

	c.Has("old")
	c.Put("newest", nil)

	if c.Has("old") {
		t.Error("Has must not refresh recency")
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	c := New(2)
	c.Put("k", []byte("v1"))
	c.Put("k", []byte("v2"))

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if got, _ := c.Get("k"); string(got) != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}

func TestCache_Stats(t *testing.T) {
	c := New(0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}

	c.Put("a", nil)
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}
	if s.Entries != 1 {
		t.Errorf("Entries = %d, want 1", s.Entries)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (id+j)%20)
				c.Put(key, []byte(key))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 10 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
