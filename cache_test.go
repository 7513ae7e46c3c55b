package boltpage

import (
	"fmt"
	"sync"
	"testing"
)

func fp(path, theme string, n uint64) Fingerprint {
	return Fingerprint{Path: path, Size: n, ModTime: n, Theme: theme}
}

func TestRenderCache_PutGet(t *testing.T) {
	t.Parallel()

	c := NewRenderCache(4)
	key := fp("a.md", "dark", 1)

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Put(key, "<p>one</p>")
	got, ok := c.Get(key)
	if !ok || got != "<p>one</p>" {
		t.Fatalf("Get = %q, %v; want stored HTML", got, ok)
	}

	// Overwrite wins.
	c.Put(key, "<p>two</p>")
	if got, _ := c.Get(key); got != "<p>two</p>" {
		t.Fatalf("Get after overwrite = %q, want %q", got, "<p>two</p>")
	}
}

func TestRenderCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := NewRenderCache(2)
	a := fp("a.md", "dark", 1)
	b := fp("b.md", "dark", 1)
	d := fp("d.md", "dark", 1)

	c.Put(a, "A")
	c.Put(b, "B")

	// Touch a so b becomes least recently used.
	if _, ok := c.Get(a); !ok {
		t.Fatal("expected hit for a")
	}

	c.Put(d, "D")

	if _, ok := c.Get(b); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Error("a should have survived eviction")
	}
	if _, ok := c.Get(d); !ok {
		t.Error("d should be present")
	}
}

func TestRenderCache_EntrySurvivesUntilCapacityExceeded(t *testing.T) {
	t.Parallel()

	const capacity = 5
	c := NewRenderCache(capacity)
	first := fp("first.md", "dark", 1)
	c.Put(first, "first")

	// capacity-1 more insertions: first must still be present.
	for i := 0; i < capacity-1; i++ {
		c.Put(fp(fmt.Sprintf("f%d.md", i), "dark", 1), "x")
	}
	if _, ok := c.Get(first); !ok {
		t.Fatal("entry evicted before capacity was exceeded")
	}
}

func TestRenderCache_InvalidatePathScoping(t *testing.T) {
	t.Parallel()

	c := NewRenderCache(10)
	darkA := fp("a.md", "dark", 1)
	lightA := fp("a.md", "light", 1)
	staleA := fp("a.md", "dark", 2) // different size/mtime, same path
	darkB := fp("b.md", "dark", 1)

	c.Put(darkA, "A-dark")
	c.Put(lightA, "A-light")
	c.Put(staleA, "A-stale")
	c.Put(darkB, "B-dark")

	c.InvalidatePath("a.md")

	for _, key := range []Fingerprint{darkA, lightA, staleA} {
		if _, ok := c.Get(key); ok {
			t.Errorf("entry %+v should have been invalidated", key)
		}
	}
	if got, ok := c.Get(darkB); !ok || got != "B-dark" {
		t.Error("entry for other path must be untouched")
	}
}

func TestRenderCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewRenderCache(8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fp(fmt.Sprintf("p%d.md", i%4), "dark", uint64(j%3))
				c.Put(key, "html")
				if html, ok := c.Get(key); ok && html != "html" {
					t.Error("partial value observed")
				}
				c.InvalidatePath("p0.md")
			}
		}(i)
	}
	wg.Wait()
}
