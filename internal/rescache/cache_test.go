package rescache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"feedcurator/internal/feed"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func groups(urls ...string) []feed.Group {
	items := make([]feed.CandidateItem, len(urls))
	for i, url := range urls {
		items[i] = feed.CandidateItem{Title: url, URL: url, Position: i}
	}
	return []feed.Group{{Category: "Learning", Videos: items}}
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	cache := New(Options{})
	original := groups("u1", "u2")
	cache.Put("fp", original)

	original[0].Videos[0].URL = "mutated-before-read"

	got, ok := cache.Get("fp")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got[0].Videos[0].URL != "u1" {
		t.Fatalf("Put must copy its input, got %q", got[0].Videos[0].URL)
	}
	got[0].Videos[0].URL = "mutated-after-read"
	got[0].Category = "changed"

	again, _ := cache.Get("fp")
	if again[0].Videos[0].URL != "u1" || again[0].Category != "Learning" {
		t.Fatalf("Get must return a copy, got %+v", again)
	}
}

func TestTTLBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := New(Options{TTL: 5 * time.Minute, Now: clock.Now})
	cache.Put("fp", groups("u1"))

	clock.Advance(5*time.Minute - time.Millisecond)
	if _, ok := cache.Get("fp"); !ok {
		t.Fatal("expected entry to be readable just before ttl")
	}

	clock.Advance(2 * time.Millisecond)
	if _, ok := cache.Get("fp"); ok {
		t.Fatal("expected entry to expire just after ttl")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, len=%d", cache.Len())
	}
}

func TestCapacityEvictsFirstInserted(t *testing.T) {
	cache := New(Options{Capacity: 10})
	for i := range 11 {
		cache.Put(fmt.Sprintf("fp-%d", i), groups("u"))
	}
	if cache.Len() != 10 {
		t.Fatalf("expected 10 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get("fp-0"); ok {
		t.Fatal("expected first-inserted entry to be evicted")
	}
	for i := 1; i < 11; i++ {
		if _, ok := cache.Get(fmt.Sprintf("fp-%d", i)); !ok {
			t.Fatalf("expected fp-%d to remain", i)
		}
	}
}

func TestReadsDoNotRefreshEvictionOrder(t *testing.T) {
	cache := New(Options{Capacity: 2})
	cache.Put("a", groups("u"))
	cache.Put("b", groups("u"))
	cache.Get("a")
	cache.Put("c", groups("u"))
	if _, ok := cache.Get("a"); ok {
		t.Fatal("FIFO eviction must ignore reads")
	}
}

func TestRePutRefreshesPosition(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache := New(Options{Capacity: 2, TTL: time.Minute, Now: clock.Now})
	cache.Put("a", groups("u1"))
	cache.Put("b", groups("u"))
	clock.Advance(50 * time.Second)
	cache.Put("a", groups("u2"))
	cache.Put("c", groups("u"))

	if _, ok := cache.Get("b"); ok {
		t.Fatal("expected b to be the oldest insertion after a was re-put")
	}
	clock.Advance(30 * time.Second)
	got, ok := cache.Get("a")
	if !ok {
		t.Fatal("expected re-put entry to have a refreshed timestamp")
	}
	if got[0].Videos[0].URL != "u2" {
		t.Fatalf("expected latest value, got %q", got[0].Videos[0].URL)
	}
}

func TestEmptyFingerprintNeverStored(t *testing.T) {
	cache := New(Options{})
	cache.Put("", groups("u"))
	if cache.Len() != 0 {
		t.Fatal("empty fingerprint must not be stored")
	}
	if _, ok := cache.Get(""); ok {
		t.Fatal("empty fingerprint must never hit")
	}
}

func TestPruneAndEntries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache := New(Options{TTL: time.Minute, Now: clock.Now})
	cache.Put("old", groups("u"))
	clock.Advance(45 * time.Second)
	cache.Put("new", groups("u"))
	clock.Advance(30 * time.Second)

	if removed := cache.Prune(); removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	entries := cache.Entries()
	if len(entries) != 1 || entries[0].Fingerprint != "new" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	entries[0].Groups[0].Category = "mutated"
	if got, _ := cache.Get("new"); got[0].Category != "Learning" {
		t.Fatal("Entries must return copies")
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Fatal("expected empty cache after Clear")
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache := New(Options{Capacity: 4})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				fp := fmt.Sprintf("fp-%d", (i+j)%6)
				cache.Put(fp, groups("u"))
				if got, ok := cache.Get(fp); ok && len(got) != 1 {
					t.Errorf("unexpected groups %+v", got)
				}
			}
		}(i)
	}
	wg.Wait()
	if cache.Len() > 4 {
		t.Fatalf("capacity exceeded: %d", cache.Len())
	}
}
