package rescache

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"feedcurator/internal/feed"
	"feedcurator/internal/logging"
)

const (
	// DefaultCapacity is the maximum number of resident entries.
	DefaultCapacity = 10
	// DefaultTTL is how long an entry stays readable after it is stored.
	DefaultTTL = 5 * time.Minute
)

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	Capacity int
	TTL      time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Entry is a point-in-time copy of one cached grouping.
type Entry struct {
	Fingerprint string
	Groups      []feed.Group
	StoredAt    time.Time
}

// Cache is a FIFO, TTL-bounded store of groupings. It is safe for
// concurrent use; the TTL check and the read happen under one lock.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	entries  map[string]Entry
	order    []string // insertion order, oldest first
}

// New constructs a cache with the supplied options.
func New(opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   logging.NewComponentLogger(logger, "rescache"),
		entries:  make(map[string]Entry, opts.Capacity+1),
	}
}

// Get returns a copy of the groups stored for fp. Expired entries are
// evicted and reported as absent. The empty fingerprint never hits.
func (c *Cache) Get(fp string) ([]feed.Group, bool) {
	if fp == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fp]
	if !ok {
		return nil, false
	}
	if age := c.now().Sub(entry.StoredAt); age > c.ttl {
		c.removeLocked(fp)
		c.logger.Debug("evicted expired grouping",
			logging.Fingerprint(fp),
			logging.Duration("age", age))
		return nil, false
	}
	return feed.CloneGroups(entry.Groups), true
}

// Put stores a copy of groups for fp with the current timestamp. Storing an
// existing fingerprint refreshes it and moves it to the newest slot. When
// the cache grows beyond capacity the oldest-inserted entry is evicted.
func (c *Cache) Put(fp string, groups []feed.Group) {
	if fp == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fp]; exists {
		c.removeLocked(fp)
	}
	c.entries[fp] = Entry{Fingerprint: fp, Groups: feed.CloneGroups(groups), StoredAt: c.now()}
	c.order = append(c.order, fp)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.removeLocked(oldest)
		c.logger.Debug("evicted oldest grouping",
			logging.Fingerprint(oldest),
			logging.Int("capacity", c.capacity))
	}
}

// Len returns the number of resident entries, including expired ones not
// yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry, c.capacity+1)
	c.order = nil
}

// Prune evicts every expired entry and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, fp := range slices.Clone(c.order) {
		if now.Sub(c.entries[fp].StoredAt) > c.ttl {
			c.removeLocked(fp)
			removed++
		}
	}
	return removed
}

// Entries returns copies of the resident entries, oldest first.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.order))
	for _, fp := range c.order {
		entry := c.entries[fp]
		entry.Groups = feed.CloneGroups(entry.Groups)
		out = append(out, entry)
	}
	return out
}

func (c *Cache) removeLocked(fp string) {
	delete(c.entries, fp)
	if idx := slices.Index(c.order, fp); idx >= 0 {
		c.order = slices.Delete(c.order, idx, idx+1)
	}
}
