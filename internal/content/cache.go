package content

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	content DailyContent
	expires time.Time
}

// Cache keeps loaded days in memory for a fixed TTL. Misses are not cached, so content
// published later becomes visible on the next request.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps loader. A non-positive ttl disables caching.
func NewCache(loader Loader, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{loader: loader, ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

func (c *Cache) Load(ctx context.Context, date string) (DailyContent, error) {
	if c.ttl <= 0 {
		return c.loader.Load(ctx, date)
	}

	c.mu.Lock()
	entry, ok := c.entries[date]
	c.mu.Unlock()
	if ok && c.now().Before(entry.expires) {
		return entry.content, nil
	}

	dc, err := c.loader.Load(ctx, date)
	if err != nil {
		return DailyContent{}, err
	}

	c.mu.Lock()
	c.entries[date] = cacheEntry{content: dc, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return dc, nil
}

func (c *Cache) Dates(ctx context.Context) ([]string, error) {
	return c.loader.Dates(ctx)
}

// Invalidate drops every cached day.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
