package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

type memoryEntry struct {
	offers     []models.Offer
	insertedAt time.Time
}

type MemoryConfig struct {
	TTL time.Duration
	// MaxEntries bounds the map; 0 means unbounded.
	MaxEntries int
	Now        func() time.Time
}

// MemoryCache is a process-local quote cache. Stale entries are skipped on
// read and overwritten on write; Sweep drops them in bulk.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		now:        now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]models.Offer, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.fresh(e) {
		return nil, false
	}
	return models.CloneOffers(e.offers), true
}

func (c *MemoryCache) Set(ctx context.Context, key string, offers []models.Offer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = memoryEntry{
		offers:     models.CloneOffers(offers),
		insertedAt: c.now(),
	}
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every stale entry and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !c.fresh(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on every tick until ctx is done.
func (c *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := c.Sweep(); n > 0 {
					log.Printf("Quote cache swept %d stale entries", n)
				}
			}
		}
	}()
}

func (c *MemoryCache) fresh(e memoryEntry) bool {
	return c.now().Sub(e.insertedAt) < c.ttl
}

// evictLocked makes room for one entry: stale entries go first, otherwise
// the oldest insertion is dropped.
func (c *MemoryCache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if !c.fresh(e) {
			delete(c.entries, k)
			return
		}
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey, oldest = k, e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
