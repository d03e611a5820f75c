package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/storycast/internal/pcm"
)

// AudioCache maps segment ids to decoded audio. It has no capacity limit:
// a story has few segments and the cache is cleared with every analysis.
type AudioCache struct {
	items map[string]*entry
	size  int64

	mu    sync.RWMutex
	stats Stats
}

type entry struct {
	buf       *pcm.Buffer
	timestamp time.Time
	hits      int64
}

// NewAudioCache creates an empty cache.
func NewAudioCache() *AudioCache {
	return &AudioCache{
		items: make(map[string]*entry),
	}
}

// Get returns the audio cached for id.
func (c *AudioCache) Get(id string) (*pcm.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = time.Now()
	e, ok := c.items[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e.hits++
	c.stats.Hits++
	return e.buf, true
}

// Put stores buf under id, replacing any previous entry.
func (c *AudioCache) Put(id string, buf *pcm.Buffer) {
	if buf == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[id]; ok {
		c.size -= old.buf.SizeBytes()
	}
	c.items[id] = &entry{buf: buf, timestamp: time.Now()}
	c.size += buf.SizeBytes()
}

// Invalidate drops the entry for id. It reports whether one existed.
func (c *AudioCache) Invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[id]
	if !ok {
		return false
	}
	delete(c.items, id)
	c.size -= e.buf.SizeBytes()
	c.stats.Invalidations++
	return true
}

// Clear drops every entry.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry)
	c.size = 0
	c.stats.Clears++
	c.stats.LastClear = time.Now()
}

// Contains reports whether id is cached without counting a hit or miss.
func (c *AudioCache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[id]
	return ok
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the cached ids in sorted order.
func (c *AudioCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *AudioCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.ItemCount = int64(len(c.items))
	stats.Size = c.size
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}
