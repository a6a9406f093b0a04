package wgpu

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuproxy"
)

// Default cache configuration constants.
const (
	// DefaultMaxSizeMB is the default cache budget in megabytes.
	DefaultMaxSizeMB = 64

	// bytesPerMB is the number of bytes in a megabyte.
	bytesPerMB = 1024 * 1024
)

// Cache is the allocator-level resource cache: a map from unique key to
// live texture with LRU eviction over a byte budget. It implements
// gpuproxy.ResourceCache.
//
// The cache holds one reference per entry, so a cached texture survives
// its creating proxy and can back a later FindOrCreateProxyByUniqueKey.
// Non-budgeted textures are indexed but do not count against the budget.
//
// Cache is safe for concurrent use and keeps atomic hit/miss/eviction
// counters for zero-allocation stat reads.
type Cache struct {
	mu      sync.Mutex
	entries map[gpuproxy.UniqueKey]*cacheEntry
	lru     *list.List // front = most recently used
	size    int64
	maxSize int64

	// onInvalidate, when set, receives the key of every evicted entry so
	// the proxy level can drop its own index entry.
	onInvalidate func(gpuproxy.UniqueKey)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	key     gpuproxy.UniqueKey
	tex     *Texture
	size    int64 // 0 for non-budgeted textures
	element *list.Element
}

// CacheStats is a snapshot of cache occupancy and traffic.
type CacheStats struct {
	// Size is the budgeted memory indexed by the cache, in bytes.
	Size int64
	// MaxSize is the byte budget.
	MaxSize int64
	// Entries is the number of keyed textures.
	Entries int
	// Hits and Misses count FindByUniqueKey outcomes.
	Hits   uint64
	Misses uint64
	// Evictions counts entries dropped to stay under budget or purged.
	Evictions uint64
}

// NewCache creates a resource cache with the given budget in megabytes.
// Non-positive budgets fall back to DefaultMaxSizeMB.
func NewCache(maxSizeMB int) *Cache {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	return &Cache{
		entries: make(map[gpuproxy.UniqueKey]*cacheEntry),
		lru:     list.New(),
		maxSize: int64(maxSizeMB) * bytesPerMB,
	}
}

// SetInvalidationListener registers fn to be called with the key of every
// entry the cache drops on its own (eviction, purge). Drops requested
// through the texture's own RemoveUniqueKey do not fire it; that caller
// already knows. Typically wired to Provider.ProcessInvalidUniqueKey.
func (c *Cache) SetInvalidationListener(fn func(gpuproxy.UniqueKey)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidate = fn
}

// FindByUniqueKey returns the texture stamped with key, already referenced
// on behalf of the caller, or nil. A hit refreshes the entry's LRU slot.
func (c *Cache) FindByUniqueKey(key gpuproxy.UniqueKey) gpuproxy.Resource {
	if !key.IsValid() {
		return nil
	}
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil
	}
	c.lru.MoveToFront(entry.element)
	tex := entry.tex
	tex.ref()
	c.mu.Unlock()
	c.hits.Add(1)
	return tex
}

// insert indexes tex under key, taking a cache reference. A previous
// holder of the key is dropped first; budgeted entries may trigger
// eviction of the least recently used textures.
func (c *Cache) insert(key gpuproxy.UniqueKey, tex *Texture) {
	var invalidated []gpuproxy.UniqueKey
	var released []*Texture

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		c.removeEntry(existing)
		released = append(released, existing.tex)
		existing.tex.clearKey()
	}
	size := int64(0)
	if tex.budgeted {
		size = int64(tex.sizeBytes)
	}
	entry := &cacheEntry{key: key, tex: tex, size: size}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.size += size
	tex.ref()
	invalidated, released = c.evictUntilSizeLocked(c.maxSize, invalidated, released)
	fn := c.onInvalidate
	c.mu.Unlock()

	c.notify(fn, invalidated, released)
}

// drop removes the entry for key if it still points at tex and releases
// the cache's reference. Called from the texture's key updates.
func (c *Cache) drop(key gpuproxy.UniqueKey, tex *Texture) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok || entry.tex != tex {
		c.mu.Unlock()
		return
	}
	c.removeEntry(entry)
	c.mu.Unlock()
	tex.Release()
}

// PurgeAll drops every entry, releasing the cache references and firing
// the invalidation listener for each key.
func (c *Cache) PurgeAll() {
	var invalidated []gpuproxy.UniqueKey
	var released []*Texture

	c.mu.Lock()
	for _, entry := range c.entries {
		invalidated = append(invalidated, entry.key)
		released = append(released, entry.tex)
		entry.tex.clearKey()
		c.evictions.Add(1)
	}
	c.entries = make(map[gpuproxy.UniqueKey]*cacheEntry)
	c.lru.Init()
	c.size = 0
	fn := c.onInvalidate
	c.mu.Unlock()

	c.notify(fn, invalidated, released)
}

// Trim evicts least recently used entries until the budgeted size is at
// or below targetSize bytes.
func (c *Cache) Trim(targetSize int64) {
	if targetSize < 0 {
		targetSize = 0
	}
	c.mu.Lock()
	invalidated, released := c.evictUntilSizeLocked(targetSize, nil, nil)
	fn := c.onInvalidate
	c.mu.Unlock()
	c.notify(fn, invalidated, released)
}

// SetMaxSize updates the budget in megabytes, evicting as needed.
func (c *Cache) SetMaxSize(mb int) {
	if mb <= 0 {
		mb = DefaultMaxSizeMB
	}
	c.mu.Lock()
	c.maxSize = int64(mb) * bytesPerMB
	invalidated, released := c.evictUntilSizeLocked(c.maxSize, nil, nil)
	fn := c.onInvalidate
	c.mu.Unlock()
	c.notify(fn, invalidated, released)
}

// evictUntilSizeLocked pops LRU entries until size is at or below target,
// accumulating the keys to invalidate and textures to release once the
// lock is dropped. Must be called with c.mu held.
func (c *Cache) evictUntilSizeLocked(target int64, invalidated []gpuproxy.UniqueKey, released []*Texture) ([]gpuproxy.UniqueKey, []*Texture) {
	for c.size > target && c.lru.Len() > 0 {
		elem := c.lru.Back()
		if elem == nil {
			break
		}
		entry := elem.Value.(*cacheEntry)
		c.removeEntry(entry)
		entry.tex.clearKey()
		invalidated = append(invalidated, entry.key)
		released = append(released, entry.tex)
	}
	return invalidated, released
}

// removeEntry unlinks entry from both structures and counts the eviction.
// Must be called with c.mu held; the caller releases the reference.
func (c *Cache) removeEntry(entry *cacheEntry) {
	c.lru.Remove(entry.element)
	c.size -= entry.size
	delete(c.entries, entry.key)
	c.evictions.Add(1)
}

// notify runs outside the lock: eviction notices may re-enter the provider
// and texture releases may destroy HAL objects.
func (c *Cache) notify(fn func(gpuproxy.UniqueKey), invalidated []gpuproxy.UniqueKey, released []*Texture) {
	if fn != nil {
		for _, key := range invalidated {
			fn(key)
		}
	}
	for _, tex := range released {
		tex.Release()
	}
}

// Contains reports whether key is indexed, without touching LRU order.
func (c *Cache) Contains(key gpuproxy.UniqueKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// EntryCount returns the number of keyed textures.
func (c *Cache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the budgeted bytes currently indexed.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	size := c.size
	maxSize := c.maxSize
	entries := len(c.entries)
	c.mu.Unlock()
	return CacheStats{
		Size:      size,
		MaxSize:   maxSize,
		Entries:   entries,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
