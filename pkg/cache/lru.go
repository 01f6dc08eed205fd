// Package cache provides a size-bounded LRU cache of LZ4-compressed byte payloads.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// DefaultMaxSize is the default memory bound for an LRU cache (64 MB of stored bytes).
const DefaultMaxSize = 64 * 1024 * 1024

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// LRU caches encoded payloads by key. Payloads are stored LZ4-compressed when
// that makes them smaller. Size accounting uses the stored length.
type LRU struct {
	mu          sync.Mutex
	entries     map[string]*lruEntry
	head        *lruEntry // Most recently used.
	tail        *lruEntry // Least recently used.
	maxSize     int64
	currentSize int64
	compress    bool

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key         string
	data        []byte
	rawLen      int // Zero when data is stored uncompressed.
	size        int64
	accessCount int64
	prev        *lruEntry
	next        *lruEntry
}

// evictionCost is AccessCount per KB. Lower means a better eviction victim.
func (e *lruEntry) evictionCost() float64 {
	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache bounded to maxSize stored bytes. A non-positive
// maxSize selects DefaultMaxSize.
func NewLRU(maxSize int64, compress bool) *LRU {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &LRU{
		entries:  make(map[string]*lruEntry),
		maxSize:  maxSize,
		compress: compress,
	}
}

// Get returns a copy of the payload stored under key.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()

	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)

		return nil, false
	}

	entry.accessCount++
	c.moveToFront(entry)

	data, rawLen := entry.data, entry.rawLen
	c.mu.Unlock()

	c.hits.Add(1)

	if rawLen == 0 {
		return append([]byte(nil), data...), true
	}

	out, err := decompress(data, rawLen)
	if err != nil {
		c.Remove(key)

		return nil, false
	}

	return out, true
}

// Put stores payload under key. Payloads larger than the whole cache are ignored.
func (c *LRU) Put(key string, payload []byte) {
	data, rawLen := c.pack(payload)
	size := int64(len(data))

	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.currentSize += size - entry.size
		entry.data, entry.rawLen, entry.size = data, rawLen, size
		entry.accessCount++
		c.moveToFront(entry)
	} else {
		entry = &lruEntry{key: key, data: data, rawLen: rawLen, size: size, accessCount: 1}
		c.entries[key] = entry
		c.currentSize += size
		c.addToFront(entry)
	}

	for c.currentSize > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}
}

// Remove drops key from the cache.
func (c *LRU) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return
	}

	c.removeFromList(entry)
	delete(c.entries, key)
	c.currentSize -= entry.size
}

// Clear removes all entries. Hit and miss counters are kept.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*lruEntry)
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns cache statistics.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// pack returns the bytes to store and the raw length, zero when stored as-is.
func (c *LRU) pack(payload []byte) ([]byte, int) {
	if !c.compress || len(payload) == 0 {
		return append([]byte(nil), payload...), 0
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))

	written, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil || written == 0 || written >= len(payload) {
		// Incompressible.
		return append([]byte(nil), payload...), 0
	}

	return compressed[:written:written], len(payload)
}

func decompress(data []byte, rawLen int) ([]byte, error) {
	out := make([]byte, rawLen)

	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}

	return out[:n], nil
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

// evictionSampleSize is the number of LRU candidates sampled per eviction.
const evictionSampleSize = 5

// evictLowestCost removes the cheapest entry among the least recently used few.
func (c *LRU) evictLowestCost() {
	var candidates [evictionSampleSize]*lruEntry

	count := 0

	for entry := c.tail; entry != nil && count < evictionSampleSize; entry = entry.prev {
		candidates[count] = entry
		count++
	}

	if count == 0 {
		return
	}

	victim := candidates[0]
	lowestCost := victim.evictionCost()

	for i := 1; i < count; i++ {
		cost := candidates[i].evictionCost()
		if cost < lowestCost {
			lowestCost = cost
			victim = candidates[i]
		}
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
