// Package cache stores successful parse results in a fixed-capacity LRU with
// TTL expiry. Keys are content digests, so the cache never retains payload
// bytes, and the policy fingerprint inside each key keeps results validated
// under different policies apart. Safe for concurrent use.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Defaults applied by New for non-positive arguments.
const (
	DefaultCapacity = 1000
	DefaultTTL      = 60 * time.Second
)

// Key addresses one cached result: a BLAKE2b-256 digest over the policy
// fingerprint and the payload bytes.
type Key [32]byte

// NewKey digests payload under the given policy fingerprint. The fingerprint
// is folded into the digest ahead of the payload, NUL-separated, so results
// produced under different policies never collide.
func NewKey(payload []byte, fingerprint string) Key {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(payload)
	var k Key
	h.Sum(k[:0])
	return k
}

type entry struct {
	key      Key
	value    any
	storedAt time.Time
}

// Cache is an LRU with TTL expiry. Expiry is lazy on Get; Sweep (or the Run
// loop) reclaims entries that stopped being requested.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[Key]*list.Element
	now      func() time.Time
}

// New creates a cache. Non-positive capacity or ttl fall back to
// DefaultCapacity and DefaultTTL.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
		now:      time.Now,
	}
}

// Get returns the value stored under k, if present and fresh. A hit refreshes
// recency; an expired entry is removed on contact and reported as a miss.
func (c *Cache) Get(k Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[k]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*entry)
	if c.expired(ent) {
		c.removeElement(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

// Set stores v under k. An existing entry is refreshed in place; on overflow
// the least recently used entry is evicted.
func (c *Cache) Set(k Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		ent := el.Value.(*entry)
		ent.value = v
		ent.storedAt = c.now()
		c.ll.MoveToFront(el)
		return
	}
	c.items[k] = c.ll.PushFront(&entry{key: k, value: v, storedAt: c.now()})
	if c.ll.Len() > c.capacity {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the configured maximum entry count.
func (c *Cache) Capacity() int {
	return c.capacity
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[Key]*list.Element)
}

// Sweep removes every expired entry and reports how many were dropped.
// Recency order does not track storage time once entries are promoted, so
// the scan covers the whole list.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.ll.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry)) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done, then returns
// ctx.Err(). It blocks; hosts give it a goroutine. A non-positive interval
// defaults to the TTL.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// expired reports whether the entry's age has reached the TTL. Callers hold mu.
func (c *Cache) expired(ent *entry) bool {
	return c.now().Sub(ent.storedAt) >= c.ttl
}

// removeElement unlinks el from both views. Callers hold mu.
func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
