// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package spvcache

import (
	"crypto/sha256"
	"sync"
)

// DefaultCapacity is the number of modules kept by a Cache created with a
// non-positive capacity.
const DefaultCapacity = 64

// Key identifies a WGSL source by content.
type Key [sha256.Size]byte

// KeyOf returns the key of a WGSL source.
func KeyOf(source string) Key {
	return sha256.Sum256([]byte(source))
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache maps source keys to SPIR-V words with least-recently-used eviction.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*lruNode
	order    lruList
	capacity int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most capacity modules.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[Key]*lruNode, capacity),
		capacity: capacity,
	}
}

// Get returns the SPIR-V cached for key. The returned slice is shared and
// must not be modified.
func (c *Cache) Get(key Key) ([]uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.moveToFront(n)
	return n.words, true
}

// Put stores words under key, evicting the least recently used entry when
// the cache is full. Empty modules are not cached.
func (c *Cache) Put(key Key, words []uint32) {
	if len(words) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.words = words
		c.order.moveToFront(n)
		return
	}
	n := &lruNode{key: key, words: words}
	c.entries[key] = n
	c.order.pushFront(n)

	for c.order.len > c.capacity {
		old := c.order.removeOldest()
		delete(c.entries, old.key)
		c.evictions++
	}
}

// Clear removes all entries. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruNode, c.capacity)
	c.order = lruList{}
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.len
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       c.order.len,
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
