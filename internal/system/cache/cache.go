/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package cache provides a bounded in-memory LRU cache with entry expiry.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/asgardeo/oidcengine/internal/system/log"
)

const (
	// DefaultCacheSize is used when a non-positive size is given.
	DefaultCacheSize = 1000
	// DefaultCacheTTL is used when a non-positive TTL is given.
	DefaultCacheTTL = 5 * time.Minute
)

// CacheInterface defines the operations of a cache holding values of type T.
type CacheInterface[T any] interface {
	Set(key string, value T)
	SetWithTTL(key string, value T, ttl time.Duration)
	Get(key string) (T, bool)
	// Add stores the value only if the key is absent or expired and reports whether it did.
	Add(key string, value T, ttl time.Duration) bool
	Delete(key string)
	Clear()
	GetStats() CacheStat
}

// CacheStat represents cache statistics.
type CacheStat struct {
	Size       int
	MaxSize    int
	HitCount   int64
	MissCount  int64
	EvictCount int64
}

type cacheEntry[T any] struct {
	key        string
	value      T
	expiryTime time.Time
}

// Cache implements CacheInterface with LRU eviction.
type Cache[T any] struct {
	name        string
	entries     map[string]*list.Element
	accessOrder *list.List
	mu          sync.Mutex
	size        int
	ttl         time.Duration
	now         func() time.Time
	hitCount    int64
	missCount   int64
	evictCount  int64
}

// NewCache creates a new LRU cache.
func NewCache[T any](name string, size int, ttl time.Duration) *Cache[T] {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Cache")).Debug("Initializing cache",
		log.String("name", name), log.Int("size", size), log.Any("ttl", ttl))

	return &Cache[T]{
		name:        name,
		entries:     make(map[string]*list.Element),
		accessOrder: list.New(),
		size:        size,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Set adds or updates an entry using the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL adds or updates an entry with a specific TTL.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl)
}

// Add stores the value only when the key is not already present.
func (c *Cache[T]) Add(key string, value T, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.entries[key]; exists {
		entry := element.Value.(*cacheEntry[T])
		if c.now().Before(entry.expiryTime) {
			return false
		}
	}
	c.setLocked(key, value, ttl)
	return true
}

func (c *Cache[T]) setLocked(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiryTime := c.now().Add(ttl)

	if element, exists := c.entries[key]; exists {
		entry := element.Value.(*cacheEntry[T])
		entry.value = value
		entry.expiryTime = expiryTime
		c.accessOrder.MoveToFront(element)
		return
	}

	if len(c.entries) >= c.size {
		c.evictOldest()
	}
	c.entries[key] = c.accessOrder.PushFront(&cacheEntry[T]{key: key, value: value, expiryTime: expiryTime})
}

// Get retrieves a value. Expired entries are removed and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	element, exists := c.entries[key]
	if !exists {
		c.missCount++
		return zero, false
	}

	entry := element.Value.(*cacheEntry[T])
	if !c.now().Before(entry.expiryTime) {
		c.accessOrder.Remove(element)
		delete(c.entries, key)
		c.missCount++
		return zero, false
	}

	c.accessOrder.MoveToFront(element)
	c.hitCount++
	return entry.value, true
}

// Delete removes an entry.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.entries[key]; exists {
		c.accessOrder.Remove(element)
		delete(c.entries, key)
	}
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.accessOrder.Init()
}

// GetStats returns the cache statistics.
func (c *Cache[T]) GetStats() CacheStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStat{
		Size:       len(c.entries),
		MaxSize:    c.size,
		HitCount:   c.hitCount,
		MissCount:  c.missCount,
		EvictCount: c.evictCount,
	}
}

// evictOldest drops the least recently used entry.
func (c *Cache[T]) evictOldest() {
	element := c.accessOrder.Back()
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry[T])
	c.accessOrder.Remove(element)
	delete(c.entries, entry.key)
	c.evictCount++
}
