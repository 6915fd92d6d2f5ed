// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"container/list"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// resultCache is a TTL-bounded LRU of completed analyses.
//
// # Thread Safety
//
//	All methods are safe for concurrent use. Concurrent misses for the
//	same key coalesce into a single computation via singleflight, so a
//	thundering herd on a large graph runs the traversal once.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
	flight   singleflight.Group
}

type cacheEntry struct {
	key       string
	result    *Result
	expiresAt time.Time
}

func newResultCache(capacity int, ttl time.Duration) *resultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &resultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// keySep cannot appear in tenant, execution, or node identifiers
// produced by the ingestion pipeline.
const keySep = "\x1f"

// cacheKey builds the canonical key for a source node set. Node ids are
// sorted and deduplicated so query order does not fragment the cache.
func cacheKey(tenantID, executionID string, nodeIDs []string) string {
	ids := make([]string, 0, len(nodeIDs))
	seen := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return tenantID + keySep + executionID + keySep + strings.Join(ids, keySep)
}

// executionPrefix is the key prefix shared by every entry of one
// registered graph.
func executionPrefix(tenantID, executionID string) string {
	return tenantID + keySep + executionID + keySep
}

// get returns a fresh cached result. Expired entries are removed on
// access rather than by a background sweeper.
func (c *resultCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		cacheMisses.Inc()
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		cacheExpirations.Inc()
		cacheMisses.Inc()
		return nil, false
	}
	c.order.MoveToFront(elem)
	cacheHits.Inc()
	return entry.result, true
}

// put stores a result, evicting the least recently used entry when the
// cache is full. A put for an existing key overwrites it (last write
// wins).
func (c *resultCache) put(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		cacheEvictions.Inc()
	}
	entry := &cacheEntry{key: key, result: result, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = c.order.PushFront(entry)
	cacheSize.Set(float64(c.order.Len()))
}

// getOrCompute returns the cached result for key or computes it once,
// coalescing concurrent callers. The bool reports a cache hit.
func (c *resultCache) getOrCompute(ctx context.Context, key string, compute func(context.Context) (*Result, error)) (*Result, bool, error) {
	if result, ok := c.get(key); ok {
		return result, true, nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the entry between our miss and this closure.
		if result, ok := c.get(key); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Result), false, nil
}

// purgeExecution drops every cached result for one registered graph.
func (c *resultCache) purgeExecution(tenantID, executionID string) {
	prefix := executionPrefix(tenantID, executionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(elem)
		}
	}
}

// clear drops every cached result.
func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	cacheSize.Set(0)
}

// removeLocked unlinks an element. Caller holds c.mu.
func (c *resultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
	cacheSize.Set(float64(c.order.Len()))
}
