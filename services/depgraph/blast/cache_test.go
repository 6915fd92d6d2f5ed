// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedResult(executionID string) *Result {
	return &Result{ExecutionID: executionID, ComputedAt: time.Now().UTC()}
}

func TestCacheKeyNormalization(t *testing.T) {
	a := cacheKey("tenant-a", "exec-1", []string{"n2", "n1", "n2"})
	b := cacheKey("tenant-a", "exec-1", []string{"n1", "n2"})
	assert.Equal(t, a, b)

	// Different executions never share keys.
	c := cacheKey("tenant-a", "exec-2", []string{"n1", "n2"})
	assert.NotEqual(t, a, c)

	// Nor do different tenants.
	d := cacheKey("tenant-b", "exec-1", []string{"n1", "n2"})
	assert.NotEqual(t, a, d)
}

func TestCacheGetPut(t *testing.T) {
	c := newResultCache(4, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})

	_, ok := c.get(key)
	assert.False(t, ok)

	want := cachedResult("exec-1")
	c.put(key, want)

	got, ok := c.get(key)
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestCachePutOverwrites(t *testing.T) {
	c := newResultCache(4, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})

	c.put(key, cachedResult("exec-1"))
	replacement := cachedResult("exec-1")
	c.put(key, replacement)

	got, ok := c.get(key)
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newResultCache(4, 20*time.Millisecond)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})

	c.put(key, cachedResult("exec-1"))
	_, ok := c.get(key)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.get(key)
	assert.False(t, ok)
}

func TestCacheLRUEviction(t *testing.T) {
	c := newResultCache(2, time.Minute)
	k1 := cacheKey("tenant-a", "exec-1", []string{"n1"})
	k2 := cacheKey("tenant-a", "exec-1", []string{"n2"})
	k3 := cacheKey("tenant-a", "exec-1", []string{"n3"})

	c.put(k1, cachedResult("exec-1"))
	c.put(k2, cachedResult("exec-1"))

	// Touch k1 so k2 becomes the eviction candidate.
	_, ok := c.get(k1)
	require.True(t, ok)

	c.put(k3, cachedResult("exec-1"))

	_, ok = c.get(k1)
	assert.True(t, ok)
	_, ok = c.get(k2)
	assert.False(t, ok)
	_, ok = c.get(k3)
	assert.True(t, ok)
}

func TestCachePurgeExecution(t *testing.T) {
	c := newResultCache(8, time.Minute)
	keep := cacheKey("tenant-a", "exec-keep", []string{"n1"})
	drop1 := cacheKey("tenant-a", "exec-drop", []string{"n1"})
	drop2 := cacheKey("tenant-a", "exec-drop", []string{"n1", "n2"})

	c.put(keep, cachedResult("exec-keep"))
	c.put(drop1, cachedResult("exec-drop"))
	c.put(drop2, cachedResult("exec-drop"))

	c.purgeExecution("tenant-a", "exec-drop")

	_, ok := c.get(keep)
	assert.True(t, ok)
	_, ok = c.get(drop1)
	assert.False(t, ok)
	_, ok = c.get(drop2)
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c := newResultCache(8, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})
	c.put(key, cachedResult("exec-1"))

	c.clear()

	_, ok := c.get(key)
	assert.False(t, ok)
}

func TestGetOrComputeCoalesces(t *testing.T) {
	c := newResultCache(8, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})

	var computations atomic.Int32
	compute := func(ctx context.Context) (*Result, error) {
		computations.Add(1)
		time.Sleep(10 * time.Millisecond)
		return cachedResult("exec-1"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.getOrCompute(context.Background(), key, compute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), computations.Load())
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := newResultCache(8, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})
	boom := errors.New("traversal failed")

	_, _, err := c.getOrCompute(context.Background(), key, func(ctx context.Context) (*Result, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// The failure left no entry behind; the next call recomputes.
	want := cachedResult("exec-1")
	result, hit, err := c.getOrCompute(context.Background(), key, func(ctx context.Context) (*Result, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Same(t, want, result)
}

func TestGetOrComputeReportsHit(t *testing.T) {
	c := newResultCache(8, time.Minute)
	key := cacheKey("tenant-a", "exec-1", []string{"n1"})

	_, hit, err := c.getOrCompute(context.Background(), key, func(ctx context.Context) (*Result, error) {
		return cachedResult("exec-1"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = c.getOrCompute(context.Background(), key, func(ctx context.Context) (*Result, error) {
		t.Fatal("compute called on cached key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
}
