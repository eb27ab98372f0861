// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize bounds a memory cache created without MaxSize.
const DefaultMaxSize = 10000

// MemoryCacheOptions configures a MemoryCache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // least recently used entries are evicted beyond it
	CleanupInterval time.Duration // 0 disables the background sweep of expired entries
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// MemoryCache is an in-process LRU cache with per-entry expiry.
// Values are copied on the way in and out.
type MemoryCache struct {
	entries    *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration

	closed   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once

	hits, misses, sets atomic.Int64
}

// NewMemoryCache creates a memory cache. Missing options get defaults.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	// lru.New fails only for a non-positive size.
	entries, _ := lru.New[string, memoryEntry](opts.MaxSize)
	c := &MemoryCache{
		entries:    entries,
		defaultTTL: opts.DefaultTTL,
		stop:       make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.sweep(opts.CleanupInterval)
	}
	return c
}

// Get returns a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	e, ok := c.entries.Get(key)
	if !ok || e.expired(time.Now()) {
		if ok {
			c.entries.Remove(key)
		}
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)
	return slices.Clone(e.value), nil
}

// Set stores a copy of value under key. A non-positive ttl uses the default.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.entries.Add(key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	})
	c.sets.Add(1)
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.entries.Remove(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
	return nil
}

// Close stops the background sweep. Later calls fail with ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.closed.Store(true)
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// Stats returns the hit, miss and set counters.
func (c *MemoryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   c.entries.Len(),
		HitRate: hitRate(hits, misses),
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok && e.expired(now) {
			c.entries.Remove(key)
		}
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
