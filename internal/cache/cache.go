// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the byte-oriented caches used by eventdesk:
// an in-process LRU cache and a Redis cache shared between instances.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheClosed is returned by every operation after Close.
	ErrCacheClosed = errors.New("cache closed")
)

// Cache stores opaque values under string keys. Implementations are safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A non-positive ttl means the cache's
	// default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Stats is a snapshot of cache counters. HitRate is a percentage.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// StatsProvider is implemented by caches that count their traffic.
type StatsProvider interface {
	Stats() Stats
}

func hitRate(hits, misses int64) float64 {
	if lookups := hits + misses; lookups > 0 {
		return 100 * float64(hits) / float64(lookups)
	}
	return 0
}
