// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration

	// FallbackToMemory uses a memory cache when Redis is unreachable
	// instead of failing.
	FallbackToMemory bool
}

// New creates the cache described by cfg. The second return value reports
// whether the result is Redis-backed.
func New(cfg Config, logger *slog.Logger) (Cache, bool, error) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}

		rc, err := NewRedisCache(opts)
		if err == nil {
			return rc, true, nil
		}
		if !cfg.FallbackToMemory {
			return nil, false, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Warn("redis unavailable, falling back to memory cache", "category", "cache", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), false, nil
}
