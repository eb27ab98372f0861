// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get expired error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	for _, k := range []string{"settings:1:layout", "settings:1:menu", "settings:2:layout"} {
		if err := c.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := c.DeleteByPrefix(ctx, "settings:1:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	if _, err := c.Get(ctx, "settings:1:layout"); !errors.Is(err, ErrCacheMiss) {
		t.Error("settings:1:layout should be removed")
	}
	if _, err := c.Get(ctx, "settings:2:layout"); err != nil {
		t.Errorf("settings:2:layout should remain, got %v", err)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	original := []byte("abc")
	_ = c.Set(ctx, "k", original, 0)
	original[0] = 'X'

	got, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
	got[1] = 'Y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Sets != 1 || s.Items != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", s.HitRate)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{CleanupInterval: time.Millisecond})
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get error = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set error = %v, want ErrCacheClosed", err)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{MaxSize: 50})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 50 {
				key := fmt.Sprintf("k%d-%d", n, j%5)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				if j%10 == 0 {
					_ = c.DeleteByPrefix(ctx, fmt.Sprintf("k%d-", n))
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{MaxSize: 2})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "settings:1:layout", []byte("1"), 0)
	_ = c.Set(ctx, "settings:2:layout", []byte("2"), 0)
	_, _ = c.Get(ctx, "settings:1:layout")
	_ = c.Set(ctx, "settings:3:layout", []byte("3"), 0)

	if _, err := c.Get(ctx, "settings:2:layout"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("least recently used entry should be evicted, got %v", err)
	}
	if _, err := c.Get(ctx, "settings:1:layout"); err != nil {
		t.Errorf("recently read entry should survive, got %v", err)
	}
	if n := c.Stats().Items; n != 2 {
		t.Errorf("Items = %d, want 2", n)
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "gone", []byte("x"), time.Nanosecond)
	_ = c.Set(ctx, "kept", []byte("x"), time.Minute)
	time.Sleep(time.Millisecond)

	c.removeExpired()
	if n := c.Stats().Items; n != 1 {
		t.Errorf("Items after sweep = %d, want 1", n)
	}
}
