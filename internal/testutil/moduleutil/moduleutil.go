// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil provides module-specific test helpers for eventdesk.
package moduleutil

import (
	"testing"
	"time"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/config"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/routes"
	"github.com/olegiv/eventdesk/internal/settings"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/testutil"
)

// TestConfig returns a configuration suitable for module tests.
// Uploads go to a per-test temporary directory.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "test",
		UploadsDir:      t.TempDir(),
		DefaultTimezone: "UTC",
		CacheTTL:        60,
	}
}

// TestModuleContext creates a module.Context over a migrated temporary
// database. Returns the context and the hooks registry for verifying hook
// behavior.
func TestModuleContext(t *testing.T) (*module.Context, *module.HookRegistry) {
	t.Helper()

	db := testutil.TestDB(t)
	logger := testutil.TestLogger()
	hooks := module.NewHookRegistry(logger)

	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	return &module.Context{
		DB:       db,
		Store:    store.New(db),
		Logger:   logger,
		Config:   TestConfig(t),
		Hooks:    hooks,
		Settings: settings.NewRegistry(),
		Cache:    c,
		Routes:   routes.NewTable(),
	}, hooks
}
